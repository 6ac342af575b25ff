// Package testsupport provides shared helpers for package tests: temp-backed
// configs, store openers, and in-memory connector and knowledge fakes.
package testsupport
