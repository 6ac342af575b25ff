// Package main hosts the Pigeonhole CLI entrypoint and command graph.
//
// The Cobra-based command tree starts foreground processing runs, translates
// terminal invocations into IPC calls against an active run, inspects run
// history, works the manual review queue, and manages the asset knowledge
// base. It centralizes configuration resolution, socket discovery, and
// structured logging setup so subcommands can focus on user experience
// instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
