// Package ipc provides JSON-RPC control of a running orchestrator over a Unix
// domain socket: stop the active run or query its status from another process.
package ipc
