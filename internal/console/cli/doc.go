// Package cli provides the interactive match-day venue console.
//
// It wires configuration, local storage, the API gateway and the services
// into a REPL that keeps working while the API is unreachable. Typical flow:
// restore the persisted session, refresh the cache, handle a checkout return
// URL passed on the command line, start a background connectivity watcher
// and execute user commands.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
