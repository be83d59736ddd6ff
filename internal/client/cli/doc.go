// Package cli provides the interactive Health Records command-line client.
//
// It wires configuration, the local session database, the API client and
// an interactive REPL. A session stored by an earlier run is picked up on
// start, so the user stays signed in until the refresh token expires or
// they log out.
//
// Commands: login, logout, status, me, help, exit.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
