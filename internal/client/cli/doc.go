// Package cli provides the interactive theme client.
//
// It wires configuration, the local theme cache, the HTTP client, the page
// document and the theme coordinator, then runs a small REPL:
//
//   - status, refresh, versions, history
//   - switch <version>, revert
//   - submit <file> [upload|ai], validate <file>
//   - render [path]
//
// The REPL is started via App.Run(ctx), which blocks until the user exits
// or stdin is closed.
package cli
