package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// isTerminal is a test seam for term.IsTerminal. The prompt is only shown
// when stdin is interactive.
var isTerminal = term.IsTerminal

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Status(ctx context.Context) error
	Refresh(ctx context.Context) error
	Versions(ctx context.Context) error
	History(ctx context.Context) error
	Switch(ctx context.Context, version string) error
	Revert(ctx context.Context) error
	Submit(ctx context.Context, path, source string) error
	Validate(ctx context.Context, path string) error
	Render(ctx context.Context, path string) error
}

const helpText = "Available commands: status, refresh, versions, history, switch <version>, revert, " +
	"submit <file> [upload|ai], validate <file>, render [path], exit"

// runREPL reads commands from scanner and dispatches them to a until EOF,
// "exit" or "quit". Command errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	interactive := isTerminal(int(os.Stdin.Fd()))

	for {
		if interactive {
			fmt.Printf("theme %s> ", statusFn())
		}
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			printlnFn(helpText)

		case "status":
			err = a.Status(ctx)

		case "refresh":
			err = a.Refresh(ctx)

		case "versions", "ls":
			err = a.Versions(ctx)

		case "history":
			err = a.History(ctx)

		case "switch":
			if len(args) == 0 {
				printlnFn("Usage: switch <version>")
				continue
			}
			err = a.Switch(ctx, args[0])

		case "revert":
			err = a.Revert(ctx)

		case "submit":
			if len(args) == 0 {
				printlnFn("Usage: submit <file> [upload|ai]")
				continue
			}
			source := "upload"
			if len(args) > 1 {
				source = args[1]
			}
			err = a.Submit(ctx, args[0], source)

		case "validate":
			if len(args) == 0 {
				printlnFn("Usage: validate <file>")
				continue
			}
			err = a.Validate(ctx, args[0])

		case "render":
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			err = a.Render(ctx, path)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
