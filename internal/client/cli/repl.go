package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isSignedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	List(ctx context.Context) error
	Add(ctx context.Context) error
	Edit(ctx context.Context) error
	Show(ctx context.Context) error
	Delete(ctx context.Context) error
	Sync(ctx context.Context) error
	Retry(ctx context.Context) error
	Search(ctx context.Context, args []string) error
	Filter(ctx context.Context, args []string) error
	Jobs(ctx context.Context) error
	Cards(ctx context.Context) error
	AddCard(ctx context.Context) error
	DeleteCard(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the ReceiptVault CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Always:
//	  - help             - show available commands
//	  - (l)ist           - list receipts (respects search/filter)
//	  - add              - add a receipt, optionally with an image file
//	  - edit             - edit a receipt by id
//	  - show             - show a single receipt (interactive ID prompt)
//	  - delete           - delete a receipt by id
//	  - search [text]    - set or clear the name filter
//	  - filter [store]   - set or clear the store filter
//	  - retry            - retry failed image downloads
//	  - jobs             - list queued upload jobs
//	  - cards            - list loyalty cards
//	  - addcard          - add a loyalty card
//	  - delcard          - delete a loyalty card by id
//	  - exit | quit      - leave the program
//
//	Signed in only:
//	  - sync             - pull the remote collection
//	  - logout           - sign out and wipe local data
//
//	Signed out only:
//	  - login            - paste a bearer token to sign in
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("rv> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isSignedIn() {
				printlnFn("Available commands: (l)ist, add, edit, show, delete, search, filter, sync, retry, jobs, cards, addcard, delcard, logout, exit")
			} else {
				printlnFn("Available commands: (l)ist, add, edit, show, delete, search, filter, retry, jobs, cards, addcard, delcard, login, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "add":
			_ = a.Add(ctx)

		case "edit":
			_ = a.Edit(ctx)

		case "show":
			_ = a.Show(ctx)

		case "delete":
			_ = a.Delete(ctx)

		case "sync":
			_ = a.Sync(ctx)

		case "retry":
			_ = a.Retry(ctx)

		case "search":
			_ = a.Search(ctx, args)

		case "filter":
			_ = a.Filter(ctx, args)

		case "jobs":
			_ = a.Jobs(ctx)

		case "cards":
			_ = a.Cards(ctx)

		case "addcard":
			_ = a.AddCard(ctx)

		case "delcard":
			_ = a.DeleteCard(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
