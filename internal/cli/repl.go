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
	list(ctx context.Context)
	add(ctx context.Context, args []string)
	remove(ctx context.Context, args []string)
	set(ctx context.Context, args []string)
	step(ctx context.Context, args []string, delta int)
	lock(ctx context.Context, args []string)
	unlockAll(ctx context.Context)
	balance(ctx context.Context)
	accept(ctx context.Context)
	decline(ctx context.Context)
	cancel(ctx context.Context)
	amount(ctx context.Context, args []string)
	frequency(ctx context.Context, args []string)
	refresh(ctx context.Context)
	checkout(ctx context.Context)
	clear(ctx context.Context)
}

// runREPL starts a simple read–eval–print loop for the giveflow CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current allocation status (from statusFn) and accepts:
//
//	- help                          — show available commands
//	- list | l                      — show the current allocation
//	- add <nonprofit|category> <id> — add a target
//	- remove <n>                    — remove item n (may propose a redistribution)
//	- set <n> <percent>             — set item n's percentage
//	- up <n> | down <n>             — nudge item n by one percent
//	- lock <n>                      — toggle item n's lock
//	- unlockall                     — release every lock
//	- balance                       — bring the total back to 100%
//	- accept | decline | cancel     — resolve a pending suggestion
//	- amount <dollars>              — set the donation amount
//	- freq <f>                      — set the donation frequency
//	- refresh                       — re-read the draft from the store
//	- checkout                      — validate and hand off for payment
//	- clear                         — discard the draft
//	- exit | quit                   — leave the program
//
// Command handlers print their own errors. This keeps the REPL loop
// resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("gf> %s > ", statusFn()))
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
			printlnFn("Available commands: (l)ist, add, remove, set, up, down, lock, unlockall, balance, accept, decline, cancel, amount, freq, refresh, checkout, clear, exit")

		case "l", "list":
			a.list(ctx)

		case "add":
			a.add(ctx, args)

		case "remove":
			a.remove(ctx, args)

		case "set":
			a.set(ctx, args)

		case "up":
			a.step(ctx, args, 1)

		case "down":
			a.step(ctx, args, -1)

		case "lock":
			a.lock(ctx, args)

		case "unlockall":
			a.unlockAll(ctx)

		case "balance":
			a.balance(ctx)

		case "accept":
			a.accept(ctx)

		case "decline":
			a.decline(ctx)

		case "cancel":
			a.cancel(ctx)

		case "amount":
			a.amount(ctx, args)

		case "freq":
			a.frequency(ctx, args)

		case "refresh":
			a.refresh(ctx)

		case "checkout":
			a.checkout(ctx)

		case "clear":
			a.clear(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
