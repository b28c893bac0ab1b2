package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	List(ctx context.Context, args []string) error
	Put(ctx context.Context, args []string) error
	Get(ctx context.Context, args []string) error
	Remove(ctx context.Context, args []string) error
	Share(ctx context.Context, args []string) error
	Unshare(ctx context.Context, args []string) error
}

// runREPL reads commands from reader until EOF, "exit" or "quit".
// Command errors are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("mv%s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: ls [prefix], put <local> [key], get <key> <local>, rm <key>, share <key>, unshare <key>, logout, exit")
			} else {
				printlnFn("Available commands: login, exit")
			}
			continue

		case "exit", "quit":
			printlnFn("Bye!")
			return

		case "login":
			cmdErr = a.Login(ctx)
			if cmdErr == nil {
				printlnFn("Login successful")
			}

		case "logout", "ls", "put", "get", "rm", "share", "unshare":
			if !a.isLoggedIn() {
				printlnFn("Please login first")
				continue
			}
			cmdErr = dispatch(ctx, a, cmd, args)

		default:
			printlnFn("Unknown command:", cmd)
			continue
		}

		if cmdErr != nil {
			printlnFn("error:", cmdErr)
		}
	}
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "logout":
		return a.Logout(ctx)
	case "ls":
		return a.List(ctx, args)
	case "put":
		return a.Put(ctx, args)
	case "get":
		return a.Get(ctx, args)
	case "rm":
		return a.Remove(ctx, args)
	case "share":
		return a.Share(ctx, args)
	case "unshare":
		return a.Unshare(ctx, args)
	}
	return fmt.Errorf("unknown command %q", cmd)
}
