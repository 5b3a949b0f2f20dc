package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	ResetPassword(ctx context.Context) error
	Profile(ctx context.Context) error
	EditProfile(ctx context.Context) error
	Nav(ctx context.Context) error
}

// runREPL reads commands from reader until EOF, "exit" or "quit" and
// dispatches them to a.
//
//	Not logged in:  help, register, login, reset, nav, profile, exit
//	Logged in:      help, profile, edit, logout, reset, nav, exit
//
// Handlers print their own user-facing errors; the error they return is
// only logged here so one failed command never ends the loop. io.EOF from a
// handler (stdin closed mid-prompt) does end it.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer, onErr func(cmd string, err error)) {
	for {
		fmt.Fprintf(w, "sc %s> ", statusFn())
		line, err := readLine(reader)
		if err != nil {
			fmt.Fprintln(w)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(w, "Available commands: profile, edit, logout, reset, nav, exit")
			} else {
				fmt.Fprintln(w, "Available commands: register, login, reset, nav, exit")
			}

		case "register":
			cmdErr = a.Register(ctx)

		case "login":
			cmdErr = a.Login(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "reset":
			cmdErr = a.ResetPassword(ctx)

		case "profile":
			cmdErr = a.Profile(ctx)

		case "edit":
			cmdErr = a.EditProfile(ctx)

		case "nav":
			cmdErr = a.Nav(ctx)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if cmdErr != nil {
			onErr(cmd, cmdErr)
			if errors.Is(cmdErr, io.EOF) || ctx.Err() != nil {
				return
			}
		}
	}
}
