package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/sitekeeper/internal/client/client"
	"github.com/dmitrijs2005/sitekeeper/internal/common"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool

	Register(ctx context.Context, args []string) error
	Login(ctx context.Context, args []string) error
	Logout(ctx context.Context, args []string) error
	WhoAmI(ctx context.Context, args []string) error
	Role(ctx context.Context, args []string) error
	Users(ctx context.Context, args []string) error
	Onsite(ctx context.Context, args []string) error

	List(ctx context.Context, args []string) error
	Page(ctx context.Context, args []string) error
	Next(ctx context.Context, args []string) error
	Prev(ctx context.Context, args []string) error
	Search(ctx context.Context, args []string) error
	Counts(ctx context.Context, args []string) error

	Toggle(ctx context.Context, args []string) error
	CheckOut(ctx context.Context, args []string) error
	CheckIn(ctx context.Context, args []string) error
	Serial(ctx context.Context, args []string) error
	Move(ctx context.Context, args []string) error
	AddItem(ctx context.Context, args []string) error
	DeleteItem(ctx context.Context, args []string) error
	QR(ctx context.Context, args []string) error

	Materials(ctx context.Context, args []string) error
	AddMaterial(ctx context.Context, args []string) error
	Quantity(ctx context.Context, args []string) error
	SetQuantity(ctx context.Context, args []string) error
	DeleteMaterial(ctx context.Context, args []string) error

	Voice(ctx context.Context, args []string) error
}

const (
	helpGuest  = "Available commands: register, login, exit"
	helpMember = `Available commands:
  whoami, role <technician|foreman|superintendent>, users, onsite, logout
  (l)ist, page <n>, next, prev, search <q>, counts
  toggle <id>, checkout <id> [location], checkin <id>
  additem, serial <id> <sn>, move <id> <location>, delitem <id>, qr <id>
  materials, addmaterial, qty <id> <+n|-n>, setqty <id> <n>, delmaterial <id>
  voice [--file path]
  exit`
)

// runREPL starts a simple read–eval–print loop for the SiteKeeper CLI.
//
// It reads a line from reader, parses the first token as the command and
// dispatches the remaining tokens to the matching method on a. Errors are
// shown as a one-line banner and the loop carries on. The loop exits on EOF
// or when the user types "exit" or "quit".
//
// Commands other than help, register, login and exit require a signed-in
// session.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("sk> %s > ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "exit", "quit":
			printlnFn("Bye!")
			return
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpMember)
			} else {
				printlnFn(helpGuest)
			}
			continue
		}

		h, ok := dispatch(a, cmd)
		if !ok {
			printlnFn("Unknown command:", cmd)
			continue
		}
		if !a.isLoggedIn() && cmd != "register" && cmd != "login" {
			printlnFn(banner(common.ErrNoCredential))
			continue
		}
		if err := h(ctx, args); err != nil {
			printlnFn(banner(err))
		}
	}
}

func dispatch(a execIface, cmd string) (func(context.Context, []string) error, bool) {
	switch cmd {
	case "register":
		return a.Register, true
	case "login":
		return a.Login, true
	case "logout":
		return a.Logout, true
	case "whoami":
		return a.WhoAmI, true
	case "role":
		return a.Role, true
	case "users":
		return a.Users, true
	case "onsite":
		return a.Onsite, true

	case "l", "list":
		return a.List, true
	case "page":
		return a.Page, true
	case "next":
		return a.Next, true
	case "prev":
		return a.Prev, true
	case "search":
		return a.Search, true
	case "counts":
		return a.Counts, true

	case "toggle":
		return a.Toggle, true
	case "checkout":
		return a.CheckOut, true
	case "checkin":
		return a.CheckIn, true
	case "serial":
		return a.Serial, true
	case "move":
		return a.Move, true
	case "additem":
		return a.AddItem, true
	case "delitem":
		return a.DeleteItem, true
	case "qr":
		return a.QR, true

	case "materials":
		return a.Materials, true
	case "addmaterial":
		return a.AddMaterial, true
	case "qty":
		return a.Quantity, true
	case "setqty":
		return a.SetQuantity, true
	case "delmaterial":
		return a.DeleteMaterial, true

	case "voice":
		return a.Voice, true
	}
	return nil, false
}

// errUsage marks bad command arguments; its text is shown as is.
type errUsage string

func (e errUsage) Error() string { return "usage: " + string(e) }

// banner renders err as the one-line message shown under the prompt.
func banner(err error) string {
	var usage errUsage
	switch {
	case errors.As(err, &usage):
		return usage.Error()
	case errors.Is(err, common.ErrNoCredential):
		return "Error: please log in first"
	case errors.Is(err, common.ErrValidation):
		return "Error: " + err.Error()
	}
	return "Error: " + client.UserMessage(err, err.Error())
}
