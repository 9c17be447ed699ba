package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dmitrijs2005/sitekeeper/internal/client/client"
	"github.com/dmitrijs2005/sitekeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	loggedIn bool

	calls []string
	args  [][]string
	fail  map[string]error
}

func (f *fakeExec) rec(name string, args []string) error {
	f.calls = append(f.calls, name)
	f.args = append(f.args, args)
	return f.fail[name]
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Register(_ context.Context, a []string) error {
	return f.rec("register", a)
}
func (f *fakeExec) Login(_ context.Context, a []string) error {
	f.loggedIn = true
	return f.rec("login", a)
}
func (f *fakeExec) Logout(_ context.Context, a []string) error {
	f.loggedIn = false
	return f.rec("logout", a)
}
func (f *fakeExec) WhoAmI(_ context.Context, a []string) error { return f.rec("whoami", a) }
func (f *fakeExec) Role(_ context.Context, a []string) error   { return f.rec("role", a) }
func (f *fakeExec) Users(_ context.Context, a []string) error  { return f.rec("users", a) }
func (f *fakeExec) Onsite(_ context.Context, a []string) error { return f.rec("onsite", a) }
func (f *fakeExec) List(_ context.Context, a []string) error   { return f.rec("list", a) }
func (f *fakeExec) Page(_ context.Context, a []string) error   { return f.rec("page", a) }
func (f *fakeExec) Next(_ context.Context, a []string) error   { return f.rec("next", a) }
func (f *fakeExec) Prev(_ context.Context, a []string) error   { return f.rec("prev", a) }
func (f *fakeExec) Search(_ context.Context, a []string) error { return f.rec("search", a) }
func (f *fakeExec) Counts(_ context.Context, a []string) error { return f.rec("counts", a) }
func (f *fakeExec) Toggle(_ context.Context, a []string) error { return f.rec("toggle", a) }
func (f *fakeExec) CheckOut(_ context.Context, a []string) error {
	return f.rec("checkout", a)
}
func (f *fakeExec) CheckIn(_ context.Context, a []string) error { return f.rec("checkin", a) }
func (f *fakeExec) Serial(_ context.Context, a []string) error  { return f.rec("serial", a) }
func (f *fakeExec) Move(_ context.Context, a []string) error    { return f.rec("move", a) }
func (f *fakeExec) AddItem(_ context.Context, a []string) error { return f.rec("additem", a) }
func (f *fakeExec) DeleteItem(_ context.Context, a []string) error {
	return f.rec("delitem", a)
}
func (f *fakeExec) QR(_ context.Context, a []string) error { return f.rec("qr", a) }
func (f *fakeExec) Materials(_ context.Context, a []string) error {
	return f.rec("materials", a)
}
func (f *fakeExec) AddMaterial(_ context.Context, a []string) error {
	return f.rec("addmaterial", a)
}
func (f *fakeExec) Quantity(_ context.Context, a []string) error { return f.rec("qty", a) }
func (f *fakeExec) SetQuantity(_ context.Context, a []string) error {
	return f.rec("setqty", a)
}
func (f *fakeExec) DeleteMaterial(_ context.Context, a []string) error {
	return f.rec("delmaterial", a)
}
func (f *fakeExec) Voice(_ context.Context, a []string) error { return f.rec("voice", a) }

// capturePrintln swaps printlnFn for the duration of the test and returns
// everything printed, one entry per call.
func capturePrintln(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	capturePrintln(t)

	input := strings.Join([]string{
		"help",
		"list",
		"login demo",
		"help",
		"list",
		"toggle 42",
		"checkout 7 Level 3",
		"qty 5 -1",
		"voice --file rec.wav",
		"foobar",
		"exit",
		"counts",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, bufio.NewReader(strings.NewReader(input)))

	assert.Equal(t, []string{"login", "list", "toggle", "checkout", "qty", "voice"}, exec.calls,
		"list before login is gated and nothing runs after exit")
	assert.Equal(t, []string{"demo"}, exec.args[0])
	assert.Equal(t, []string{"7", "Level", "3"}, exec.args[3])
	assert.Equal(t, []string{"--file", "rec.wav"}, exec.args[5])
}

func TestRunREPL_AllCommandsDispatch(t *testing.T) {
	capturePrintln(t)

	cmds := []string{
		"register", "logout", "whoami", "role", "users", "onsite",
		"l", "page", "next", "prev", "search", "counts",
		"toggle", "checkout", "checkin", "serial", "move", "additem", "delitem", "qr",
		"materials", "addmaterial", "qty", "setqty", "delmaterial", "voice",
	}
	for _, c := range cmds {
		exec := &fakeExec{loggedIn: true}
		runREPL(context.Background(), exec, func() string { return "" }, rdr(c+"\nquit\n"))
		want := c
		if c == "l" {
			want = "list"
		}
		assert.Equal(t, []string{want}, exec.calls, c)
	}
}

func TestRunREPL_ErrorsShownAsBanner(t *testing.T) {
	lines := capturePrintln(t)

	exec := &fakeExec{loggedIn: true, fail: map[string]error{
		"toggle": fmt.Errorf("check out item 42: %w", client.ErrUnavailable),
		"qty":    &client.APIError{Status: 400, Message: "Quantity cannot be negative"},
		"page":   errUsage("page <n>"),
	}}
	runREPL(context.Background(), exec, func() string { return "" }, rdr("toggle 42\nqty 1 -1\npage x\n"))

	assert.Contains(t, *lines, "Error: server unavailable")
	assert.Contains(t, *lines, "Error: Quantity cannot be negative")
	assert.Contains(t, *lines, "usage: page <n>")
}

func TestRunREPL_EOFWithoutNewline(t *testing.T) {
	capturePrintln(t)

	exec := &fakeExec{loggedIn: true}
	runREPL(context.Background(), exec, func() string { return "" }, rdr("counts"))

	assert.Equal(t, []string{"counts"}, exec.calls)
}

func TestRunREPL_StopsWhenContextDone(t *testing.T) {
	capturePrintln(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &fakeExec{loggedIn: true}
	runREPL(ctx, exec, func() string { return "" }, rdr("counts\n"))
	assert.Empty(t, exec.calls)
}

func TestBanner(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"backend message", fmt.Errorf("x: %w", &client.APIError{Status: 409, Message: "Serial number already exists"}), "Error: Serial number already exists"},
		{"unavailable", fmt.Errorf("x: %w", client.ErrUnavailable), "Error: server unavailable"},
		{"no credential", common.ErrNoCredential, "Error: please log in first"},
		{"validation", fmt.Errorf("%w: name is required", common.ErrValidation), "Error: validation error: name is required"},
		{"usage", errUsage("qr <id>"), "usage: qr <id>"},
		{"other", errors.New("boom"), "Error: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, banner(tt.err))
		})
	}
}
