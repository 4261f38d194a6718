package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dmitrijs2005/matchdesk/internal/console/models"
	"github.com/dmitrijs2005/matchdesk/internal/console/services"
	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool
	failOn   string

	calls []string
}

func (f *fakeExec) record(name string) error {
	f.calls = append(f.calls, name)
	if name == f.failOn {
		return errors.New(name + " failed")
	}
	return nil
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Register(context.Context) error {
	return f.record("register")
}
func (f *fakeExec) Login(context.Context) error {
	f.loggedIn = true
	return f.record("login")
}
func (f *fakeExec) Logout(context.Context) error {
	f.loggedIn = false
	return f.record("logout")
}
func (f *fakeExec) Health(context.Context) error  { return f.record("health") }
func (f *fakeExec) Status(context.Context) error  { return f.record("status") }
func (f *fakeExec) Refresh(context.Context) error { return f.record("refresh") }
func (f *fakeExec) List(_ context.Context, resource string, args []string) error {
	return f.record(strings.TrimSpace("list " + resource + " " + strings.Join(args, " ")))
}
func (f *fakeExec) Stats(context.Context) error { return f.record("stats") }
func (f *fakeExec) Decide(_ context.Context, args []string, d services.Decision) error {
	return f.record(fmt.Sprintf("%s %s", d, strings.Join(args, " ")))
}
func (f *fakeExec) ReadAll(context.Context) error  { return f.record("readall") }
func (f *fakeExec) AddVenue(context.Context) error { return f.record("addvenue") }
func (f *fakeExec) Checkout(_ context.Context, t models.CheckoutType, args []string) error {
	return f.record(fmt.Sprintf("checkout %s %s", t, strings.Join(args, " ")))
}
func (f *fakeExec) Return(_ context.Context, args []string) error {
	return f.record("return " + strings.Join(args, " "))
}
func (f *fakeExec) Resume(context.Context) error { return f.record("resume") }

func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	origPrint := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, fmt.Sprintln(a...))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = origPrint })
	return &lines
}

func TestRunREPL_Dispatch(t *testing.T) {
	captureOutput(t)

	input := strings.Join([]string{
		"help",
		"login",
		"venues fallback",
		"matches",
		"accept 2",
		"reject 3",
		"readall",
		"subscribe The Anchor",
		"onboard Corner Flag",
		"boost 5",
		"return http://app.test/?checkout=cancel",
		"resume",
		"logout",
		"exit",
		"refresh",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, bufio.NewReader(strings.NewReader(input)))

	assert.Equal(t, []string{
		"login",
		"list venues fallback",
		"list matches",
		"accept 2",
		"reject 3",
		"readall",
		"checkout add-venue The Anchor",
		"checkout onboarding Corner Flag",
		"checkout boost-purchase 5",
		"return http://app.test/?checkout=cancel",
		"resume",
		"logout",
	}, exec.calls)
}

func TestRunREPL_AnonymousGating(t *testing.T) {
	out := captureOutput(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" },
		bufio.NewReader(strings.NewReader("venues\nhealth\nfoobar\nquit\n")))

	assert.Equal(t, []string{"health"}, exec.calls)
	joined := strings.Join(*out, "")
	assert.Contains(t, joined, "sign in first")
	assert.Contains(t, joined, "Unknown command: foobar")
	assert.Contains(t, joined, "Bye!")
}

func TestRunREPL_ErrorsDoNotStopLoop(t *testing.T) {
	out := captureOutput(t)

	exec := &fakeExec{loggedIn: true, failOn: "refresh"}
	runREPL(context.Background(), exec, func() string { return "" },
		bufio.NewReader(strings.NewReader("refresh\nstats")))

	assert.Equal(t, []string{"refresh", "stats"}, exec.calls)
	assert.Contains(t, strings.Join(*out, ""), "Error: refresh failed")
}
