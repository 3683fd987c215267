package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeCommands struct {
	loggedIn bool
	calls    []string
	args     [][]string
	failOn   string
}

func (f *fakeCommands) record(name string, args []string) error {
	f.calls = append(f.calls, name)
	f.args = append(f.args, args)
	if name == f.failOn {
		return errors.New(name + " failed")
	}
	return nil
}

func (f *fakeCommands) isLoggedIn() bool { return f.loggedIn }
func (f *fakeCommands) Register(context.Context) error {
	return f.record("register", nil)
}
func (f *fakeCommands) Login(context.Context) error {
	f.loggedIn = true
	return f.record("login", nil)
}
func (f *fakeCommands) Refresh(context.Context) error { return f.record("refresh", nil) }
func (f *fakeCommands) Logout(context.Context) error {
	f.loggedIn = false
	return f.record("logout", nil)
}
func (f *fakeCommands) WhoAmI(context.Context) error { return f.record("whoami", nil) }
func (f *fakeCommands) Events(_ context.Context, args []string) error {
	return f.record("events", args)
}
func (f *fakeCommands) AddEvent(context.Context) error { return f.record("addevent", nil) }
func (f *fakeCommands) Upload(_ context.Context, args []string) error {
	return f.record("upload", args)
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	in := bufio.NewReader(strings.NewReader(strings.Join([]string{
		"help",
		"login",
		"help",
		"",
		"whoami",
		"events 2 5",
		"addevent",
		"upload 3 pic.png",
		"refresh",
		"foobar",
		"logout",
		"exit",
		"register",
	}, "\n")))
	var out bytes.Buffer
	f := &fakeCommands{}

	runREPL(context.Background(), f, func() string { return "" }, in, &out)

	assert.Equal(t, []string{"login", "whoami", "events", "addevent", "upload", "refresh", "logout"}, f.calls)
	assert.Equal(t, []string{"2", "5"}, f.args[2])
	assert.Equal(t, []string{"3", "pic.png"}, f.args[4])

	s := out.String()
	assert.Contains(t, s, "Available commands: register, login, exit")
	assert.Contains(t, s, "Available commands: whoami")
	assert.Contains(t, s, "Unknown command: foobar")
	assert.Contains(t, s, "Bye!")
}

func TestRunREPL_PrintsErrorsAndStopsAtEOF(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("whoami\nwhoami"))
	var out bytes.Buffer
	f := &fakeCommands{loggedIn: true, failOn: "whoami"}

	runREPL(context.Background(), f, func() string { return " (a@x.com)" }, in, &out)

	assert.Equal(t, []string{"whoami", "whoami"}, f.calls)
	assert.Equal(t, 2, strings.Count(out.String(), "Error: whoami failed"))
	assert.Contains(t, out.String(), "eh (a@x.com)> ")
}
