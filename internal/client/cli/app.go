// Package cli is the interactive eventhub command-line client.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/eventhub/internal/client/api"
	"github.com/dmitrijs2005/eventhub/internal/client/config"
	"github.com/dmitrijs2005/eventhub/internal/client/session"
)

type App struct {
	config  *config.Config
	api     *api.Client
	session *session.Store
	reader  *bufio.Reader
	out     io.Writer
}

// NewApp opens the session database and restores a saved login.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	store, err := session.Open(ctx, c.SessionFile)
	if err != nil {
		return nil, fmt.Errorf("error opening session database: %w", err)
	}

	client := api.New(c.ServerURL, c.RequestTimeout, store)
	tokens, email, err := store.Load(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	client.Restore(tokens, email)

	return newApp(c, client, store, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, client *api.Client, store *session.Store, in io.Reader, out io.Writer) *App {
	return &App{config: c, api: client, session: store, reader: bufio.NewReader(in), out: out}
}

func (a *App) Run(ctx context.Context) {
	defer a.session.Close()

	fmt.Fprintf(a.out, "Welcome to eventhub CLI, server %s (type 'help' for commands)\n", a.config.ServerURL)
	runREPL(ctx, a, a.status, a.reader, a.out)
}

func (a *App) isLoggedIn() bool {
	return a.api.LoggedIn()
}

func (a *App) status() string {
	if email := a.api.Email(); email != "" && a.isLoggedIn() {
		return " (" + email + ")"
	}
	return ""
}
