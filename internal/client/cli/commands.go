package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dmitrijs2005/eventhub/internal/client/api"
)

var errUsage = errors.New("usage: upload <event-id> <file>")

// getSimpleText and getPassword are swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

func (a *App) prompt(p string) (string, error) {
	return getSimpleText(a.reader, p, a.out)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (a *App) Register(ctx context.Context) error {
	name, err := a.prompt("Enter name")
	if err != nil {
		return err
	}
	email, err := a.prompt("Enter email")
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	u, err := a.api.Register(ctx, api.RegisterRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered and logged in as %s (id %d)\n", u.Email, u.ID)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := a.prompt("Enter email")
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	u, err := a.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", u.Email)
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.api.Refresh(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Access token refreshed")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.api.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	u, err := a.api.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d\t%s\t%s\n", u.ID, u.Name, u.Email)
	return nil
}

// Events prints events, optionally one page: events [page] [limit].
func (a *App) Events(ctx context.Context, args []string) error {
	var page, limit int
	var err error
	if len(args) > 0 {
		if page, err = strconv.Atoi(args[0]); err != nil {
			return fmt.Errorf("invalid page %q", args[0])
		}
	}
	if len(args) > 1 {
		if limit, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("invalid limit %q", args[1])
		}
	}

	events, err := a.api.ListEvents(ctx, page, limit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Fprintln(a.out, "No events")
		return nil
	}
	for _, e := range events {
		img := ""
		if e.ImageURL != nil {
			img = *e.ImageURL
		}
		fmt.Fprintf(a.out, "%d\t%s\t%s\t%s\n", e.ID, e.Date.Format("2006-01-02 15:04"), e.Title, img)
	}
	return nil
}

func (a *App) AddEvent(ctx context.Context) error {
	title, err := a.prompt("Enter title")
	if err != nil {
		return err
	}
	date, err := a.prompt("Enter date (YYYY-MM-DD or RFC3339)")
	if err != nil {
		return err
	}
	desc, err := a.prompt("Enter description (optional)")
	if err != nil {
		return err
	}

	e, err := a.api.CreateEvent(ctx, api.EventRequest{Title: title, Date: date, Description: optional(desc)})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created event %d\n", e.ID)
	return nil
}

func (a *App) Upload(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return errUsage
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}

	url, err := a.api.UploadImage(ctx, id, filepath.Base(args[1]), data)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Image uploaded: %s\n", url)
	return nil
}
