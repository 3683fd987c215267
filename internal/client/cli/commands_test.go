package cli

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/eventhub/internal/client/api"
	"github.com/dmitrijs2005/eventhub/internal/client/config"
	"github.com/dmitrijs2005/eventhub/internal/client/session"
	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/logging"
	"github.com/dmitrijs2005/eventhub/internal/server/auth"
	"github.com/dmitrijs2005/eventhub/internal/server/passwords"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/memory"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/eventhub/internal/server/rest"
	"github.com/dmitrijs2005/eventhub/internal/server/services"
	"github.com/dmitrijs2005/eventhub/internal/server/storage"
)

func startServer(t *testing.T) string {
	t.Helper()

	log := logging.New(io.Discard, logging.FormatJSON, "error")
	rm := repomanager.NewMemoryRepositoryManager(memory.NewStore())
	issuer := auth.NewIssuer("access-secret-0123456789", "refresh-secret-0123456789",
		common.DefaultAccessTokenValidity, common.DefaultRefreshTokenValidity, nil)
	images, err := storage.NewLocalStore(t.TempDir(), storage.UploadsURLPrefix)
	require.NoError(t, err)

	h, err := rest.NewRouter(rest.RouterConfig{
		Users:     services.NewUserService(rm, issuer, passwords.NewBcryptHasher(bcrypt.MinCost), nil, nil, log),
		Events:    services.NewEventService(rm, images, 1<<20, log),
		Health:    rm,
		Log:       log,
		UploadDir: images.Dir(),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL
}

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	old := readPassword
	readPassword = func(int) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() { readPassword = old })
}

func newTestApp(t *testing.T, serverURL, sessionFile, input string) (*App, *bytes.Buffer) {
	t.Helper()

	cfg := &config.Config{ServerURL: serverURL, RequestTimeout: 5 * time.Second, SessionFile: sessionFile}
	store, err := session.Open(context.Background(), sessionFile)
	require.NoError(t, err)

	client := api.New(cfg.ServerURL, cfg.RequestTimeout, store)
	tokens, email, err := store.Load(context.Background())
	require.NoError(t, err)
	client.Restore(tokens, email)

	var out bytes.Buffer
	return newApp(cfg, client, store, strings.NewReader(input), &out), &out
}

func TestApp_Session(t *testing.T) {
	stubPassword(t, "pw123456")
	srv := startServer(t)
	sessionFile := filepath.Join(t.TempDir(), "session.db")

	img := filepath.Join(t.TempDir(), "pic.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0o600))

	app, out := newTestApp(t, srv, sessionFile, strings.Join([]string{
		"register", "Ann", "ann@x.com",
		"whoami",
		"addevent", "Meetup", "2026-05-01", "",
		"upload 1 " + img,
		"upload 1",
		"events",
		"refresh",
		"exit",
	}, "\n"))
	app.Run(context.Background())

	s := out.String()
	assert.Contains(t, s, "Registered and logged in as ann@x.com (id 1)")
	assert.Contains(t, s, "1\tAnn\tann@x.com")
	assert.Contains(t, s, "Created event 1")
	assert.Contains(t, s, "Image uploaded: /uploads/")
	assert.Contains(t, s, "Error: usage: upload <event-id> <file>")
	assert.Contains(t, s, "2026-05-01 00:00\tMeetup\t/uploads/")
	assert.Contains(t, s, "Access token refreshed")
	assert.NotContains(t, s, "pw123456")

	// A new run picks the session up from disk.
	app, out = newTestApp(t, srv, sessionFile, "whoami\nlogout\nwhoami\nexit\n")
	app.Run(context.Background())

	s = out.String()
	assert.Contains(t, s, "eh (ann@x.com)> ")
	assert.Contains(t, s, "1\tAnn\tann@x.com")
	assert.Contains(t, s, "Logged out")
	assert.Contains(t, s, "Error: not logged in")
}

func TestApp_LoginFailure(t *testing.T) {
	stubPassword(t, "wrong-password")
	srv := startServer(t)

	app, out := newTestApp(t, srv, ":memory:", "login\nnobody@x.com\nevents\nexit\n")
	app.Run(context.Background())

	s := out.String()
	assert.Contains(t, s, "Error: invalid email or password (401)")
	assert.Contains(t, s, "Error: not logged in")
}
