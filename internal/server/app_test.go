package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/eventhub/internal/logging"
	"github.com/dmitrijs2005/eventhub/internal/server/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.DatabaseDSN = config.DatabaseMemory
	c.JWTSecret = "access-secret-0123456789"
	c.JWTRefreshSecret = "refresh-secret-0123456789"
	c.BcryptCost = 4
	c.UploadDir = t.TempDir()
	c.GRPCAddress = "127.0.0.1:0"
	c.ShutdownTimeout = 2 * time.Second
	return c
}

func testLogger() logging.Logger {
	return logging.New(io.Discard, logging.FormatJSON, "error")
}

func TestApp_ServesAndShutsDown(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t), testLogger())
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, lis) }()

	url := "http://" + lis.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after context cancel")
	}
}

func TestApp_GRPCFailureStopsApp(t *testing.T) {
	c := testConfig(t)
	c.GRPCAddress = "127.0.0.1:99999"
	app, err := NewApp(context.Background(), c, testLogger())
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Serve(context.Background(), lis) }()

	select {
	case err := <-done:
		assert.ErrorContains(t, err, "grpc server")
	case <-time.After(5 * time.Second):
		t.Fatal("app kept running after the gRPC listener failed")
	}
}

func TestNewApp_Errors(t *testing.T) {
	c := testConfig(t)
	c.StorageBackend = "floppy"
	_, err := NewApp(context.Background(), c, testLogger())
	assert.ErrorContains(t, err, "image storage")

	c = testConfig(t)
	c.AuthRateLimit = "often"
	_, err = NewApp(context.Background(), c, testLogger())
	assert.Error(t, err)
}

func TestApp_HandlerWithoutGRPC(t *testing.T) {
	c := testConfig(t)
	c.GRPCAddress = ""
	app, err := NewApp(context.Background(), c, testLogger())
	require.NoError(t, err)
	assert.Nil(t, app.health)
	assert.NotNil(t, app.Handler())
}
