package main

import (
	"context"
	"io"
	"testing"

	"github.com/myrjola/turtlesoup/internal/e2etest"
	"github.com/stretchr/testify/require"
)

func testLookupEnv(key string) (string, bool) {
	switch key {
	case "TURTLESOUP_ADDR":
		return "localhost:0", true
	case "TURTLESOUP_SQLITE_URL":
		return ":memory:", true
	case "TURTLESOUP_PPROF_PORT":
		return "", true
	default:
		return "", false
	}
}

// startTestServer starts the server with an in-memory database and returns a client for it. The server stops when
// the test finishes.
func startTestServer(t *testing.T, w io.Writer) (context.Context, *e2etest.Client) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	server, err := e2etest.StartServer(ctx, w, testLookupEnv, run)
	require.NoError(t, err)
	return ctx, server.Client()
}
