package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/api"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/factory"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/testutil"
)

func TestShutdownWaitsForWebsocketTeardown(t *testing.T) {
	ctx := context.Background()
	logger := testutil.NopLogger()
	app := factory.NewTestApp()
	ts := httptest.NewServer(app.Router(logger))
	defer ts.Close()

	session, err := app.AuthService.CreateGuestPlayer(ctx, "alice")
	require.NoError(t, err)

	header := http.Header{"Authorization": []string{"Bearer " + session.Token}}
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/lobby/", header)
	require.NoError(t, err)
	_ = resp.Body.Close()
	defer conn.Close()

	require.Eventually(t, func() bool {
		return app.Registry.ConnectionCount() == 1
	}, time.Second, 5*time.Millisecond)

	// Websocket traffic is hijacked, so the HTTP server has nothing to wait for
	server := api.NewServer(http.NotFoundHandler(), api.DefaultServerConfig(), logger)
	require.NoError(t, shutdown(server, app.App, time.Second, logger))

	assert.Zero(t, app.Registry.ConnectionCount())
	state, err := app.Memory.GetSessionState(ctx, session.PlayerID)
	require.NoError(t, err)
	assert.False(t, state.Connected)
}
