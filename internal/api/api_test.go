package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/api"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/api/apierr"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/api/response"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/factory"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/model"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/services/auth"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/testutil"
)

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	return &testServer{
		handler: app.Router(testutil.NopLogger()),
		app:     app,
	}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apierr.APIError {
	t.Helper()
	var resp apierr.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp.Error
}

func createGuestPlayer(t *testing.T, ts *testServer, username string) string {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/players/guest", map[string]string{"username": username}, "")
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp response.AuthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp.SessionToken
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestCreateGuestPlayer(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/players/guest", map[string]string{"username": "alice"}, "")
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp response.AuthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "alice", resp.Player.Username)
	assert.True(t, resp.Player.IsGuest)
	assert.NotEmpty(t, resp.SessionToken)
}

func TestCreateGuestRequiresUsername(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/players/guest", map[string]string{"username": "  "}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, decodeError(t, rr).Code)
}

func TestDuplicateUsername(t *testing.T) {
	ts := newTestServer(t)
	createGuestPlayer(t, ts, "alice")

	rr := ts.request(http.MethodPost, "/api/v1/players/guest", map[string]string{"username": "alice"}, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeUsernameExists, decodeError(t, rr).Code)

	rr = ts.request(http.MethodPost, "/api/v1/players/register", map[string]string{
		"username": "alice",
		"password": "putter123",
	}, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeUsernameExists, decodeError(t, rr).Code)
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/players/register", map[string]string{
		"username": "bob",
		"password": "putter123",
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/players/login", map[string]string{
		"username": "bob",
		"password": "putter123",
	}, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp response.AuthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.False(t, resp.Player.IsGuest)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.Equal(t, resp.SessionToken, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestLoginInvalidatesEarlierSession(t *testing.T) {
	ts := newTestServer(t)
	creds := map[string]string{"username": "bob", "password": "putter123"}

	rr := ts.request(http.MethodPost, "/api/v1/players/register", creds, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	var first response.AuthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&first))

	rr = ts.request(http.MethodPost, "/api/v1/players/login", creds, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/players/me", nil, first.SessionToken)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.request(http.MethodPost, "/api/v1/players/register", map[string]string{"username": "bob", "password": "putter123"}, "")

	rr := ts.request(http.MethodPost, "/api/v1/players/login", map[string]string{"username": "bob", "password": "wedge"}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, apierr.CodeInvalidCredentials, decodeError(t, rr).Code)
}

func TestGetMe(t *testing.T) {
	ts := newTestServer(t)
	token := createGuestPlayer(t, ts, "alice")

	rr := ts.request(http.MethodGet, "/api/v1/players/me", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)

	var player response.Player
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&player))
	assert.Equal(t, "alice", player.Username)
}

func TestGetMeWithCookie(t *testing.T) {
	ts := newTestServer(t)
	token := createGuestPlayer(t, ts, "alice")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/players/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/players/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, apierr.CodeUnauthorized, decodeError(t, rr).Code)
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t)
	token := createGuestPlayer(t, ts, "alice")

	rr := ts.request(http.MethodPost, "/api/v1/players/logout", nil, token)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/players/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSubmitScore(t *testing.T) {
	ts := newTestServer(t)
	token := createGuestPlayer(t, ts, "alice")

	rr := ts.request(http.MethodPost, "/api/v1/scores", map[string]any{
		"total_shots":   54,
		"total_holes":   18,
		"score_by_hole": map[string]int{"1": 3, "2": 4},
	}, token)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp response.ScoreResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 54, resp.BestScore)
	assert.True(t, resp.BestScoreUpdated)
	assert.Equal(t, 18, resp.HolesPlayed)

	rr = ts.request(http.MethodPost, "/api/v1/scores", map[string]int{"total_shots": 60, "total_holes": 18}, token)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 54, resp.BestScore)
	assert.False(t, resp.BestScoreUpdated)
}

func TestSubmitScoreRequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/scores", map[string]int{"total_shots": 54, "total_holes": 18}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSubmitInvalidScore(t *testing.T) {
	ts := newTestServer(t)
	token := createGuestPlayer(t, ts, "alice")

	rr := ts.request(http.MethodPost, "/api/v1/scores", map[string]int{"total_shots": 0, "total_holes": 18}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidScore, decodeError(t, rr).Code)
}

func TestPlayerStats(t *testing.T) {
	ts := newTestServer(t)
	token := createGuestPlayer(t, ts, "alice")
	ts.request(http.MethodPost, "/api/v1/scores", map[string]int{"total_shots": 90, "total_holes": 18}, token)

	rr := ts.request(http.MethodGet, "/api/v1/players/alice/stats", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var stats model.PlayerStats
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&stats))
	assert.Equal(t, 18, stats.HolesPlayed)
	assert.Equal(t, 5.0, stats.AvgStrokesPerHole)
	assert.Equal(t, 0.9, stats.Handicap)
}

func TestPlayerStatsUnknown(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/players/nobody/stats", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodePlayerNotFound, decodeError(t, rr).Code)
}

func TestLeaderboard(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/leaderboard", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"leaders":[]}`, rr.Body.String())

	a := createGuestPlayer(t, ts, "A")
	b := createGuestPlayer(t, ts, "B")
	createGuestPlayer(t, ts, "C")
	ts.request(http.MethodPost, "/api/v1/scores", map[string]int{"total_shots": 60, "total_holes": 18}, a)
	ts.request(http.MethodPost, "/api/v1/scores", map[string]int{"total_shots": 52, "total_holes": 18}, b)

	rr = ts.request(http.MethodGet, "/api/v1/leaderboard", nil, "")
	assert.JSONEq(t, `{"leaders":[{"player":"B","score":52},{"player":"A","score":60}]}`, rr.Body.String())
}

func TestWebsocketRouteRejectsAnonymous(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/ws/lobby/", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func preflight(handler http.Handler, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/scores", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	// Browsers send header names lowercased
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	rr := preflight(ts.handler, "https://golf.example")
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSAllowList(t *testing.T) {
	app := factory.NewTestApp()
	handler := api.NewRouter(api.RouterConfig{
		Logger:         testutil.NopLogger(),
		AuthService:    app.AuthService,
		ScoreService:   app.ScoreService,
		Leaderboard:    app.Leaderboard,
		Lobby:          app.Lobby,
		Game:           app.Game,
		Lifecycle:      app.Lifecycle,
		AllowedOrigins: []string{"https://golf.example"},
	})

	rr := preflight(handler, "https://golf.example")
	assert.Equal(t, "https://golf.example", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))

	rr = preflight(handler, "https://evil.example")
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}
