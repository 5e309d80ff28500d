package factory

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/api"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/dependencies/mocks"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/model"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/services/auth"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/storage/memory"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/testutil"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/web/ws"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
	Memory    *memory.Storage
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	app := newWithDependencies(store, mockClock, auth.DefaultConfig(), ws.DefaultConfig(), model.DefaultRoom, testutil.NopLogger())

	return &TestApp{
		App:       app,
		MockClock: mockClock,
		Memory:    store,
	}
}

// Router builds the full HTTP handler over the test app
func (t *TestApp) Router(logger *slog.Logger) http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:       logger,
		AuthService:  t.AuthService,
		ScoreService: t.ScoreService,
		Leaderboard:  t.Leaderboard,
		Lobby:        t.Lobby,
		Game:         t.Game,
		Lifecycle:    t.Lifecycle,
	})
}
