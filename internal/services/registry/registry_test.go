package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/dependencies/mocks"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/model"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/storage/memory"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/testutil"
)

type RegistrySuite struct {
	suite.Suite
	storage  *memory.Storage
	clock    *mocks.MockClock
	registry *Registry
	ctx      context.Context
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.registry = New(s.storage, s.clock, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *RegistrySuite) player(id, username string) *model.Player {
	return &model.Player{ID: model.PlayerID(id), Username: username}
}

// Register tests

func (s *RegistrySuite) TestRegisterCreatesDefaults() {
	state, err := s.registry.Register(s.ctx, "c1", s.player("p1", "alice"))
	s.Require().NoError(err)

	s.Equal("alice", state.Username)
	s.False(state.Ready)
	s.Equal(model.ColorBlue, state.Color)
	s.Equal(1, state.CurrentHole)
	s.Zero(state.Score)
	s.True(state.Connected)
}

func (s *RegistrySuite) TestRegisterPersistsState() {
	_, _ = s.registry.Register(s.ctx, "c1", s.player("p1", "alice"))

	stored, err := s.storage.GetSessionState(s.ctx, "p1")
	s.Require().NoError(err)
	s.True(stored.Connected)
	s.Equal(model.ColorBlue, stored.Color)
}

func (s *RegistrySuite) TestRegisterLoadsExistingStateFromStore() {
	_ = s.storage.SaveSessionState(s.ctx, &model.PlayerSessionState{
		PlayerID:    "p1",
		Username:    "alice",
		Color:       model.ColorRed,
		CurrentHole: 4,
		BestScore:   54,
	})

	state, err := s.registry.Register(s.ctx, "c1", s.player("p1", "alice"))
	s.Require().NoError(err)

	s.Equal(model.ColorRed, state.Color)
	s.Equal(4, state.CurrentHole)
	s.Equal(54, state.BestScore)
	s.True(state.Connected)
}

func (s *RegistrySuite) TestReconnectKeepsState() {
	_, _ = s.registry.Register(s.ctx, "c1", s.player("p1", "alice"))
	_, _ = s.registry.Mutate(s.ctx, "p1", func(st *model.PlayerSessionState) error {
		st.Color = model.ColorGreen
		st.BestScore = 50
		return nil
	})
	_, _ = s.registry.Unregister(s.ctx, "c1")

	state, err := s.registry.Register(s.ctx, "c2", s.player("p1", "alice"))
	s.Require().NoError(err)
	s.Equal(model.ColorGreen, state.Color)
	s.Equal(50, state.BestScore)
	s.True(state.Connected)
}

func (s *RegistrySuite) TestRegisterSameConnectionTwiceIsIdempotent() {
	_, _ = s.registry.Register(s.ctx, "c1", s.player("p1", "alice"))
	_, _ = s.registry.Register(s.ctx, "c1", s.player("p1", "alice"))

	s.Equal(1, s.registry.ConnectionCount())

	state, err := s.registry.Unregister(s.ctx, "c1")
	s.Require().NoError(err)
	s.False(state.Connected)
}

// Unregister tests

func (s *RegistrySuite) TestUnregisterMarksDisconnected() {
	_, _ = s.registry.Register(s.ctx, "c1", s.player("p1", "alice"))

	state, err := s.registry.Unregister(s.ctx, "c1")
	s.Require().NoError(err)
	s.False(state.Connected)

	stored, _ := s.storage.GetSessionState(s.ctx, "p1")
	s.False(stored.Connected)
}

func (s *RegistrySuite) TestUnregisterKeepsStateInRegistry() {
	_, _ = s.registry.Register(s.ctx, "c1", s.player("p1", "alice"))
	_, _ = s.registry.Unregister(s.ctx, "c1")

	state, ok := s.registry.Get("p1")
	s.True(ok)
	s.Equal("alice", state.Username)
}

func (s *RegistrySuite) TestUnregisterUnknownConnectionIsNotFound() {
	_, err := s.registry.Unregister(s.ctx, "missing")
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *RegistrySuite) TestUnregisterTwiceIsNotFound() {
	_, _ = s.registry.Register(s.ctx, "c1", s.player("p1", "alice"))
	_, _ = s.registry.Unregister(s.ctx, "c1")

	_, err := s.registry.Unregister(s.ctx, "c1")
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *RegistrySuite) TestConnectedTracksLiveConnections() {
	p := s.player("p1", "alice")
	_, _ = s.registry.Register(s.ctx, "c1", p)
	_, _ = s.registry.Register(s.ctx, "c2", p)

	state, _ := s.registry.Unregister(s.ctx, "c1")
	s.True(state.Connected, "second connection still live")

	_, _ = s.registry.Register(s.ctx, "c3", p)
	state, _ = s.registry.Unregister(s.ctx, "c2")
	s.True(state.Connected)

	state, _ = s.registry.Unregister(s.ctx, "c3")
	s.False(state.Connected)
}

// Mutate tests

func (s *RegistrySuite) TestMutateEvenTogglesRestoreReadiness() {
	_, _ = s.registry.Register(s.ctx, "c1", s.player("p1", "alice"))

	toggle := func(st *model.PlayerSessionState) error {
		st.Ready = !st.Ready
		return nil
	}

	for i := 0; i < 4; i++ {
		_, err := s.registry.Mutate(s.ctx, "p1", toggle)
		s.Require().NoError(err)
	}

	state, _ := s.registry.Get("p1")
	s.False(state.Ready)
}

func (s *RegistrySuite) TestMutatePersists() {
	_, _ = s.registry.Register(s.ctx, "c1", s.player("p1", "alice"))
	_, _ = s.registry.Mutate(s.ctx, "p1", func(st *model.PlayerSessionState) error {
		st.Color = model.ColorYellow
		return nil
	})

	stored, err := s.storage.GetSessionState(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(model.ColorYellow, stored.Color)
}

func (s *RegistrySuite) TestMutateUnknownPlayerIsNotFound() {
	_, err := s.registry.Mutate(s.ctx, "ghost", func(st *model.PlayerSessionState) error { return nil })
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *RegistrySuite) TestMutateLoadsPlayerFromStore() {
	_ = s.storage.SaveSessionState(s.ctx, &model.PlayerSessionState{PlayerID: "p1", Username: "alice", CurrentHole: 1})

	state, err := s.registry.Mutate(s.ctx, "p1", func(st *model.PlayerSessionState) error {
		st.Score = 12
		return nil
	})
	s.Require().NoError(err)
	s.Equal(12, state.Score)
	s.False(state.Connected)
}

func (s *RegistrySuite) TestMutateErrorDiscardsChange() {
	_, _ = s.registry.Register(s.ctx, "c1", s.player("p1", "alice"))
	boom := errors.New("boom")

	_, err := s.registry.Mutate(s.ctx, "p1", func(st *model.PlayerSessionState) error {
		st.Color = model.ColorRed
		return boom
	})
	s.ErrorIs(err, boom)

	state, _ := s.registry.Get("p1")
	s.Equal(model.ColorBlue, state.Color)
}

func (s *RegistrySuite) TestMutateCannotChangeConnected() {
	_, _ = s.registry.Register(s.ctx, "c1", s.player("p1", "alice"))

	state, err := s.registry.Mutate(s.ctx, "p1", func(st *model.PlayerSessionState) error {
		st.Connected = false
		return nil
	})
	s.Require().NoError(err)
	s.True(state.Connected)
}

func (s *RegistrySuite) TestMutateRejectsInvalidHole() {
	_, _ = s.registry.Register(s.ctx, "c1", s.player("p1", "alice"))

	_, err := s.registry.Mutate(s.ctx, "p1", func(st *model.PlayerSessionState) error {
		st.CurrentHole = 0
		return nil
	})
	s.ErrorIs(err, model.ErrInvalidHole)
}

func (s *RegistrySuite) TestConcurrentMutationsSerializePerPlayer() {
	_, _ = s.registry.Register(s.ctx, "c1", s.player("p1", "alice"))
	_, _ = s.registry.Register(s.ctx, "c2", s.player("p2", "bob"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		for _, id := range []model.PlayerID{"p1", "p2"} {
			wg.Add(1)
			go func(id model.PlayerID) {
				defer wg.Done()
				_, _ = s.registry.Mutate(s.ctx, id, func(st *model.PlayerSessionState) error {
					st.Score++
					return nil
				})
			}(id)
		}
	}
	wg.Wait()

	a, _ := s.registry.Get("p1")
	b, _ := s.registry.Get("p2")
	s.Equal(50, a.Score)
	s.Equal(50, b.Score)
}

// Ensure tests

func (s *RegistrySuite) TestEnsureCreatesWithoutConnecting() {
	state, err := s.registry.Ensure(s.ctx, s.player("p1", "alice"))
	s.Require().NoError(err)
	s.False(state.Connected)

	_, err = s.storage.GetSessionState(s.ctx, "p1")
	s.NoError(err)
}

// Lookup tests

func (s *RegistrySuite) TestConnectionCount() {
	_, _ = s.registry.Register(s.ctx, "c1", s.player("p1", "alice"))
	_, _ = s.registry.Register(s.ctx, "c2", s.player("p1", "alice"))
	_, _ = s.registry.Register(s.ctx, "c3", s.player("p2", "bob"))

	s.Equal(3, s.registry.ConnectionCount())
}

// SnapshotAll tests

func (s *RegistrySuite) TestSnapshotAllOrdersByFirstSight() {
	_, _ = s.registry.Register(s.ctx, "c1", s.player("p2", "bob"))
	_, _ = s.registry.Register(s.ctx, "c2", s.player("p1", "alice"))
	_, _ = s.registry.Register(s.ctx, "c3", s.player("p3", "carol"))

	states := s.registry.SnapshotAll(nil)
	s.Require().Len(states, 3)
	s.Equal("bob", states[0].Username)
	s.Equal("alice", states[1].Username)
	s.Equal("carol", states[2].Username)
}

func (s *RegistrySuite) TestSnapshotAllConnectedOnly() {
	_, _ = s.registry.Register(s.ctx, "c1", s.player("p1", "alice"))
	_, _ = s.registry.Register(s.ctx, "c2", s.player("p2", "bob"))
	_, _ = s.registry.Unregister(s.ctx, "c1")

	states := s.registry.SnapshotAll(ConnectedOnly)
	s.Require().Len(states, 1)
	s.Equal("bob", states[0].Username)
}

func (s *RegistrySuite) TestSnapshotIsACopy() {
	_, _ = s.registry.Register(s.ctx, "c1", s.player("p1", "alice"))

	states := s.registry.SnapshotAll(nil)
	states[0].ScoreByHole[1] = 99
	states[0].Ready = true

	state, _ := s.registry.Get("p1")
	s.False(state.Ready)
	s.NotContains(state.ScoreByHole, 1)
}

// Load tests

func (s *RegistrySuite) TestLoadWarmsFromStoreAsDisconnected() {
	_ = s.storage.SaveSessionState(s.ctx, &model.PlayerSessionState{
		PlayerID: "p1", Username: "alice", CurrentHole: 1, BestScore: 54, Connected: true,
	})

	s.Require().NoError(s.registry.Load(s.ctx))

	states := s.registry.SnapshotAll(WithBestScore)
	s.Require().Len(states, 1)
	s.False(states[0].Connected)
	s.Equal(54, states[0].BestScore)
}
