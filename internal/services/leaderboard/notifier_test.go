package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/broadcast"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/channel"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/dependencies/mocks"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/model"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/services/registry"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/storage/memory"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/testutil"
)

type NotifierSuite struct {
	suite.Suite
	registry    *registry.Registry
	broadcaster *broadcast.Broadcaster
	notifier    *Notifier
	ctx         context.Context
}

func TestNotifierSuite(t *testing.T) {
	suite.Run(t, new(NotifierSuite))
}

func (s *NotifierSuite) SetupTest() {
	logger := testutil.NopLogger()
	clock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.registry = registry.New(memory.New(), clock, logger)
	s.broadcaster = broadcast.New(logger)
	s.notifier = New(s.registry, s.broadcaster, logger)
	s.ctx = context.Background()
}

func (s *NotifierSuite) withBest(playerID, username string, best int) {
	_, err := s.registry.Ensure(s.ctx, &model.Player{ID: model.PlayerID(playerID), Username: username})
	s.Require().NoError(err)
	_, err = s.registry.Mutate(s.ctx, model.PlayerID(playerID), func(st *model.PlayerSessionState) error {
		st.BestScore = best
		return nil
	})
	s.Require().NoError(err)
}

func (s *NotifierSuite) open(connID string) (*channel.Conn, *mocks.Sink) {
	sink := mocks.NewSink(model.ConnectionID(connID))
	conn := &channel.Conn{ID: model.ConnectionID(connID), Player: model.Player{ID: "viewer"}, Sink: sink}
	s.Require().NoError(s.notifier.Open(s.ctx, conn))
	return conn, sink
}

// Leaders tests

func (s *NotifierSuite) TestLeadersSortedAscendingWithoutZeroes() {
	s.withBest("p1", "carol", 60)
	s.withBest("p2", "alice", 54)
	s.withBest("p3", "bob", 0)
	s.withBest("p4", "dave", 58)

	s.Equal([]model.LeaderboardEntry{
		{Player: "alice", Score: 54},
		{Player: "dave", Score: 58},
		{Player: "carol", Score: 60},
	}, s.notifier.Leaders())
}

func (s *NotifierSuite) TestLeadersTiesInFirstSeenOrder() {
	s.withBest("p1", "zoe", 54)
	s.withBest("p2", "alice", 54)

	s.Equal([]model.LeaderboardEntry{
		{Player: "zoe", Score: 54},
		{Player: "alice", Score: 54},
	}, s.notifier.Leaders())
}

func (s *NotifierSuite) TestLeadersEmpty() {
	leaders := s.notifier.Leaders()
	s.NotNil(leaders)
	s.Empty(leaders)
}

func (s *NotifierSuite) TestLeadersIncludeDisconnectedPlayers() {
	_, _ = s.registry.Register(s.ctx, "c1", &model.Player{ID: "p1", Username: "alice"})
	_, _ = s.registry.Mutate(s.ctx, "p1", func(st *model.PlayerSessionState) error {
		st.BestScore = 50
		return nil
	})
	_, _ = s.registry.Unregister(s.ctx, "c1")

	s.Equal([]model.LeaderboardEntry{{Player: "alice", Score: 50}}, s.notifier.Leaders())
}

// OnBestScoreUpdated tests

func (s *NotifierSuite) TestOnBestScoreUpdatedPublishesToSubscribers() {
	_, sink1 := s.open("c1")
	_, sink2 := s.open("c2")
	s.withBest("p1", "A", 54)

	s.notifier.OnBestScoreUpdated(s.ctx, "p1")

	for _, sink := range []*mocks.Sink{sink1, sink2} {
		msgs := sink.Messages()
		s.Require().Len(msgs, 1)
		s.JSONEq(`{"type":"leaderboard","leaders":[{"player":"A","score":54}]}`, string(msgs[0].Payload))
	}
}

func (s *NotifierSuite) TestOnBestScoreUpdatedWithNoSubscribers() {
	s.withBest("p1", "A", 54)
	s.NotPanics(func() { s.notifier.OnBestScoreUpdated(s.ctx, "p1") })
}

// Channel tests

func (s *NotifierSuite) TestRequestLeaderboardRepliesOnlyToRequester() {
	c1, sink1 := s.open("c1")
	_, sink2 := s.open("c2")
	s.withBest("p1", "A", 54)

	msg, err := model.ParseInbound([]byte(`{"type":"request_leaderboard"}`))
	s.Require().NoError(err)
	s.Require().NoError(s.notifier.Handle(s.ctx, c1, msg))

	var ev model.LeaderboardEvent
	s.Require().True(sink1.Last(model.MsgLeaderboard, &ev))
	s.Equal([]model.LeaderboardEntry{{Player: "A", Score: 54}}, ev.Leaders)
	s.Zero(sink2.Count())
}

func (s *NotifierSuite) TestEmptyLeaderboardEncodesAsArray() {
	c1, sink := s.open("c1")

	msg, _ := model.ParseInbound([]byte(`{"type":"request_leaderboard"}`))
	s.Require().NoError(s.notifier.Handle(s.ctx, c1, msg))

	s.JSONEq(`{"type":"leaderboard","leaders":[]}`, string(sink.Messages()[0].Payload))
}

func (s *NotifierSuite) TestUnknownMessage() {
	c1, _ := s.open("c1")
	msg, _ := model.ParseInbound([]byte(`{"type":"move","x":1,"y":1}`))
	s.ErrorIs(s.notifier.Handle(s.ctx, c1, msg), model.ErrUnknownMessage)
}

func (s *NotifierSuite) TestCloseLeavesNoState() {
	c1, _ := s.open("c1")
	s.broadcaster.UnsubscribeAll(c1.ID)
	s.notifier.Close(s.ctx, c1)

	s.Empty(s.broadcaster.Snapshot()[model.TopicLeaderboard])
}
