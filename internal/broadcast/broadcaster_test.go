package broadcast_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/broadcast"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/dependencies/mocks"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/model"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/testutil"
)

type BroadcasterSuite struct {
	suite.Suite
	b *broadcast.Broadcaster
}

func TestBroadcasterSuite(t *testing.T) {
	suite.Run(t, new(BroadcasterSuite))
}

func (s *BroadcasterSuite) SetupTest() {
	s.b = broadcast.New(testutil.NopLogger())
}

func msg(payload string) broadcast.Message {
	return broadcast.Message{Payload: []byte(payload)}
}

// Subscribe tests

func (s *BroadcasterSuite) TestSubscribeIsIdempotent() {
	sink := mocks.NewSink("c1")

	s.b.Subscribe(sink, model.TopicLobby)
	s.b.Subscribe(sink, model.TopicLobby)

	s.Equal([]model.ConnectionID{"c1"}, s.b.Snapshot()[model.TopicLobby])
	s.Equal(1, s.b.Publish(model.TopicLobby, msg(`{}`)))
	s.Equal(1, sink.Count())
}

func (s *BroadcasterSuite) TestUnsubscribeIsIdempotent() {
	sink := mocks.NewSink("c1")
	s.b.Subscribe(sink, model.TopicLobby)

	s.b.Unsubscribe("c1", model.TopicLobby)
	s.b.Unsubscribe("c1", model.TopicLobby)

	s.Empty(s.b.Snapshot()[model.TopicLobby])
	s.Empty(s.b.Snapshot())
}

func (s *BroadcasterSuite) TestUnsubscribeAllReturnsTopics() {
	sink := mocks.NewSink("c1")
	s.b.Subscribe(sink, model.TopicLobby)
	s.b.Subscribe(sink, model.HoleTopic(2))

	left := s.b.UnsubscribeAll("c1")

	s.Equal([]model.Topic{"hole:2", "lobby"}, left)
	s.Empty(mocks.TopicsOf(s.b, "c1"))
}

func (s *BroadcasterSuite) TestUnsubscribeAllUnknownConnection() {
	s.Empty(s.b.UnsubscribeAll("nobody"))
}

// Move tests

func (s *BroadcasterSuite) TestMoveSwapsTopics() {
	sink := mocks.NewSink("c1")
	s.b.Subscribe(sink, model.HoleTopic(1))

	s.b.Move(sink, model.HoleTopic(1), model.HoleTopic(3))

	s.Equal([]model.Topic{"hole:3"}, mocks.TopicsOf(s.b, "c1"))
	s.Zero(s.b.Publish(model.HoleTopic(1), msg(`{}`)))
	s.Equal(1, s.b.Publish(model.HoleTopic(3), msg(`{}`)))
}

func (s *BroadcasterSuite) TestMoveFromEmptyOnlyJoins() {
	sink := mocks.NewSink("c1")
	s.b.Subscribe(sink, model.TopicLobby)

	s.b.Move(sink, "", model.HoleTopic(1))

	s.Equal([]model.Topic{"hole:1", "lobby"}, mocks.TopicsOf(s.b, "c1"))
}

func (s *BroadcasterSuite) TestMoveToSameTopicKeepsMembership() {
	sink := mocks.NewSink("c1")
	s.b.Subscribe(sink, model.HoleTopic(1))

	s.b.Move(sink, model.HoleTopic(1), model.HoleTopic(1))

	s.Equal([]model.ConnectionID{"c1"}, s.b.Snapshot()[model.HoleTopic(1)])
}

// Publish tests

func (s *BroadcasterSuite) TestPublishReachesOnlyMembers() {
	a := mocks.NewSink("a")
	b := mocks.NewSink("b")
	c := mocks.NewSink("c")
	s.b.Subscribe(a, model.HoleTopic(1))
	s.b.Subscribe(b, model.HoleTopic(1))
	s.b.Subscribe(c, model.HoleTopic(2))

	n := s.b.Publish(model.HoleTopic(1), msg(`{"type":"x"}`))

	s.Equal(2, n)
	s.Equal(1, a.Count())
	s.Equal(1, b.Count())
	s.Zero(c.Count())
}

func (s *BroadcasterSuite) TestPublishToEmptyTopic() {
	s.Zero(s.b.Publish("nothing", msg(`{}`)))
}

func (s *BroadcasterSuite) TestPublishIsolatesFailedRecipient() {
	good := mocks.NewSink("good")
	bad := mocks.NewSink("bad")
	bad.SetFailing(true)
	s.b.Subscribe(good, model.TopicLobby)
	s.b.Subscribe(bad, model.TopicLobby)
	s.b.Subscribe(bad, model.TopicLeaderboard)

	n := s.b.Publish(model.TopicLobby, msg(`{}`))

	s.Equal(1, n)
	s.Equal(1, good.Count())
	s.Equal([]model.ConnectionID{"good"}, s.b.Snapshot()[model.TopicLobby])
	s.Equal([]model.Topic{"leaderboard"}, mocks.TopicsOf(s.b, "bad"), "only the failing topic is dropped")
}

func (s *BroadcasterSuite) TestPublishPreservesOrderPerConnection() {
	sink := mocks.NewSink("c1")
	s.b.Subscribe(sink, model.TopicLobby)

	for _, p := range []string{"1", "2", "3", "4"} {
		s.b.Publish(model.TopicLobby, msg(p))
	}

	var got []string
	for _, m := range sink.Messages() {
		got = append(got, string(m.Payload))
	}
	s.Equal([]string{"1", "2", "3", "4"}, got)
}

func (s *BroadcasterSuite) TestPublishJSONTagsHole() {
	sink := mocks.NewSink("c1")
	s.b.Subscribe(sink, model.HoleTopic(2))

	_, err := s.b.PublishJSON(model.HoleTopic(2), 2, model.PlayerLeftEvent{Type: model.MsgPlayerLeft, Username: "alice"})
	s.Require().NoError(err)

	msgs := sink.Messages()
	s.Require().Len(msgs, 1)
	s.Equal(2, msgs[0].Hole)
	s.JSONEq(`{"type":"player_left","username":"alice"}`, string(msgs[0].Payload))
}

func (s *BroadcasterSuite) TestConcurrentPublishAndSubscribe() {
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			sink := mocks.NewSink(model.ConnectionID(fmt.Sprintf("c%d", i)))
			s.b.Subscribe(sink, model.TopicLobby)
			s.b.UnsubscribeAll(sink.ID())
		}(i)
		go func() {
			defer wg.Done()
			s.b.Publish(model.TopicLobby, msg(`{}`))
		}()
	}
	wg.Wait()

	s.Empty(s.b.Snapshot()[model.TopicLobby])
}

// Snapshot tests

func (s *BroadcasterSuite) TestSnapshotListsNonEmptyTopics() {
	a := mocks.NewSink("a")
	b := mocks.NewSink("b")
	s.b.Subscribe(b, model.HoleTopic(1))
	s.b.Subscribe(a, model.HoleTopic(1))
	s.b.Subscribe(a, model.TopicLobby)
	s.b.Subscribe(b, model.TopicLeaderboard)
	s.b.Unsubscribe("b", model.TopicLeaderboard)

	s.Equal(map[model.Topic][]model.ConnectionID{
		"hole:1": {"a", "b"},
		"lobby":  {"a"},
	}, s.b.Snapshot())
}

// Filtered tests

func (s *BroadcasterSuite) TestFilteredSinkDropsRejected() {
	inner := mocks.NewSink("c1")
	onHoleTwo := broadcast.Filtered(inner, func(m broadcast.Message) bool {
		return m.Hole == 0 || m.Hole == 2
	})
	s.b.Subscribe(onHoleTwo, model.HoleTopic(1))

	s.Equal(1, s.b.Publish(model.HoleTopic(1), broadcast.Message{Hole: 1, Payload: []byte(`{}`)}))
	s.Equal(1, s.b.Publish(model.HoleTopic(1), broadcast.Message{Hole: 2, Payload: []byte(`{}`)}))
	s.Equal(1, s.b.Publish(model.HoleTopic(1), broadcast.Message{Payload: []byte(`{}`)}))

	s.Equal(2, inner.Count())
	s.Equal(model.ConnectionID("c1"), onHoleTwo.ID())
}
