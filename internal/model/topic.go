package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ConnectionID identifies one live websocket connection
type ConnectionID string

// Topic is a named broadcast group
type Topic string

const (
	TopicLobby       Topic = "lobby"
	TopicLeaderboard Topic = "leaderboard"

	holeTopicPrefix = "hole:"
	gameTopicPrefix = "game:"
)

// DefaultRoom is the room every gameplay connection joins
const DefaultRoom = "main"

// HoleTopic returns the topic for players currently on a hole
func HoleTopic(hole int) Topic {
	return Topic(fmt.Sprintf("%s%d", holeTopicPrefix, hole))
}

// GameTopic returns the room-wide topic used for chat
func GameTopic(room string) Topic {
	return Topic(gameTopicPrefix + room)
}

// Hole returns the hole number of a hole topic
func (t Topic) Hole() (int, bool) {
	rest, ok := strings.CutPrefix(string(t), holeTopicPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}
