package mocks

import (
	"slices"
	"sort"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/broadcast"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/model"
)

// TopicsOf returns the topics connID is subscribed to, sorted
func TopicsOf(b *broadcast.Broadcaster, connID model.ConnectionID) []model.Topic {
	var topics []model.Topic
	for topic, members := range b.Snapshot() {
		if slices.Contains(members, connID) {
			topics = append(topics, topic)
		}
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i] < topics[j] })
	return topics
}
