package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the feed stream
const (
	EventTicketChanged   = "ticket_changed"
	EventReviewChanged   = "review_changed"
	EventRelationChanged = "relation_changed"
)

// Stream names
const (
	StreamFeed = "stream:feed"
)

// Consumer group name for feed workers
const (
	ConsumerGroupFeed = "feed_workers"
)

// FeedEvent tells the workers whose cached feeds went stale.
// All feed-related events share this structure.
type FeedEvent struct {
	Type      string `json:"type"`      // EventTicketChanged, EventReviewChanged, EventRelationChanged
	Timestamp int64  `json:"timestamp"` // Unix timestamp when event occurred

	// ActorID is the user whose action produced the event.
	ActorID int64 `json:"actor_id"`

	// Relation events
	TargetID int64 `json:"target_id,omitempty"`

	// Ticket and review events
	TicketID      int64 `json:"ticket_id,omitempty"`
	TicketOwnerID int64 `json:"ticket_owner_id,omitempty"`

	// ReviewAuthorIDs lists who reviewed a ticket that changed or was
	// deleted; their feeds embed the ticket.
	ReviewAuthorIDs []int64 `json:"review_author_ids,omitempty"`
}

// NewTicketChangedEvent covers create, edit and delete of a ticket.
func NewTicketChangedEvent(ticketID, ownerID int64, reviewAuthorIDs []int64) FeedEvent {
	return FeedEvent{
		Type:            EventTicketChanged,
		Timestamp:       time.Now().Unix(),
		ActorID:         ownerID,
		TicketID:        ticketID,
		TicketOwnerID:   ownerID,
		ReviewAuthorIDs: reviewAuthorIDs,
	}
}

// NewReviewChangedEvent covers create, edit and delete of a review.
func NewReviewChangedEvent(ticketID, authorID, ticketOwnerID int64) FeedEvent {
	return FeedEvent{
		Type:          EventReviewChanged,
		Timestamp:     time.Now().Unix(),
		ActorID:       authorID,
		TicketID:      ticketID,
		TicketOwnerID: ticketOwnerID,
	}
}

// NewRelationChangedEvent covers follow, unfollow, block and unblock.
func NewRelationChangedEvent(actorID, targetID int64) FeedEvent {
	return FeedEvent{
		Type:      EventRelationChanged,
		Timestamp: time.Now().Unix(),
		ActorID:   actorID,
		TargetID:  targetID,
	}
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so we serialize to JSON in a "data" field.
func (e FeedEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseFeedEvent parses a FeedEvent from Redis stream message values.
func ParseFeedEvent(values map[string]interface{}) (FeedEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return FeedEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event FeedEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return FeedEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
