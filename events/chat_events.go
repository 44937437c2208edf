package events

import (
	domain "github.com/example/socket-relay/domain/chat"
	"github.com/go-monolith/mono/pkg/helper"
)

// MessageCreatedEvent is emitted once a message has been persisted.
// Message carries the sender and the chat with its member list.
type MessageCreatedEvent struct {
	Message domain.Message `json:"message"`
}

// MessageCreatedV1 is the typed event definition for persisted messages.
// Subject: events.chatstore.v1.message-created
var MessageCreatedV1 = helper.EventDefinition[MessageCreatedEvent](
	"chatstore",
	"MessageCreated",
	"v1",
)
