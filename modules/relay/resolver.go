package relay

import (
	"errors"
	"fmt"

	domain "github.com/example/socket-relay/domain/chat"
)

var (
	// ErrMalformedEvent is returned when an inbound payload lacks required fields.
	ErrMalformedEvent = errors.New("malformed event")
	// ErrUnknownEvent is returned for event names with no handler.
	ErrUnknownEvent = errors.New("unknown event")
)

// ResolveTargets returns the users that should receive msg: the chat's members
// minus the sender. It fails with ErrMalformedEvent when the sender or the member
// list is not attached.
func ResolveTargets(msg domain.Message) ([]string, error) {
	if msg.Chat == nil {
		return nil, fmt.Errorf("%w: message has no chat", ErrMalformedEvent)
	}
	if msg.Chat.Users == nil {
		return nil, fmt.Errorf("%w: chat.users not defined", ErrMalformedEvent)
	}

	if msg.Sender == nil || msg.Sender.ID == "" {
		return nil, fmt.Errorf("%w: message has no sender", ErrMalformedEvent)
	}
	senderID := msg.Sender.ID

	seen := make(map[string]struct{}, len(msg.Chat.Users))
	targets := make([]string, 0, len(msg.Chat.Users))
	for _, u := range msg.Chat.Users {
		if u.ID == "" || u.ID == senderID {
			continue
		}
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}
		targets = append(targets, u.ID)
	}
	return targets, nil
}
