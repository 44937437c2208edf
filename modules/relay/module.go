package relay

import (
	"context"
	"fmt"

	"github.com/example/socket-relay/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Module runs the relay hub and feeds it persisted messages from the event bus.
type Module struct {
	hub       *Hub
	logger    types.Logger
	cancelHub context.CancelFunc
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a relay module with its own registry.
func NewModule(logger types.Logger, queueSize int) *Module {
	return &Module{
		hub:    NewHub(NewEngine(NewRegistry()), logger, queueSize),
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "relay"
}

// Hub returns the relay hub for the transport layer.
func (m *Module) Hub() *Hub {
	return m.hub
}

// RegisterEventConsumers subscribes to persisted messages.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageCreatedV1, m.handleMessageCreated, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageCreated consumer: %w", err)
	}
	m.logger.Info("Registered event consumers", "events", "MessageCreated")
	return nil
}

func (m *Module) handleMessageCreated(_ context.Context, event events.MessageCreatedEvent, _ *mono.Msg) error {
	m.logger.Debug("Relaying persisted message",
		"messageID", event.Message.ID)
	if err := m.hub.Relay(event.Message); err != nil {
		m.logger.Error("Failed to relay message", "messageID", event.Message.ID, "error", err)
	}
	return nil
}

// Start launches the hub loop.
func (m *Module) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	m.logger.Info("Relay module started")
	return nil
}

// Stop shuts the hub down and closes every live connection.
func (m *Module) Stop(_ context.Context) error {
	connections := m.hub.ConnectionCount()
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	m.logger.Info("Relay module stopped", "connections", connections)
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.cancelHub != nil,
		Message: "operational",
		Details: map[string]any{
			"connections": m.hub.ConnectionCount(),
			"rooms":       m.hub.RoomCount(),
		},
	}
}
