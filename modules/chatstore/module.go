package chatstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/socket-relay/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Module persists users, chats and messages in SQLite and serves them over request/reply.
type Module struct {
	db       *gorm.DB
	service  *Service
	eventBus mono.EventBus
	logger   types.Logger
	dbPath   string
	dbDebug  bool
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a chatstore module backed by the SQLite file at dbPath.
func NewModule(logger types.Logger, dbPath string, dbDebug bool) *Module {
	return &Module{
		logger:  logger,
		dbPath:  dbPath,
		dbDebug: dbDebug,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "chatstore"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageCreatedV1.ToBase(),
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceCreateUser, json.Unmarshal, json.Marshal, m.createUser,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceCreateUser, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceFindUserByEmail, json.Unmarshal, json.Marshal, m.findUserByEmail,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceFindUserByEmail, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceSearchUsers, json.Unmarshal, json.Marshal, m.searchUsers,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceSearchUsers, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceAccessChat, json.Unmarshal, json.Marshal, m.accessChat,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceAccessChat, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceCreateGroup, json.Unmarshal, json.Marshal, m.createGroup,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceCreateGroup, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceListChats, json.Unmarshal, json.Marshal, m.listChats,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListChats, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceGetChat, json.Unmarshal, json.Marshal, m.getChat,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetChat, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceSendMessage, json.Unmarshal, json.Marshal, m.sendMessage,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceSendMessage, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceListMessages, json.Unmarshal, json.Marshal, m.listMessages,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListMessages, err)
	}

	m.logger.Info("Registered chatstore services", "count", 9)
	return nil
}

// Start opens the database and runs migrations.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Connecting to SQLite database", "path", m.dbPath)

	logLevel := logger.Silent
	if m.dbDebug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	return m.useDB(db)
}

func (m *Module) useDB(db *gorm.DB) error {
	repo := NewRepository(db)
	if err := repo.Migrate(); err != nil {
		return err
	}
	service, err := NewService(repo)
	if err != nil {
		return err
	}
	m.db = db
	m.service = service
	m.logger.Info("Chatstore module started")
	return nil
}

// Stop closes the database connection.
func (m *Module) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	m.logger.Info("Chatstore database closed")
	return nil
}

// Health pings the database.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get sql.DB: %v", err),
		}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.dbPath,
		},
	}
}

func (m *Module) createUser(ctx context.Context, req CreateUserRequest, _ *mono.Msg) (UserResponse, error) {
	user, err := m.service.CreateUser(ctx, req.Name, req.Email, req.PasswordHash, req.Pic)
	if err != nil {
		return UserResponse{}, err
	}
	m.logger.Info("User registered", "userID", user.ID)
	return UserResponse{User: user}, nil
}

func (m *Module) findUserByEmail(ctx context.Context, req FindUserByEmailRequest, _ *mono.Msg) (FindUserByEmailResponse, error) {
	user, hash, err := m.service.FindUserByEmail(ctx, req.Email)
	if err != nil {
		return FindUserByEmailResponse{}, err
	}
	return FindUserByEmailResponse{User: user, PasswordHash: hash}, nil
}

func (m *Module) searchUsers(ctx context.Context, req SearchUsersRequest, _ *mono.Msg) (UsersResponse, error) {
	users, err := m.service.SearchUsers(ctx, req.Query, req.RequesterID)
	if err != nil {
		return UsersResponse{}, err
	}
	return UsersResponse{Users: users}, nil
}

func (m *Module) accessChat(ctx context.Context, req AccessChatRequest, _ *mono.Msg) (ChatResponse, error) {
	chat, err := m.service.AccessChat(ctx, req.RequesterID, req.UserID)
	if err != nil {
		return ChatResponse{}, err
	}
	return ChatResponse{Chat: chat}, nil
}

func (m *Module) createGroup(ctx context.Context, req CreateGroupRequest, _ *mono.Msg) (ChatResponse, error) {
	chat, err := m.service.CreateGroup(ctx, req.AdminID, req.Name, req.UserIDs)
	if err != nil {
		return ChatResponse{}, err
	}
	m.logger.Info("Group chat created", "chatID", chat.ID, "members", len(chat.Users))
	return ChatResponse{Chat: chat}, nil
}

func (m *Module) listChats(ctx context.Context, req ListChatsRequest, _ *mono.Msg) (ChatsResponse, error) {
	chats, err := m.service.ListChats(ctx, req.UserID)
	if err != nil {
		return ChatsResponse{}, err
	}
	return ChatsResponse{Chats: chats}, nil
}

func (m *Module) getChat(ctx context.Context, req GetChatRequest, _ *mono.Msg) (ChatResponse, error) {
	chat, err := m.service.GetChat(ctx, req.ChatID, req.RequesterID)
	if err != nil {
		return ChatResponse{}, err
	}
	return ChatResponse{Chat: chat}, nil
}

// sendMessage persists the message and announces it to the relay.
func (m *Module) sendMessage(ctx context.Context, req SendMessageRequest, _ *mono.Msg) (MessageResponse, error) {
	msg, err := m.service.SendMessage(ctx, req.SenderID, req.ChatID, req.Content)
	if err != nil {
		return MessageResponse{}, err
	}

	event := events.MessageCreatedEvent{Message: msg}
	if err := events.MessageCreatedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish MessageCreated event", "messageID", msg.ID, "error", err)
	}

	m.logger.Debug("Message stored", "messageID", msg.ID, "chatID", req.ChatID)
	return MessageResponse{Message: msg}, nil
}

func (m *Module) listMessages(ctx context.Context, req ListMessagesRequest, _ *mono.Msg) (MessagesResponse, error) {
	msgs, err := m.service.ListMessages(ctx, req.ChatID, req.RequesterID)
	if err != nil {
		return MessagesResponse{}, err
	}
	return MessagesResponse{Messages: msgs}, nil
}
