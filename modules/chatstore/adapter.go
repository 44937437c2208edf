package chatstore

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/socket-relay/domain/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// ChatStorePort defines the chat store operations available to other modules.
type ChatStorePort interface {
	CreateUser(ctx context.Context, name, email, passwordHash, pic string) (domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (domain.User, string, error)
	SearchUsers(ctx context.Context, query, requesterID string) ([]domain.User, error)
	AccessChat(ctx context.Context, requesterID, userID string) (domain.Chat, error)
	CreateGroup(ctx context.Context, adminID, name string, userIDs []string) (domain.Chat, error)
	ListChats(ctx context.Context, userID string) ([]domain.Chat, error)
	GetChat(ctx context.Context, chatID, requesterID string) (domain.Chat, error)
	SendMessage(ctx context.Context, senderID, chatID, content string) (domain.Message, error)
	ListMessages(ctx context.Context, chatID, requesterID string) ([]domain.Message, error)
}

// ChatStoreAdapter implements ChatStorePort using the service container.
type ChatStoreAdapter struct {
	container mono.ServiceContainer
}

// NewChatStoreAdapter creates a new ChatStoreAdapter.
func NewChatStoreAdapter(container mono.ServiceContainer) ChatStorePort {
	if container == nil {
		panic("chatstore: ServiceContainer is nil")
	}
	return &ChatStoreAdapter{container: container}
}

func call[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req *Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s: %w", service, err)
	}
	return nil
}

// CreateUser registers a user.
func (a *ChatStoreAdapter) CreateUser(ctx context.Context, name, email, passwordHash, pic string) (domain.User, error) {
	req := CreateUserRequest{Name: name, Email: email, PasswordHash: passwordHash, Pic: pic}
	var resp UserResponse
	if err := call(ctx, a.container, ServiceCreateUser, &req, &resp); err != nil {
		return domain.User{}, err
	}
	return resp.User, nil
}

// FindUserByEmail returns a user and their password hash.
func (a *ChatStoreAdapter) FindUserByEmail(ctx context.Context, email string) (domain.User, string, error) {
	req := FindUserByEmailRequest{Email: email}
	var resp FindUserByEmailResponse
	if err := call(ctx, a.container, ServiceFindUserByEmail, &req, &resp); err != nil {
		return domain.User{}, "", err
	}
	return resp.User, resp.PasswordHash, nil
}

// SearchUsers finds users by name or email.
func (a *ChatStoreAdapter) SearchUsers(ctx context.Context, query, requesterID string) ([]domain.User, error) {
	req := SearchUsersRequest{Query: query, RequesterID: requesterID}
	var resp UsersResponse
	if err := call(ctx, a.container, ServiceSearchUsers, &req, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// AccessChat opens or creates a direct chat.
func (a *ChatStoreAdapter) AccessChat(ctx context.Context, requesterID, userID string) (domain.Chat, error) {
	req := AccessChatRequest{RequesterID: requesterID, UserID: userID}
	var resp ChatResponse
	if err := call(ctx, a.container, ServiceAccessChat, &req, &resp); err != nil {
		return domain.Chat{}, err
	}
	return resp.Chat, nil
}

// CreateGroup creates a group chat.
func (a *ChatStoreAdapter) CreateGroup(ctx context.Context, adminID, name string, userIDs []string) (domain.Chat, error) {
	req := CreateGroupRequest{AdminID: adminID, Name: name, UserIDs: userIDs}
	var resp ChatResponse
	if err := call(ctx, a.container, ServiceCreateGroup, &req, &resp); err != nil {
		return domain.Chat{}, err
	}
	return resp.Chat, nil
}

// ListChats lists the chats of a user.
func (a *ChatStoreAdapter) ListChats(ctx context.Context, userID string) ([]domain.Chat, error) {
	req := ListChatsRequest{UserID: userID}
	var resp ChatsResponse
	if err := call(ctx, a.container, ServiceListChats, &req, &resp); err != nil {
		return nil, err
	}
	return resp.Chats, nil
}

// GetChat fetches a chat the requester belongs to.
func (a *ChatStoreAdapter) GetChat(ctx context.Context, chatID, requesterID string) (domain.Chat, error) {
	req := GetChatRequest{ChatID: chatID, RequesterID: requesterID}
	var resp ChatResponse
	if err := call(ctx, a.container, ServiceGetChat, &req, &resp); err != nil {
		return domain.Chat{}, err
	}
	return resp.Chat, nil
}

// SendMessage posts a message.
func (a *ChatStoreAdapter) SendMessage(ctx context.Context, senderID, chatID, content string) (domain.Message, error) {
	req := SendMessageRequest{SenderID: senderID, ChatID: chatID, Content: content}
	var resp MessageResponse
	if err := call(ctx, a.container, ServiceSendMessage, &req, &resp); err != nil {
		return domain.Message{}, err
	}
	return resp.Message, nil
}

// ListMessages lists the messages of a chat.
func (a *ChatStoreAdapter) ListMessages(ctx context.Context, chatID, requesterID string) ([]domain.Message, error) {
	req := ListMessagesRequest{ChatID: chatID, RequesterID: requesterID}
	var resp MessagesResponse
	if err := call(ctx, a.container, ServiceListMessages, &req, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}
