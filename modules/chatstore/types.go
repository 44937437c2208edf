package chatstore

import domain "github.com/example/socket-relay/domain/chat"

// Service names registered by the chatstore module.
const (
	ServiceCreateUser      = "create-user"
	ServiceFindUserByEmail = "find-user-by-email"
	ServiceSearchUsers     = "search-users"
	ServiceAccessChat      = "access-chat"
	ServiceCreateGroup     = "create-group"
	ServiceListChats       = "list-chats"
	ServiceGetChat         = "get-chat"
	ServiceSendMessage     = "send-message"
	ServiceListMessages    = "list-messages"
)

// CreateUserRequest registers a user with an already hashed password.
type CreateUserRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	Pic          string `json:"pic,omitempty"`
}

// UserResponse carries one user.
type UserResponse struct {
	User domain.User `json:"user"`
}

// FindUserByEmailRequest looks a user up for login.
type FindUserByEmailRequest struct {
	Email string `json:"email"`
}

// FindUserByEmailResponse includes the stored hash so the caller can verify a password.
type FindUserByEmailResponse struct {
	User         domain.User `json:"user"`
	PasswordHash string      `json:"password_hash"`
}

// SearchUsersRequest searches users by name or email.
type SearchUsersRequest struct {
	Query       string `json:"query"`
	RequesterID string `json:"requester_id"`
}

// UsersResponse carries a list of users.
type UsersResponse struct {
	Users []domain.User `json:"users"`
}

// AccessChatRequest opens the direct chat between the requester and UserID.
type AccessChatRequest struct {
	RequesterID string `json:"requester_id"`
	UserID      string `json:"user_id"`
}

// CreateGroupRequest creates a group chat.
type CreateGroupRequest struct {
	AdminID string   `json:"admin_id"`
	Name    string   `json:"name"`
	UserIDs []string `json:"user_ids"`
}

// GetChatRequest fetches a chat the requester belongs to.
type GetChatRequest struct {
	ChatID      string `json:"chat_id"`
	RequesterID string `json:"requester_id"`
}

// ListChatsRequest lists the chats of a user.
type ListChatsRequest struct {
	UserID string `json:"user_id"`
}

// ChatResponse carries one chat.
type ChatResponse struct {
	Chat domain.Chat `json:"chat"`
}

// ChatsResponse carries a list of chats.
type ChatsResponse struct {
	Chats []domain.Chat `json:"chats"`
}

// SendMessageRequest posts a message to a chat.
type SendMessageRequest struct {
	SenderID string `json:"sender_id"`
	ChatID   string `json:"chat_id"`
	Content  string `json:"content"`
}

// MessageResponse carries one message.
type MessageResponse struct {
	Message domain.Message `json:"message"`
}

// ListMessagesRequest lists the messages of a chat.
type ListMessagesRequest struct {
	ChatID      string `json:"chat_id"`
	RequesterID string `json:"requester_id"`
}

// MessagesResponse carries a list of messages.
type MessagesResponse struct {
	Messages []domain.Message `json:"messages"`
}
