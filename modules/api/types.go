package api

import domain "github.com/example/socket-relay/domain/chat"

// RegisterRequest is the body of POST /api/user.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Pic      string `json:"pic"`
}

// LoginRequest is the body of POST /api/user/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is the user profile plus a bearer token.
type AuthResponse struct {
	domain.User
	Token string `json:"token"`
}

// AccessChatRequest is the body of POST /api/chat.
type AccessChatRequest struct {
	UserID string `json:"userId"`
}

// CreateGroupRequest is the body of POST /api/chat/group.
type CreateGroupRequest struct {
	Name  string   `json:"name"`
	Users []string `json:"users"`
}

// SendMessageRequest is the body of POST /api/message.
type SendMessageRequest struct {
	Content string `json:"content"`
	ChatID  string `json:"chatId"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}
