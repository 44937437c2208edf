package chatstore

import (
	"time"

	domain "github.com/example/socket-relay/domain/chat"
)

// User is a registered account.
type User struct {
	ID           string    `gorm:"primarykey;size:21"`
	Name         string    `gorm:"size:100;not null"`
	Email        string    `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Pic          string    `gorm:"size:500"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for User model.
func (User) TableName() string {
	return "users"
}

// Chat is a direct or group conversation and its members.
type Chat struct {
	ID              string  `gorm:"primarykey;size:21"`
	ChatName        string  `gorm:"size:100"`
	IsGroupChat     bool    `gorm:"not null;default:false"`
	Users           []User  `gorm:"many2many:chat_users"`
	GroupAdminID    *string `gorm:"size:21"`
	GroupAdmin      *User
	LatestMessageID *string `gorm:"size:21"`
	CreatedAt       time.Time
	UpdatedAt       time.Time `gorm:"index"`
}

// TableName returns the table name for Chat model.
func (Chat) TableName() string {
	return "chats"
}

// Message is one persisted chat message.
type Message struct {
	ID        string `gorm:"primarykey;size:21"`
	SenderID  string `gorm:"size:21;not null;index"`
	Sender    User
	Content   string `gorm:"not null"`
	ChatID    string `gorm:"size:21;not null;index"`
	Chat      Chat
	CreatedAt time.Time `gorm:"index"`
}

// TableName returns the table name for Message model.
func (Message) TableName() string {
	return "messages"
}

func toDomainUser(u User) domain.User {
	return domain.User{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Pic:   u.Pic,
	}
}

// toDomainChat always attaches a non-nil member list.
func toDomainChat(c Chat) domain.Chat {
	out := domain.Chat{
		ID:          c.ID,
		ChatName:    c.ChatName,
		IsGroupChat: c.IsGroupChat,
		Users:       make([]domain.User, 0, len(c.Users)),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	for _, u := range c.Users {
		out.Users = append(out.Users, toDomainUser(u))
	}
	if c.GroupAdmin != nil {
		admin := toDomainUser(*c.GroupAdmin)
		out.GroupAdmin = &admin
	}
	if c.LatestMessageID != nil {
		out.LatestMessage = *c.LatestMessageID
	}
	return out
}

func toDomainMessage(m Message) domain.Message {
	sender := toDomainUser(m.Sender)
	chat := toDomainChat(m.Chat)
	return domain.Message{
		ID:        m.ID,
		Sender:    &sender,
		Content:   m.Content,
		Chat:      &chat,
		CreatedAt: m.CreatedAt,
	}
}
