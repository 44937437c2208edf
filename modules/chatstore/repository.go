package chatstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// memberOf selects the ids of chats a user belongs to.
const memberOf = "SELECT chat_id FROM chat_users WHERE user_id = ?"

// Repository provides access to user, chat and message storage.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates or updates the schema.
func (r *Repository) Migrate() error {
	if err := r.db.AutoMigrate(&User{}, &Chat{}, &Message{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// CreateUser saves a new user. Emails are unique.
func (r *Repository) CreateUser(ctx context.Context, user *User) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return ErrUserExists
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByID retrieves a user by id.
func (r *Repository) FindUserByID(ctx context.Context, id string) (*User, error) {
	return r.findUser(ctx, "id = ?", id)
}

// FindUserByEmail retrieves a user by email.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.findUser(ctx, "email = ?", email)
}

func (r *Repository) findUser(ctx context.Context, query string, arg string) (*User, error) {
	var user User
	if err := r.db.WithContext(ctx).First(&user, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// CountUsers returns how many of ids exist.
func (r *Repository) CountUsers(ctx context.Context, ids []string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&User{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// SearchUsers finds users whose name or email contains query, excluding excludeID.
// An empty query matches everyone.
func (r *Repository) SearchUsers(ctx context.Context, query, excludeID string) ([]User, error) {
	tx := r.db.WithContext(ctx).Where("id <> ?", excludeID)
	if query != "" {
		like := "%" + query + "%"
		tx = tx.Where("name LIKE ? OR email LIKE ?", like, like)
	}

	var users []User
	if err := tx.Order("name asc").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

// CreateChat saves a chat and its membership rows without touching the user records.
func (r *Repository) CreateChat(ctx context.Context, chat *Chat) error {
	if err := r.db.WithContext(ctx).Omit("Users.*", "GroupAdmin").Create(chat).Error; err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	return nil
}

// FindChatByID retrieves a chat with its members and admin.
func (r *Repository) FindChatByID(ctx context.Context, id string) (*Chat, error) {
	var chat Chat
	if err := r.withChatAssociations(ctx).First(&chat, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find chat: %w", err)
	}
	return &chat, nil
}

// FindDirectChat returns the one-to-one chat between two users.
func (r *Repository) FindDirectChat(ctx context.Context, userA, userB string) (*Chat, error) {
	var chat Chat
	err := r.withChatAssociations(ctx).
		Where("is_group_chat = ?", false).
		Where("id IN ("+memberOf+")", userA).
		Where("id IN ("+memberOf+")", userB).
		First(&chat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find direct chat: %w", err)
	}
	return &chat, nil
}

// ListChatsForUser returns every chat userID belongs to, most recently active first.
func (r *Repository) ListChatsForUser(ctx context.Context, userID string) ([]Chat, error) {
	var chats []Chat
	err := r.withChatAssociations(ctx).
		Where("id IN ("+memberOf+")", userID).
		Order("updated_at desc").
		Find(&chats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return chats, nil
}

// CreateMessage saves msg and marks it as the chat's latest message in one transaction.
func (r *Repository) CreateMessage(ctx context.Context, msg *Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(msg).Error; err != nil {
			return err
		}
		result := tx.Model(&Chat{}).Where("id = ?", msg.ChatID).Updates(map[string]any{
			"latest_message_id": msg.ID,
			"updated_at":        time.Now(),
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// FindMessageByID retrieves a message with its sender and chat members.
func (r *Repository) FindMessageByID(ctx context.Context, id string) (*Message, error) {
	var msg Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("Chat.Users").
		Preload("Chat.GroupAdmin").
		First(&msg, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find message: %w", err)
	}
	return &msg, nil
}

// ListMessages returns the messages of chatID, oldest first.
func (r *Repository) ListMessages(ctx context.Context, chatID string) ([]Message, error) {
	var msgs []Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("Chat.Users").
		Where("chat_id = ?", chatID).
		Order("created_at asc").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

func (r *Repository) withChatAssociations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Users").Preload("GroupAdmin")
}
