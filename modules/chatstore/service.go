package chatstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/example/socket-relay/domain/chat"
	nanoid "github.com/jaevor/go-nanoid"
)

// DefaultPic is assigned to users registered without a picture.
const DefaultPic = "https://icon-library.com/images/anonymous-avatar-icon/anonymous-avatar-icon-25.jpg"

// directChatName is the stored name of one-to-one chats.
const directChatName = "sender"

// minGroupInvitees is the number of users, besides the creator, a group needs.
const minGroupInvitees = 2

// Service implements the chat store operations on top of the repository.
type Service struct {
	repo  *Repository
	newID func() string
}

// NewService creates a service that assigns 21-character nanoid record ids.
func NewService(repo *Repository) (*Service, error) {
	gen, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("failed to create id generator: %w", err)
	}
	return &Service{repo: repo, newID: gen}, nil
}

// CreateUser registers a user. passwordHash must already be hashed.
func (s *Service) CreateUser(ctx context.Context, name, email, passwordHash, pic string) (domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || passwordHash == "" {
		return domain.User{}, fmt.Errorf("%w: name, email and password are required", ErrInvalidInput)
	}
	if !strings.Contains(email, "@") {
		return domain.User{}, fmt.Errorf("%w: invalid email format", ErrInvalidInput)
	}
	if pic == "" {
		pic = DefaultPic
	}

	user := &User{
		ID:           s.newID(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Pic:          pic,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return toDomainUser(*user), nil
}

// FindUserByEmail returns the user and their stored password hash.
func (s *Service) FindUserByEmail(ctx context.Context, email string) (domain.User, string, error) {
	user, err := s.repo.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return domain.User{}, "", err
	}
	return toDomainUser(*user), user.PasswordHash, nil
}

// SearchUsers lists users matching query by name or email, never including requesterID.
func (s *Service) SearchUsers(ctx context.Context, query, requesterID string) ([]domain.User, error) {
	users, err := s.repo.SearchUsers(ctx, strings.TrimSpace(query), requesterID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		out = append(out, toDomainUser(u))
	}
	return out, nil
}

// AccessChat returns the direct chat between requesterID and otherID, creating it on first use.
func (s *Service) AccessChat(ctx context.Context, requesterID, otherID string) (domain.Chat, error) {
	if otherID == "" {
		return domain.Chat{}, fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}
	if otherID == requesterID {
		return domain.Chat{}, fmt.Errorf("%w: cannot open a chat with yourself", ErrInvalidInput)
	}

	chat, err := s.repo.FindDirectChat(ctx, requesterID, otherID)
	if err == nil {
		return toDomainChat(*chat), nil
	}
	if !errors.Is(err, ErrNotFound) {
		return domain.Chat{}, err
	}

	if err := s.requireUsers(ctx, []string{requesterID, otherID}); err != nil {
		return domain.Chat{}, err
	}
	created := &Chat{
		ID:          s.newID(),
		ChatName:    directChatName,
		IsGroupChat: false,
		Users:       []User{{ID: requesterID}, {ID: otherID}},
	}
	if err := s.repo.CreateChat(ctx, created); err != nil {
		return domain.Chat{}, err
	}
	return s.GetChat(ctx, created.ID, requesterID)
}

// CreateGroup creates a group chat administered by adminID with the given invitees.
func (s *Service) CreateGroup(ctx context.Context, adminID, name string, userIDs []string) (domain.Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Chat{}, fmt.Errorf("%w: group name is required", ErrInvalidInput)
	}

	members := []string{adminID}
	seen := map[string]struct{}{adminID: {}}
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}
	if len(members)-1 < minGroupInvitees {
		return domain.Chat{}, fmt.Errorf("%w: more than 2 users are required to form a group chat", ErrInvalidInput)
	}
	if err := s.requireUsers(ctx, members); err != nil {
		return domain.Chat{}, err
	}

	users := make([]User, 0, len(members))
	for _, id := range members {
		users = append(users, User{ID: id})
	}
	chat := &Chat{
		ID:           s.newID(),
		ChatName:     name,
		IsGroupChat:  true,
		Users:        users,
		GroupAdminID: &adminID,
	}
	if err := s.repo.CreateChat(ctx, chat); err != nil {
		return domain.Chat{}, err
	}
	return s.GetChat(ctx, chat.ID, adminID)
}

// ListChats returns the chats userID belongs to, most recently active first.
func (s *Service) ListChats(ctx context.Context, userID string) ([]domain.Chat, error) {
	chats, err := s.repo.ListChatsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Chat, 0, len(chats))
	for _, c := range chats {
		out = append(out, toDomainChat(c))
	}
	return out, nil
}

// GetChat returns chatID with its members if requesterID is one of them.
func (s *Service) GetChat(ctx context.Context, chatID, requesterID string) (domain.Chat, error) {
	chat, err := s.repo.FindChatByID(ctx, chatID)
	if err != nil {
		return domain.Chat{}, err
	}
	out := toDomainChat(*chat)
	if !out.HasMember(requesterID) {
		return domain.Chat{}, ErrNotMember
	}
	return out, nil
}

// SendMessage persists a message from senderID into chatID and returns it
// with the sender and the chat members populated.
func (s *Service) SendMessage(ctx context.Context, senderID, chatID, content string) (domain.Message, error) {
	if chatID == "" || strings.TrimSpace(content) == "" {
		return domain.Message{}, fmt.Errorf("%w: chatId and content are required", ErrInvalidInput)
	}
	if _, err := s.GetChat(ctx, chatID, senderID); err != nil {
		return domain.Message{}, err
	}

	msg := &Message{
		ID:       s.newID(),
		SenderID: senderID,
		Content:  content,
		ChatID:   chatID,
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return domain.Message{}, err
	}

	stored, err := s.repo.FindMessageByID(ctx, msg.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return toDomainMessage(*stored), nil
}

// ListMessages returns the messages of chatID, oldest first, if requesterID is a member.
func (s *Service) ListMessages(ctx context.Context, chatID, requesterID string) ([]domain.Message, error) {
	if _, err := s.GetChat(ctx, chatID, requesterID); err != nil {
		return nil, err
	}
	msgs, err := s.repo.ListMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toDomainMessage(m))
	}
	return out, nil
}

func (s *Service) requireUsers(ctx context.Context, ids []string) error {
	count, err := s.repo.CountUsers(ctx, ids)
	if err != nil {
		return err
	}
	if count != int64(len(ids)) {
		return fmt.Errorf("%w: user", ErrNotFound)
	}
	return nil
}
