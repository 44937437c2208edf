package chatstore

import (
	"context"
	"testing"

	domain "github.com/example/socket-relay/domain/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(NewRepository(setupTestDB(t)))
	require.NoError(t, err)
	return svc
}

func createUsers(t *testing.T, svc *Service, names ...string) []domain.User {
	t.Helper()
	out := make([]domain.User, 0, len(names))
	for _, name := range names {
		u, err := svc.CreateUser(context.Background(), name, name+"@example.com", "hash-"+name, "")
		require.NoError(t, err)
		out = append(out, u)
	}
	return out
}

func TestService_CreateUser(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, " Ann ", "Ann@Example.com", "hash", "")
	require.NoError(t, err)
	assert.Len(t, u.ID, 21)
	assert.Equal(t, "Ann", u.Name)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.Equal(t, DefaultPic, u.Pic)

	found, hash, err := svc.FindUserByEmail(ctx, "ANN@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	assert.Equal(t, "hash", hash)

	_, err = svc.CreateUser(ctx, "Ann again", "ann@example.com", "hash", "")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestService_CreateUser_Invalid(t *testing.T) {
	svc := setupService(t)

	tests := []struct {
		name, userName, email, hash string
	}{
		{name: "missing name", email: "a@example.com", hash: "h"},
		{name: "missing email", userName: "A", hash: "h"},
		{name: "missing hash", userName: "A", email: "a@example.com"},
		{name: "bad email", userName: "A", email: "not-an-email", hash: "h"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateUser(context.Background(), tt.userName, tt.email, tt.hash, "")
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestService_AccessChat(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	users := createUsers(t, svc, "ann", "bob")
	ann, bob := users[0], users[1]

	chat, err := svc.AccessChat(ctx, ann.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, chat.IsGroupChat)
	assert.Equal(t, "sender", chat.ChatName)
	assert.True(t, chat.HasMember(ann.ID))
	assert.True(t, chat.HasMember(bob.ID))

	again, err := svc.AccessChat(ctx, bob.ID, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, again.ID)

	_, err = svc.AccessChat(ctx, ann.ID, ann.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.AccessChat(ctx, ann.ID, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.AccessChat(ctx, ann.ID, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_CreateGroup(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	users := createUsers(t, svc, "ann", "bob", "cid")
	ann, bob, cid := users[0], users[1], users[2]

	group, err := svc.CreateGroup(ctx, ann.ID, "Team", []string{bob.ID, cid.ID, bob.ID, ann.ID})
	require.NoError(t, err)
	assert.True(t, group.IsGroupChat)
	assert.Equal(t, "Team", group.ChatName)
	assert.Len(t, group.Users, 3)
	require.NotNil(t, group.GroupAdmin)
	assert.Equal(t, ann.ID, group.GroupAdmin.ID)

	tests := []struct {
		name    string
		group   string
		members []string
		wantErr error
	}{
		{name: "missing name", group: " ", members: []string{bob.ID, cid.ID}, wantErr: ErrInvalidInput},
		{name: "too few users", group: "Pair", members: []string{bob.ID}, wantErr: ErrInvalidInput},
		{name: "only self", group: "Solo", members: []string{ann.ID, ann.ID}, wantErr: ErrInvalidInput},
		{name: "unknown user", group: "Ghosts", members: []string{bob.ID, "ghost"}, wantErr: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateGroup(ctx, ann.ID, tt.group, tt.members)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_SendMessage(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	users := createUsers(t, svc, "ann", "bob", "cid")
	ann, bob, cid := users[0], users[1], users[2]

	chat, err := svc.AccessChat(ctx, ann.ID, bob.ID)
	require.NoError(t, err)

	msg, err := svc.SendMessage(ctx, ann.ID, chat.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)
	require.NotNil(t, msg.Sender)
	assert.Equal(t, ann.ID, msg.Sender.ID)
	require.NotNil(t, msg.Chat)
	assert.Len(t, msg.Chat.Users, 2)
	assert.Equal(t, msg.ID, msg.Chat.LatestMessage)

	_, err = svc.SendMessage(ctx, cid.ID, chat.ID, "intruder")
	assert.ErrorIs(t, err, ErrNotMember)
	_, err = svc.SendMessage(ctx, ann.ID, chat.ID, "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.SendMessage(ctx, ann.ID, "missing", "hi")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.SendMessage(ctx, bob.ID, chat.ID, "hi back")
	require.NoError(t, err)

	msgs, err := svc.ListMessages(ctx, chat.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "hi back", msgs[1].Content)

	_, err = svc.ListMessages(ctx, chat.ID, cid.ID)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestService_ListChats(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	users := createUsers(t, svc, "ann", "bob", "cid")
	ann, bob, cid := users[0], users[1], users[2]

	direct, err := svc.AccessChat(ctx, ann.ID, bob.ID)
	require.NoError(t, err)
	group, err := svc.CreateGroup(ctx, cid.ID, "Team", []string{ann.ID, bob.ID})
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, ann.ID, direct.ID, "latest")
	require.NoError(t, err)

	chats, err := svc.ListChats(ctx, ann.ID)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, direct.ID, chats[0].ID)
	assert.Equal(t, group.ID, chats[1].ID)

	chats, err = svc.ListChats(ctx, cid.ID)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, group.ID, chats[0].ID)
}

func TestService_SearchUsers(t *testing.T) {
	svc := setupService(t)
	users := createUsers(t, svc, "ann", "annie", "bob")

	found, err := svc.SearchUsers(context.Background(), "ann", users[0].ID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, users[1].ID, found[0].ID)
}
