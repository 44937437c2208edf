package chat

import "time"

// User is the public view of an account as it travels over the wire.
type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Pic   string `json:"pic,omitempty"`
}

// Chat is a direct or group conversation.
// A nil Users slice means the member list was not attached to the payload.
type Chat struct {
	ID            string    `json:"_id"`
	ChatName      string    `json:"chatName,omitempty"`
	IsGroupChat   bool      `json:"isGroupChat"`
	Users         []User    `json:"users"`
	GroupAdmin    *User     `json:"groupAdmin,omitempty"`
	LatestMessage string    `json:"latestMessage,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitzero"`
	UpdatedAt     time.Time `json:"updatedAt,omitzero"`
}

// HasMember reports whether userID is one of the chat's users.
func (c *Chat) HasMember(userID string) bool {
	for _, u := range c.Users {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// Message is a persisted chat message with its sender and chat populated.
type Message struct {
	ID        string    `json:"_id"`
	Sender    *User     `json:"sender"`
	Content   string    `json:"content"`
	Chat      *Chat     `json:"chat"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}
