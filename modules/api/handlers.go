package api

import (
	"strings"

	domain "github.com/example/socket-relay/domain/chat"
	"github.com/example/socket-relay/modules/chatstore"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

const (
	maxMessageLength = 4096
	maxNameLength    = 100
	minPasswordLen   = 6
	maxPasswordLen   = 72
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	app.Get("/health", m.healthHandler)

	// Socket endpoint
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(m.handleSocket))

	api := app.Group("/api")
	requireAuth := AuthMiddleware(m.tokens)

	user := api.Group("/user")
	user.Post("/", m.registerUser)
	user.Post("/login", m.login)
	user.Get("/", requireAuth, m.searchUsers)

	chat := api.Group("/chat", requireAuth)
	chat.Post("/", m.accessChat)
	chat.Get("/", m.listChats)
	chat.Post("/group", m.createGroup)

	message := api.Group("/message", requireAuth)
	message.Post("/", m.sendMessage)
	message.Get("/:chatId", m.listMessages)
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":      "api",
			"connections": m.hub.ConnectionCount(),
			"rooms":       m.hub.RoomCount(),
		},
	})
}

// registerUser handles POST /api/user.
func (m *APIModule) registerUser(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return badRequest(c, "Please enter all the fields")
	}
	if len(req.Name) > maxNameLength {
		return badRequest(c, "Name too long (max 100 characters)")
	}
	if len(req.Password) < minPasswordLen || len(req.Password) > maxPasswordLen {
		return badRequest(c, "Password must be between 6 and 72 characters")
	}

	hash, err := m.passwords.Hash(req.Password)
	if err != nil {
		m.logger.Error("Failed to hash password", "error", err)
		return internalError(c)
	}

	user, err := m.store.CreateUser(c.UserContext(), req.Name, req.Email, hash, req.Pic)
	if err != nil {
		return m.handleStoreError(c, err)
	}

	return m.respondWithToken(c, fiber.StatusCreated, user)
}

// login handles POST /api/user/login.
func (m *APIModule) login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "Email and password are required")
	}

	user, hash, err := m.store.FindUserByEmail(c.UserContext(), req.Email)
	if err != nil && !isStoreError(err, chatstore.ErrNotFound) {
		return m.handleStoreError(c, err)
	}
	if err != nil || !m.passwords.Verify(req.Password, hash) {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid email or password",
		})
	}

	return m.respondWithToken(c, fiber.StatusOK, user)
}

func (m *APIModule) respondWithToken(c *fiber.Ctx, status int, user domain.User) error {
	token, err := m.tokens.Issue(user.ID)
	if err != nil {
		m.logger.Error("Failed to issue token", "userID", user.ID, "error", err)
		return internalError(c)
	}
	return c.Status(status).JSON(AuthResponse{User: user, Token: token})
}

// searchUsers handles GET /api/user?search=.
func (m *APIModule) searchUsers(c *fiber.Ctx) error {
	users, err := m.store.SearchUsers(c.UserContext(), c.Query("search"), currentUserID(c))
	if err != nil {
		return m.handleStoreError(c, err)
	}
	return c.JSON(users)
}

// accessChat handles POST /api/chat.
func (m *APIModule) accessChat(c *fiber.Ctx) error {
	var req AccessChatRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.UserID == "" {
		return badRequest(c, "userId param not sent with request")
	}

	chat, err := m.store.AccessChat(c.UserContext(), currentUserID(c), req.UserID)
	if err != nil {
		return m.handleStoreError(c, err)
	}
	return c.JSON(chat)
}

// listChats handles GET /api/chat.
func (m *APIModule) listChats(c *fiber.Ctx) error {
	chats, err := m.store.ListChats(c.UserContext(), currentUserID(c))
	if err != nil {
		return m.handleStoreError(c, err)
	}
	return c.JSON(chats)
}

// createGroup handles POST /api/chat/group.
func (m *APIModule) createGroup(c *fiber.Ctx) error {
	var req CreateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Name == "" || len(req.Users) == 0 {
		return badRequest(c, "Please fill all the fields")
	}
	if len(req.Name) > maxNameLength {
		return badRequest(c, "Group name too long (max 100 characters)")
	}

	chat, err := m.store.CreateGroup(c.UserContext(), currentUserID(c), req.Name, req.Users)
	if err != nil {
		return m.handleStoreError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(chat)
}

// sendMessage handles POST /api/message.
// The stored message reaches live sockets through the MessageCreated event.
func (m *APIModule) sendMessage(c *fiber.Ctx) error {
	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Content == "" || req.ChatID == "" {
		return badRequest(c, "Invalid data passed into request")
	}
	if len(req.Content) > maxMessageLength {
		return badRequest(c, "Message too long (max 4096 characters)")
	}

	msg, err := m.store.SendMessage(c.UserContext(), currentUserID(c), req.ChatID, req.Content)
	if err != nil {
		return m.handleStoreError(c, err)
	}
	return c.JSON(msg)
}

// listMessages handles GET /api/message/:chatId.
func (m *APIModule) listMessages(c *fiber.Ctx) error {
	msgs, err := m.store.ListMessages(c.UserContext(), c.Params("chatId"), currentUserID(c))
	if err != nil {
		return m.handleStoreError(c, err)
	}
	return c.JSON(msgs)
}

// isStoreError matches errors that crossed the request/reply boundary, where only the text survives.
func isStoreError(err, target error) bool {
	return strings.Contains(err.Error(), target.Error())
}

// handleStoreError maps chat store failures to HTTP responses without exposing internals.
func (m *APIModule) handleStoreError(c *fiber.Ctx, err error) error {
	switch {
	case isStoreError(err, chatstore.ErrUserExists):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: "User already exists",
		})
	case isStoreError(err, chatstore.ErrNotMember):
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Error:   "forbidden",
			Message: "You are not a member of this chat",
		})
	case isStoreError(err, chatstore.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Resource not found",
		})
	case isStoreError(err, chatstore.ErrInvalidInput):
		msg := err.Error()
		if i := strings.LastIndex(msg, chatstore.ErrInvalidInput.Error()+": "); i >= 0 {
			msg = msg[i+len(chatstore.ErrInvalidInput.Error())+2:]
		}
		return badRequest(c, msg)
	default:
		m.logger.Error("Chat store error", "path", c.Path(), "error", err)
		return internalError(c)
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "bad_request",
		Message: message,
	})
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
