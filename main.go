package main

import (
	"context"
	"log"
	"os"

	"github.com/example/socket-relay/auth"
	"github.com/example/socket-relay/config"
	"github.com/example/socket-relay/modules/api"
	"github.com/example/socket-relay/modules/chatstore"
	"github.com/example/socket-relay/modules/relay"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

func main() {
	log.Println("=== Socket Relay - Fiber + EventBus Pubsub ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel := mono.LogLevelInfo
	if cfg.ErrorsOnly() {
		logLevel = mono.LogLevelError
	}

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(logLevel),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	chatstoreModule := chatstore.NewModule(app.Logger(), cfg.DBPath, cfg.DBDebug)
	relayModule := relay.NewModule(app.Logger(), cfg.SendBuffer)
	apiModule := api.NewModule(
		app.Logger(),
		api.Settings{
			Port:        cfg.Port,
			CORSOrigins: cfg.CORSOrigins(),
			PingTimeout: cfg.PingTimeout,
			SendBuffer:  cfg.SendBuffer,
		},
		auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		auth.NewPasswordHasher(auth.DefaultBcryptCost),
	)

	// The hub is not exposed via ServiceContainer
	apiModule.SetHub(relayModule.Hub())

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - chatstore: users, chats and messages (ServiceProviderModule + EventEmitterModule)
	// - relay: rooms and live delivery (EventConsumerModule)
	// - api: Fiber REST + socket server, depends on chatstore
	app.Register(chatstoreModule)
	app.Register(relayModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg.Port)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(port string) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health                 - Health check")
	log.Println("  POST   /api/user               - Register")
	log.Println("  POST   /api/user/login         - Log in")
	log.Println("  GET    /api/user?search=       - Search users")
	log.Println("  POST   /api/chat               - Open or create a direct chat")
	log.Println("  GET    /api/chat               - List my chats")
	log.Println("  POST   /api/chat/group         - Create a group chat")
	log.Println("  POST   /api/message            - Send a message")
	log.Println("  GET    /api/message/:chatId    - Message history")
	log.Println("")
	log.Printf("Socket Endpoint (ws://localhost:%s/ws):", port)
	log.Println("  Frames: {\"event\": <name>, \"data\": <payload>}")
	log.Println("  Client events: setup, join chat, typing, stop typing, new message")
	log.Println("  Server events: connected, typing, stop typing, message received")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
