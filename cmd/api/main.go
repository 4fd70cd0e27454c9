package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"quillchat/internal/adapter/api"
	"quillchat/internal/adapter/api/handler"
	apimiddleware "quillchat/internal/adapter/api/middleware"
	"quillchat/internal/adapter/api/router"
	"quillchat/internal/adapter/repository"
	"quillchat/internal/domain/entity"
	"quillchat/internal/domain/state"
	"quillchat/internal/infrastructure/firebase"
	"quillchat/internal/infrastructure/rabbitmq"
	"quillchat/internal/infrastructure/ratelimit"
	"quillchat/internal/infrastructure/storage"
	"quillchat/internal/infrastructure/websocket"
	"quillchat/internal/usecase"
	"quillchat/pkg/config"
	"quillchat/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.SetDebug(cfg.Environment == "development")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opt, err := firebase.CredentialsOption(cfg)
	if err != nil {
		log.Fatalf("Failed to load credentials: %v", err)
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opt)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opt)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	var attachments usecase.AttachmentStore
	if cfg.StorageBucket != "" {
		bucket, err := storage.NewAttachmentBucket(ctx, cfg.StorageBucket, opt)
		if err != nil {
			log.Fatalf("Failed to initialize Cloud Storage: %v", err)
		}
		defer bucket.Close()
		attachments = bucket
	} else {
		log.Printf("STORAGE_BUCKET not set, attachments are disabled")
	}

	conversationRepo := repository.NewFirestoreConversationRepository(firestoreClient)
	messageRepo := repository.NewFirestoreMessageRepository(firestoreClient)
	userRepo := repository.NewFirestoreUserRepository(firestoreClient)
	notificationRepo := repository.NewFirestoreNotificationRepository(firestoreClient)

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	if reason := rabbitmq.PublisherNoopReason(publisher); reason != "" {
		log.Printf("Notification publisher disabled: %s", reason)
	}

	firebaseAuthClient := firebase.NewFirebaseAuthClient(authClient)

	rateLimiter := ratelimit.NewRateLimiter(cfg.Chat.SendRatePerMinute)
	rateLimiter.StartCleanupRoutine(ctx)

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	newSession := func(identity entity.Identity) *usecase.ChatUseCase {
		session := usecase.NewChatUseCase(identity, cfg.Chat,
			conversationRepo, messageRepo, userRepo, notificationRepo,
			publisher, attachments, rateLimiter)
		session.Subscribe(func(st state.State) {
			wsManager.Push(identity.UID, websocket.MessageTypeState, st)
		})
		return session
	}

	sessions := usecase.NewSessionManager(ctx, firebaseAuthClient, newSession, cfg.Chat.SessionIdleTimeout)
	sessions.StartSweeper(time.Minute)
	defer sessions.Shutdown()

	handler.Setup(ctx, sessions, wsManager, firebaseAuthClient, rabbitmq.PublisherMode(publisher))

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(firebaseAuthClient)

	router.Setup(e, authMiddleware, rateLimiter)
	router.SetupDevRouter(e, cfg.Environment)

	go func() {
		log.Printf("Starting server on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
