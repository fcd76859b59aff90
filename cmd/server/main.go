// cmd/server/main.go
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/mailtrace/mailtrace-backend/internal/capture"
	"github.com/mailtrace/mailtrace-backend/internal/config"
	"github.com/mailtrace/mailtrace-backend/internal/controller"
	"github.com/mailtrace/mailtrace-backend/internal/db"
	"github.com/mailtrace/mailtrace-backend/internal/handler"
	"github.com/mailtrace/mailtrace-backend/internal/provider"
	"github.com/mailtrace/mailtrace-backend/internal/queue"
	"github.com/mailtrace/mailtrace-backend/internal/repository"
	"github.com/mailtrace/mailtrace-backend/internal/service"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	// Init DB
	db.Init()

	emailRepo := &repository.EmailRepository{DB: db.DB}
	attachmentRepo := &repository.AttachmentRepository{DB: db.DB}
	eventRepo := &repository.EventRepository{DB: db.DB}

	captureService := &service.CaptureService{
		EmailRepo:      emailRepo,
		AttachmentRepo: attachmentRepo,
		Attachments:    cfg.Attachments,
		Environment:    cfg.Environment,
		ProcessType:    "web",
	}
	hook := capture.NewHook(captureService)

	// Resends go through the broker when it is reachable; otherwise they are
	// handled in-process.
	var q queue.Queue
	if amqpQueue, err := queue.DialAMQP(cfg.Queue.URL); err == nil {
		q = amqpQueue
		log.Println("✅ Connected to message broker")
	} else {
		log.Println("⚠️ broker unavailable, using in-process queue:", err)
		memQueue := queue.NewInMemoryQueue()
		queue.StartResendSubscriber(memQueue, cfg.Queue.ResendQueue, emailRepo, hook.Wrap(queue.LogSender))
		q = memQueue
	}

	emailService := &service.EmailService{
		EmailRepo:      emailRepo,
		AttachmentRepo: attachmentRepo,
		EventRepo:      eventRepo,
		Queue:          q,
		ResendTopic:    cfg.Queue.ResendQueue,
	}

	registry := provider.DefaultRegistry(cfg)
	processor := &service.WebhookProcessor{
		EmailRepo: emailRepo,
		EventRepo: eventRepo,
	}

	emailController := &controller.EmailController{
		EmailService: emailService,
	}
	webhookHandler := handler.NewWebhookHandler(registry, processor)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	r.Use(capture.Middleware)

	// Email routes
	r.Get("/emails", emailController.ListEmails)
	r.Get("/emails/{id}", emailController.GetEmail)
	r.Get("/emails/{id}/attachments/{attachment_id}", emailController.GetAttachment)
	r.Post("/emails/{id}/archive", emailController.ArchiveEmail)
	r.Post("/emails/{id}/unarchive", emailController.UnarchiveEmail)
	r.Post("/emails/{id}/resend", emailController.ResendEmail)
	r.Delete("/emails/{id}", emailController.DeleteEmail)

	// Provider webhooks
	r.Post("/webhooks/{provider}", webhookHandler.HandleWebhook)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Println("🚀 Server running on", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "config.yaml"
}
