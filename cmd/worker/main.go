// cmd/worker/main.go
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/mailtrace/mailtrace-backend/internal/capture"
	"github.com/mailtrace/mailtrace-backend/internal/config"
	"github.com/mailtrace/mailtrace-backend/internal/db"
	"github.com/mailtrace/mailtrace-backend/internal/queue"
	"github.com/mailtrace/mailtrace-backend/internal/repository"
	"github.com/mailtrace/mailtrace-backend/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	db.Init()

	emailRepo := &repository.EmailRepository{DB: db.DB}
	attachmentRepo := &repository.AttachmentRepository{DB: db.DB}

	captureService := &service.CaptureService{
		EmailRepo:      emailRepo,
		AttachmentRepo: attachmentRepo,
		Attachments:    cfg.Attachments,
		Environment:    cfg.Environment,
		ProcessType:    "worker",
	}
	hook := capture.NewHook(captureService)

	q, err := queue.DialAMQP(cfg.Queue.URL)
	if err != nil {
		log.Fatal("failed to connect to message broker: ", err)
	}
	defer q.Close()
	log.Println("✅ Connected to message broker")

	// Deferred sends were captured at enqueue time and only need delivering;
	// resends go through the hook so each one lands as a fresh email.
	queue.StartSendSubscriber(q, cfg.Queue.SendQueue, emailRepo, queue.LogSender)
	queue.StartResendSubscriber(q, cfg.Queue.ResendQueue, emailRepo, hook.Wrap(queue.LogSender))

	log.Println("🚀 Worker consuming", cfg.Queue.SendQueue, "and", cfg.Queue.ResendQueue)
	select {}
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "config.yaml"
}
