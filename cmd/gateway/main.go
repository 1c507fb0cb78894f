package main

import (
	"github.com/joho/godotenv"

	"oims/internal/gateway/handler"
	"oims/internal/gateway/repository"
	"oims/internal/gateway/service"
	"oims/internal/workflow/validator"
	"oims/pkg/app"
	"oims/pkg/config"
	"oims/pkg/kafka"
	kafka_config "oims/pkg/kafka/config"
	kafka_middleware "oims/pkg/kafka/middleware"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load("booking-gateway")
	cfg.SetMongo()
	cfg.SetAPIClients()
	defer cfg.GracefulShutdown()

	backend := service.NewBackend(cfg.Client)
	sessionRepo := repository.NewMongoSessionRepository(cfg)

	var producer *kafka.Producer
	var publisher service.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		p, err := kafka.NewProducer(kafka_config.FromBrokers(cfg.KafkaBrokers), cfg.KafkaSubmissionTopic)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
		}
		p.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer = p
		publisher = p
	} else {
		cfg.Log.Warn("Kafka brokers not configured, submission events disabled")
	}

	manager := service.NewSessionManager(service.Deps{
		Directory: backend,
		Oracle:    backend,
		Store:     backend,
		Repo:      sessionRepo,
		Producer:  publisher,
		Validator: validator.NewDraftValidator(cfg.Log),
		Log:       cfg.Log,
		TTL:       cfg.SessionTTL,
	})

	application := app.NewApplication()
	application.SetApp(cfg, handler.NewSessionHandler(manager, cfg.Log))
	application.OnShutdown(func() {
		manager.Stop()
		if producer != nil {
			if err := producer.Close(); err != nil {
				cfg.Log.Error("Failed to close Kafka producer", "error", err)
			}
		}
	})
	application.Run()
}
