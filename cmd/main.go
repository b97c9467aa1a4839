package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"imgpress/internal/blob"
	"imgpress/internal/events"
	"imgpress/internal/models"
	"imgpress/internal/pipeline"
	"imgpress/internal/server"
	"imgpress/internal/storage"
)

func main() {
	cfg, err := models.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := storage.NewStorage(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init storage: %v", err)
	}
	defer db.Close()

	blobs, err := blob.New(cfg.StoragePath)
	if err != nil {
		log.Fatalf("failed to init blob store: %v", err)
	}

	// Kafka is optional: with no broker configured, ingest events are skipped.
	var publisher pipeline.Publisher
	var kafkaPub *events.KafkaPublisher
	if cfg.KafkaBroker != "" {
		kafkaPub = events.NewKafkaPublisher(cfg.KafkaBroker, cfg.KafkaTopic)
		publisher = kafkaPub
	}

	ingest := pipeline.New(blobs, db, publisher, cfg.MaxUploadBytes)

	srv := server.NewServer(cfg, ingest)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	srv.Stop()
	if kafkaPub != nil {
		kafkaPub.Close()
	}
}
