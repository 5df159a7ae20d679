package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/psds-microservice/casework-service/internal/application"
	"github.com/psds-microservice/casework-service/internal/kafka"
	"github.com/psds-microservice/casework-service/internal/searchindex"
	"github.com/psds-microservice/casework-service/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var reindexSearchCmd = &cobra.Command{
	Use:   "reindex-search",
	Short: "Reindex all applications and tickets into search. Prefers Kafka; falls back to HTTP if SEARCH_SERVICE_URL set.",
	RunE:  runReindexSearch,
}

func init() {
	rootCmd.AddCommand(reindexSearchCmd)
}

func runReindexSearch(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	backend, err := application.OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backend.Close()

	var reindexer *service.Reindexer
	switch {
	case len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopicCasework != "":
		log.Info("reindex-search: using Kafka", zap.Strings("brokers", cfg.KafkaBrokers))
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicCasework, log)
		defer producer.Close()
		reindexer = service.NewReindexer(backend.Store, producer, nil, log)
	case cfg.SearchServiceURL != "":
		log.Info("reindex-search: using HTTP", zap.String("url", cfg.SearchServiceURL))
		reindexer = service.NewReindexer(backend.Store, nil, searchindex.NewClient(cfg.SearchServiceURL, log), log)
	default:
		log.Warn("reindex-search: neither KAFKA_BROKERS nor SEARCH_SERVICE_URL set, nothing to do")
		return nil
	}

	apps, tickets, err := reindexer.Run(ctx)
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	log.Info("reindex-search: done", zap.Int("applications", apps), zap.Int("tickets", tickets))
	return nil
}
