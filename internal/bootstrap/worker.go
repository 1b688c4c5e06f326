package bootstrap

import (
	"os"

	"github.com/rs/zerolog"

	"inboxpilot/adapter/in/worker"
	"inboxpilot/config"
)

// NewWorker assembles the queue consumer on the shared dependency graph.
func NewWorker(cfg *config.Config, deps *Dependencies) *worker.Consumer {
	zlog := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "inboxpilot-worker").
		Logger()

	return worker.NewConsumer(deps.WorkQueue, deps.ProcessedStore, &worker.ConsumerConfig{
		ConsumerID: cfg.ConsumerID,
		IdleSleep:  cfg.ConsumerIdleSleep,
		Logger:     zlog,
	})
}
