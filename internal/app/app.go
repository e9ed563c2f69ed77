// Package app is the composition root: it builds every component on one shared
// store handle so that callers never reach for process-wide state.
package app

import (
	"fmt"
	"log/slog"

	"warden/internal/access"
	"warden/internal/activity"
	"warden/internal/audit"
	"warden/internal/deletion"
	"warden/internal/platform/config"
	"warden/internal/platform/kv"
	"warden/internal/platform/metrics"
	"warden/internal/privacy"
	"warden/internal/token"
)

type Components struct {
	Store    kv.Store
	Audit    *audit.Trail
	Access   *access.Service
	Activity *activity.Tracker
	Tokens   *token.Service
	Privacy  *privacy.Store
	Deletion *deletion.Queue
	Worker   *deletion.Worker
}

// Build wires all components onto store. m may be nil to disable metrics.
func Build(store kv.Store, cfg config.Config, logger *slog.Logger, m *metrics.Metrics) (*Components, error) {
	trail := audit.NewTrail(store,
		audit.WithLogger(logger),
		audit.WithMetrics(m),
	)
	accessSvc := access.New(store,
		access.WithLogger(logger),
		access.WithAuditor(trail),
	)
	tracker := activity.New(store, activity.WithBucketTTL(cfg.Activity.BucketTTL))

	tokens, err := token.New(store,
		token.WithLogger(logger),
		token.WithMetrics(m),
		token.WithAuditor(trail),
		token.WithActivity(tracker),
		token.WithDefaultTTL(cfg.Token.DefaultTTL),
		token.WithRevokeFallbackTTL(cfg.Token.RevokeFallbackTTL),
	)
	if err != nil {
		return nil, fmt.Errorf("build token service: %w", err)
	}

	privacyStore := privacy.New(store,
		privacy.WithLogger(logger),
		privacy.WithAuditor(trail),
	)

	queue, err := deletion.New(store, privacyStore, accessSvc,
		deletion.WithLogger(logger),
		deletion.WithAuditor(trail),
		deletion.WithMetrics(m),
	)
	if err != nil {
		return nil, fmt.Errorf("build deletion queue: %w", err)
	}
	worker := deletion.NewWorker(queue, store,
		deletion.WithPollInterval(cfg.Deletion.PollInterval),
		deletion.WithBatchSize(cfg.Deletion.BatchSize),
		deletion.WithWorkerLogger(logger),
	)

	return &Components{
		Store:    store,
		Audit:    trail,
		Access:   accessSvc,
		Activity: tracker,
		Tokens:   tokens,
		Privacy:  privacyStore,
		Deletion: queue,
		Worker:   worker,
	}, nil
}
