// Package service composes validation, capability resolution, coordinated
// fetching and the tidy merge into the one call library users make.
package service

import (
	"context"
	"time"

	"backfill/internal/coordinator"
	"backfill/internal/logger"
	"backfill/internal/market"
	"backfill/internal/resolver"
	"backfill/internal/tidy"

	"backfill/internal/request"
)

type Config struct {
	// CacheTTL bounds how long the venue symbol universe is reused.
	CacheTTL time.Duration

	MaxInFlight int
	Timeout     time.Duration
	MaxRetries  int

	BreakerThreshold int
	BreakerCooldown  time.Duration
}

type Service struct {
	vendor   market.Vendor
	resolver *resolver.Resolver
	coord    *coordinator.Coordinator
}

func New(vendor market.Vendor, cfg Config) *Service {
	return &Service{
		vendor:   vendor,
		resolver: resolver.New(vendor, cfg.CacheTTL),
		coord: coordinator.New(vendor, coordinator.Config{
			MaxInFlight:      cfg.MaxInFlight,
			Timeout:          cfg.Timeout,
			MaxRetries:       cfg.MaxRetries,
			BreakerThreshold: cfg.BreakerThreshold,
			BreakerCooldown:  cfg.BreakerCooldown,
		}),
	}
}

// GetData validates the request, resolves the fetch plan, runs it and
// merges the streams. The table is always returned for partial failures;
// the failure list tells "no data" apart from "fetch failed" per stream.
// An error is returned only for invalid requests or when the venue's
// symbol universe cannot be loaded before any stream fetch.
func (s *Service) GetData(ctx context.Context, req request.Request) (*tidy.Table, []market.StreamFailure, error) {
	validated, err := req.Validate()
	if err != nil {
		return nil, nil, err
	}
	plan, err := s.resolver.Resolve(ctx, validated)
	if err != nil {
		return nil, nil, err
	}
	logger.Infof("[%s] request %s: %d tickers, %d fetch tasks",
		plan.Exchange, validated.ID, len(validated.Tickers), len(plan.Entries))

	res := s.coord.Run(ctx, plan)
	table := tidy.Merge(res, validated)

	if len(res.Failures) > 0 {
		logger.Warnf("[%s] request %s finished with %d degraded streams",
			plan.Exchange, validated.ID, len(res.Failures))
	}
	return table, res.Failures, nil
}
