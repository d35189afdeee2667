// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package services

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/chest/internal/logging"
)

// Maintainer matches database.Store's Maintain method.
type Maintainer interface {
	Maintain(ctx context.Context) error
}

// StoreMaintenanceService compacts the dedup store on a fixed interval.
// A failed run is logged and retried on the next tick.
//
//	tree.AddDataService(services.NewStoreMaintenanceService(store, cfg.Database.MaintenanceInterval))
type StoreMaintenanceService struct {
	store    Maintainer
	interval time.Duration
	name     string
}

// NewStoreMaintenanceService creates the service. interval must be positive.
func NewStoreMaintenanceService(store Maintainer, interval time.Duration) *StoreMaintenanceService {
	return &StoreMaintenanceService{
		store:    store,
		interval: interval,
		name:     "store-maintenance",
	}
}

// Serve implements suture.Service.
func (s *StoreMaintenanceService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			err := s.store.Maintain(ctx)
			switch {
			case err == nil:
				logging.Debug().Dur("duration", time.Since(start)).Msg("Store maintenance finished")
			case errors.Is(err, context.Canceled):
			default:
				logging.Warn().Err(err).Msg("Store maintenance failed")
			}
		}
	}
}

// String implements fmt.Stringer for suture logs.
func (s *StoreMaintenanceService) String() string {
	return s.name
}
