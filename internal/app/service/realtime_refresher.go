package service

import (
	"context"
	"time"

	"github.com/sifan077/PowerStats/internal/app/model"
	infraPrometheus "github.com/sifan077/PowerStats/internal/infra/prometheus"
	"go.uber.org/zap"
)

const defaultRefreshInterval = 30 * time.Second

type realtimeSource interface {
	RealTime(ctx context.Context) (*model.RealTime, error)
}

// RealtimeRefresher periodically publishes the real-time counters as gauges.
type RealtimeRefresher struct {
	logger   *zap.Logger
	source   realtimeSource
	metrics  *infraPrometheus.Metrics
	interval time.Duration
	stopChan chan struct{}
}

// NewRealtimeRefresher creates a refresher. A non-positive interval uses 30s.
func NewRealtimeRefresher(logger *zap.Logger, source realtimeSource, metrics *infraPrometheus.Metrics, interval time.Duration) *RealtimeRefresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &RealtimeRefresher{
		logger:   logger,
		source:   source,
		metrics:  metrics,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins refreshing in the background.
func (r *RealtimeRefresher) Start() {
	go r.run()
}

// Stop ends the refresh loop. It must be called at most once.
func (r *RealtimeRefresher) Stop() {
	close(r.stopChan)
}

func (r *RealtimeRefresher) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refresh()
	for {
		select {
		case <-ticker.C:
			r.refresh()
		case <-r.stopChan:
			r.logger.Info("realtime refresher stopped")
			return
		}
	}
}

func (r *RealtimeRefresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), r.interval)
	defer cancel()

	rt, err := r.source.RealTime(ctx)
	if err != nil {
		r.logger.Warn("failed to refresh realtime gauges", zap.Error(err))
		return
	}
	r.metrics.SetRealtime(rt.ActiveSessions, rt.HourlyPageviews, rt.PageviewsPerMinute)
}
