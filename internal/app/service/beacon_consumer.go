package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/PowerStats/internal/app/model"
	"github.com/sifan077/PowerStats/internal/app/repository"
	natsclient "github.com/sifan077/PowerStats/internal/infra/nats"
	"go.uber.org/zap"
)

const (
	fetchBatch   = 32
	fetchMaxWait = 5 * time.Second
)

var errUnknownBeacon = errors.New("unknown beacon kind")

// BeaconConsumer drains the beacon stream into the event store.
type BeaconConsumer struct {
	js     nats.JetStreamContext
	logger *zap.Logger
	repo   repository.EventRepository
}

// NewBeaconConsumer creates a consumer writing through repo.
func NewBeaconConsumer(js nats.JetStreamContext, logger *zap.Logger, repo repository.EventRepository) *BeaconConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BeaconConsumer{js: js, logger: logger, repo: repo}
}

// Start ensures the stream exists and consumes until ctx is cancelled.
func (c *BeaconConsumer) Start(ctx context.Context) error {
	err := natsclient.EnsureStream(c.js, natsclient.StreamSpec{
		Stream:   model.BeaconStreamName,
		Subject:  model.BeaconStreamSubject,
		Consumer: model.BeaconConsumerName,
		MaxBytes: model.BeaconStreamMaxBytes,
	})
	if err != nil {
		return fmt.Errorf("ensure beacon stream: %w", err)
	}

	sub, err := c.js.PullSubscribe(model.BeaconStreamSubject, model.BeaconConsumerName,
		nats.Bind(model.BeaconStreamName, model.BeaconConsumerName))
	if err != nil {
		return fmt.Errorf("subscribe beacon stream: %w", err)
	}

	go c.consume(ctx, sub)
	return nil
}

func (c *BeaconConsumer) consume(ctx context.Context, sub *nats.Subscription) {
	defer func() { _ = sub.Unsubscribe() }()

	for {
		if ctx.Err() != nil {
			c.logger.Info("beacon consumer stopped")
			return
		}

		msgs, err := sub.Fetch(fetchBatch, nats.MaxWait(fetchMaxWait))
		if err != nil && !errors.Is(err, nats.ErrTimeout) {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error("failed to fetch beacons", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range msgs {
			err := c.handle(ctx, msg.Data)
			switch {
			case err == nil:
				_ = msg.Ack()
			case errors.Is(err, errUnknownBeacon), isDecodeError(err):
				// Redelivery cannot fix a malformed message.
				c.logger.Error("dropping malformed beacon", zap.Error(err))
				_ = msg.Term()
			default:
				c.logger.Error("failed to store beacon", zap.Error(err))
				_ = msg.Nak()
			}
		}
	}
}

type decodeError struct{ err error }

func (e *decodeError) Error() string { return "decode beacon: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

func isDecodeError(err error) bool {
	var de *decodeError
	return errors.As(err, &de)
}

// handle decodes one envelope and writes its row.
func (c *BeaconConsumer) handle(ctx context.Context, data []byte) error {
	var b model.Beacon
	if err := json.Unmarshal(data, &b); err != nil {
		return &decodeError{err: err}
	}

	var err error
	switch {
	case b.Kind == model.BeaconKindPageview && b.Pageview != nil:
		err = c.repo.CreatePageview(ctx, b.Pageview)
	case b.Kind == model.BeaconKindEvent && b.Event != nil:
		// A JSON null payload is stored as SQL NULL, like a synchronous write.
		if string(b.Event.EventData) == "null" {
			b.Event.EventData = nil
		}
		err = c.repo.CreateEvent(ctx, b.Event)
	case b.Kind == model.BeaconKindTrafficSource && b.TrafficSource != nil:
		err = c.repo.CreateTrafficSource(ctx, b.TrafficSource)
	case b.Kind == model.BeaconKindHeatmap && b.Heatmap != nil:
		err = c.repo.CreateHeatmapSample(ctx, b.Heatmap)
	default:
		return fmt.Errorf("%w: %q", errUnknownBeacon, b.Kind)
	}
	if err != nil {
		return fmt.Errorf("store %s beacon: %w", b.Kind, err)
	}

	c.logger.Debug("beacon stored", zap.String("kind", b.Kind))
	return nil
}
