package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/PowerStats/internal/app/model"
	"github.com/sifan077/PowerStats/internal/app/repository"
)

// streamPublisher is the slice of nats.JetStreamContext the publisher needs.
type streamPublisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// BeaconPublisher is an EventRepository that defers writes to the beacon
// stream. Rows become visible to queries once the consumer stores them.
type BeaconPublisher struct {
	js streamPublisher
}

var _ repository.EventRepository = (*BeaconPublisher)(nil)

// NewBeaconPublisher creates a publisher on the given JetStream context.
func NewBeaconPublisher(js nats.JetStreamContext) *BeaconPublisher {
	return &BeaconPublisher{js: js}
}

func (p *BeaconPublisher) publish(ctx context.Context, beacon model.Beacon) error {
	data, err := json.Marshal(beacon)
	if err != nil {
		return fmt.Errorf("marshal %s beacon: %w", beacon.Kind, err)
	}
	if _, err := p.js.Publish(model.BeaconStreamSubject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s beacon: %w", beacon.Kind, err)
	}
	return nil
}

func (p *BeaconPublisher) CreatePageview(ctx context.Context, pv *model.Pageview) error {
	return p.publish(ctx, model.Beacon{Kind: model.BeaconKindPageview, Pageview: pv})
}

func (p *BeaconPublisher) CreateEvent(ctx context.Context, ev *model.Event) error {
	return p.publish(ctx, model.Beacon{Kind: model.BeaconKindEvent, Event: ev})
}

func (p *BeaconPublisher) CreateTrafficSource(ctx context.Context, src *model.TrafficSource) error {
	return p.publish(ctx, model.Beacon{Kind: model.BeaconKindTrafficSource, TrafficSource: src})
}

func (p *BeaconPublisher) CreateHeatmapSample(ctx context.Context, sample *model.HeatmapSample) error {
	return p.publish(ctx, model.Beacon{Kind: model.BeaconKindHeatmap, Heatmap: sample})
}
