package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/PowerStats/internal/app/model"
)

type fakeStream struct {
	subject string
	data    []byte
	err     error
}

func (f *fakeStream) Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error) {
	f.subject = subj
	f.data = data
	if f.err != nil {
		return nil, f.err
	}
	return &nats.PubAck{Stream: model.BeaconStreamName}, nil
}

func TestBeaconPublisher_RoundTripsThroughConsumer(t *testing.T) {
	stream := &fakeStream{}
	pub := &BeaconPublisher{js: stream}

	pv := &model.Pageview{ID: "pv-1", SessionID: "s", URL: "/home", Timestamp: fixedNow, Bounce: true}
	if err := pub.CreatePageview(context.Background(), pv); err != nil {
		t.Fatalf("CreatePageview returned error: %v", err)
	}
	if stream.subject != model.BeaconStreamSubject {
		t.Fatalf("unexpected subject %q", stream.subject)
	}

	var stored *model.Pageview
	repo := &mockEventRepository{
		pageviewFn: func(ctx context.Context, got *model.Pageview) error {
			stored = got
			return nil
		},
	}
	if err := NewBeaconConsumer(nil, nil, repo).handle(context.Background(), stream.data); err != nil {
		t.Fatalf("handle returned error: %v", err)
	}
	if stored == nil || stored.ID != "pv-1" || stored.URL != "/home" || !stored.Timestamp.Equal(fixedNow) {
		t.Fatalf("unexpected stored pageview %+v", stored)
	}
}

func TestBeaconPublisher_PublishError(t *testing.T) {
	boom := errors.New("no responders")
	pub := &BeaconPublisher{js: &fakeStream{err: boom}}

	err := pub.CreateHeatmapSample(context.Background(), &model.HeatmapSample{ID: "h"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestBeaconConsumer_DispatchesByKind(t *testing.T) {
	var got []string
	repo := &mockEventRepository{
		eventFn: func(ctx context.Context, ev *model.Event) error {
			got = append(got, "event:"+ev.EventType)
			return nil
		},
		sourceFn: func(ctx context.Context, src *model.TrafficSource) error {
			got = append(got, "source:"+src.SourceType)
			return nil
		},
	}
	c := NewBeaconConsumer(nil, nil, repo)

	for _, b := range []model.Beacon{
		{Kind: model.BeaconKindEvent, Event: &model.Event{EventType: "signup", Timestamp: time.Now()}},
		{Kind: model.BeaconKindTrafficSource, TrafficSource: &model.TrafficSource{SourceType: model.SourceSocial}},
	} {
		data, _ := json.Marshal(b)
		if err := c.handle(context.Background(), data); err != nil {
			t.Fatalf("handle %s: %v", b.Kind, err)
		}
	}

	if len(got) != 2 || got[0] != "event:signup" || got[1] != "source:Social" {
		t.Fatalf("unexpected dispatch %v", got)
	}
}

func TestBeaconPublisher_EventWithoutDataStaysNull(t *testing.T) {
	stream := &fakeStream{}
	pub := &BeaconPublisher{js: stream}

	if err := pub.CreateEvent(context.Background(), &model.Event{ID: "ev-1", EventType: "click", Timestamp: fixedNow}); err != nil {
		t.Fatalf("CreateEvent returned error: %v", err)
	}
	if strings.Contains(string(stream.data), "event_data") {
		t.Fatalf("nil event data must be omitted from the envelope: %s", stream.data)
	}

	var stored *model.Event
	repo := &mockEventRepository{
		eventFn: func(ctx context.Context, ev *model.Event) error {
			stored = ev
			return nil
		},
	}
	c := NewBeaconConsumer(nil, nil, repo)
	if err := c.handle(context.Background(), stream.data); err != nil {
		t.Fatalf("handle returned error: %v", err)
	}
	if stored == nil || stored.EventData != nil {
		t.Fatalf("expected nil event data, got %+v", stored)
	}

	// Envelopes carrying an explicit null are normalised the same way.
	legacy := []byte(`{"kind":"` + model.BeaconKindEvent + `","event":{"id":"ev-2","event_type":"click","event_data":null}}`)
	if err := c.handle(context.Background(), legacy); err != nil {
		t.Fatalf("handle returned error: %v", err)
	}
	if stored.ID != "ev-2" || stored.EventData != nil {
		t.Fatalf("expected null event data to be dropped, got %q", stored.EventData)
	}
}

func TestBeaconConsumer_RejectsMalformed(t *testing.T) {
	c := NewBeaconConsumer(nil, nil, &mockEventRepository{})

	if err := c.handle(context.Background(), []byte("{not json")); !isDecodeError(err) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if err := c.handle(context.Background(), []byte(`{"kind":"pageview"}`)); !errors.Is(err, errUnknownBeacon) {
		t.Fatalf("expected unknown beacon for missing payload, got %v", err)
	}
	if err := c.handle(context.Background(), []byte(`{"kind":"bogus"}`)); !errors.Is(err, errUnknownBeacon) {
		t.Fatalf("expected unknown beacon, got %v", err)
	}
}

func TestBeaconConsumer_StoreErrorIsRetryable(t *testing.T) {
	repo := &mockEventRepository{
		heatmapFn: func(ctx context.Context, s *model.HeatmapSample) error { return errors.New("db down") },
	}
	data, _ := json.Marshal(model.Beacon{Kind: model.BeaconKindHeatmap, Heatmap: &model.HeatmapSample{ID: "h"}})

	err := NewBeaconConsumer(nil, nil, repo).handle(context.Background(), data)
	if err == nil || isDecodeError(err) || errors.Is(err, errUnknownBeacon) {
		t.Fatalf("expected a plain store error, got %v", err)
	}
}
