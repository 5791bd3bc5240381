package repository

import (
	"context"

	"github.com/sifan077/PowerStats/internal/app/model"
	"gorm.io/gorm"
)

// EventRepository defines the append-only write contract of the event store.
type EventRepository interface {
	CreatePageview(ctx context.Context, pv *model.Pageview) error
	CreateEvent(ctx context.Context, ev *model.Event) error
	CreateTrafficSource(ctx context.Context, src *model.TrafficSource) error
	CreateHeatmapSample(ctx context.Context, sample *model.HeatmapSample) error
}

// Models lists every persisted table, for migrations.
func Models() []interface{} {
	return []interface{}{
		&model.Pageview{},
		&model.Event{},
		&model.TrafficSource{},
		&model.HeatmapSample{},
	}
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository returns a GORM-backed EventRepository.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) CreatePageview(ctx context.Context, pv *model.Pageview) error {
	return r.db.WithContext(ctx).Create(pv).Error
}

func (r *eventRepository) CreateEvent(ctx context.Context, ev *model.Event) error {
	return r.db.WithContext(ctx).Create(ev).Error
}

func (r *eventRepository) CreateTrafficSource(ctx context.Context, src *model.TrafficSource) error {
	return r.db.WithContext(ctx).Create(src).Error
}

func (r *eventRepository) CreateHeatmapSample(ctx context.Context, sample *model.HeatmapSample) error {
	return r.db.WithContext(ctx).Create(sample).Error
}
