package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/heartpost/greeting-gateway/internal/model"
	"github.com/heartpost/greeting-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a greeting does not exist.
	ErrNotFound = errors.New("greeting not found")

	// ErrNotClaimable is returned when a claim races and the greeting is no
	// longer pending.
	ErrNotClaimable = errors.New("greeting is not pending")
)

type GreetingRepository struct {
	*pg.DB
}

func NewGreetingRepository(db *pg.DB) *GreetingRepository {
	return &GreetingRepository{
		db,
	}
}

func (r *GreetingRepository) Create(ctx context.Context, g *model.Greeting) (*model.Greeting, error) {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.Status == "" {
		g.Status = model.GreetingStatusPending
	}
	entity := toGreetingEntity(g)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toGreetingModel(entity), nil
}

func (r *GreetingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Greeting, error) {
	var entity GreetingEntity
	err := r.Read(ctx).WithContext(ctx).First(&entity, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toGreetingModel(&entity), nil
}

func (r *GreetingRepository) List(ctx context.Context, f model.GreetingFilter) ([]*model.Greeting, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&GreetingEntity{})

	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.Channel != nil {
		q = q.Where("channel = ?", *f.Channel)
	}
	if f.Relationship != nil {
		q = q.Where("relationship = ?", *f.Relationship)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	// Count before pagination
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at"
	if f.Desc {
		order += " DESC"
	} else {
		order += " ASC"
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*GreetingEntity
	if err := q.Order(order).Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toGreetingModels(entities), total, nil
}

// FindDue returns pending greetings whose delivery time has passed, oldest
// first.
func (r *GreetingRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*model.Greeting, error) {
	if limit <= 0 {
		limit = 100
	}

	var entities []*GreetingEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("status = ? AND deliver_at <= ?", model.GreetingStatusPending, now).
		Order("deliver_at ASC").
		Limit(limit).
		Find(&entities).Error
	if err != nil {
		return nil, err
	}

	return toGreetingModels(entities), nil
}

// MarkProcessing claims a pending greeting for delivery. The status guard in
// the WHERE clause makes the claim atomic: a greeting already claimed by a
// concurrent dispatcher tick is not claimed twice.
func (r *GreetingRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	res := r.Write(ctx).WithContext(ctx).
		Model(&GreetingEntity{}).
		Where("id = ? AND status = ?", id, model.GreetingStatusPending).
		Update("status", model.GreetingStatusProcessing)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotClaimable
	}
	return nil
}

// MarkSent finalizes a claimed greeting as delivered and clears any
// diagnostic left over from an earlier attempt. Status and diagnostic change
// in one UPDATE so a half-written transition is never observable; the status
// guard keeps sent and failed rows immutable when a stale duplicate task
// finishes late.
func (r *GreetingRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	res := r.Write(ctx).WithContext(ctx).
		Model(&GreetingEntity{}).
		Where("id = ? AND status = ?", id, model.GreetingStatusProcessing).
		Updates(map[string]interface{}{
			"status":     model.GreetingStatusSent,
			"diagnostic": "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Missing, unclaimed or already terminal.
		return ErrNotFound
	}
	return nil
}

// MarkFailed finalizes a greeting as failed with its diagnostic payload in
// one UPDATE. Pending rows pass the guard so a fault before the claim can
// still be recorded; sent and failed rows stay as they are.
func (r *GreetingRepository) MarkFailed(ctx context.Context, id uuid.UUID, d *model.Diagnostic) error {
	res := r.Write(ctx).WithContext(ctx).
		Model(&GreetingEntity{}).
		Where("id = ? AND status IN ?", id, []model.GreetingStatus{
			model.GreetingStatusPending,
			model.GreetingStatusProcessing,
		}).
		Updates(map[string]interface{}{
			"status":     model.GreetingStatusFailed,
			"diagnostic": marshalDiagnostic(d),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Missing or already terminal.
		return ErrNotFound
	}
	return nil
}
