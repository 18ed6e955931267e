package repository

import (
	"chaldea/sources/persistence/entities"
	"chaldea/sources/platform"
	"chaldea/sources/tracing"
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	OutcomeOk       = "ok"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// InvocationsRepository journals dispatched commands, replies, callbacks and events.
// A nil database turns every method into a no-op.
type InvocationsRepository struct {
	db *gorm.DB
}

func NewInvocationsRepository(db *gorm.DB) *InvocationsRepository {
	return &InvocationsRepository{db: db}
}

func (x *InvocationsRepository) Enabled() bool {
	return x != nil && x.db != nil
}

func (x *InvocationsRepository) Record(logger *tracing.Logger, invocation entities.Invocation) error {
	if !x.Enabled() {
		return nil
	}

	defer tracing.ProfilePoint(logger, "Invocation record completed", "repository.invocations.record")()
	ctx, cancel := platform.ContextTimeoutVal(context.Background(), 5*time.Second)
	defer cancel()

	if invocation.ID == uuid.Nil {
		invocation.ID = uuid.New()
	}
	if invocation.CreatedAt.IsZero() {
		invocation.CreatedAt = time.Now()
	}

	if err := x.db.WithContext(ctx).Create(&invocation).Error; err != nil {
		logger.E("Failed to record invocation", tracing.InnerError, err)
		return err
	}

	return nil
}

func (x *InvocationsRepository) CountSince(logger *tracing.Logger, since time.Time) (int64, error) {
	if !x.Enabled() {
		return 0, nil
	}

	defer tracing.ProfilePoint(logger, "Invocation count completed", "repository.invocations.count")()
	ctx, cancel := platform.ContextTimeoutVal(context.Background(), 20*time.Second)
	defer cancel()

	var count int64
	err := x.db.WithContext(ctx).Model(&entities.Invocation{}).Where("created_at >= ?", since).Count(&count).Error
	if err != nil {
		logger.E("Failed to count invocations", tracing.InnerError, err)
		return 0, err
	}

	return count, nil
}
