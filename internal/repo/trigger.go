package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"trading-alert-bot/internal/entity"
)

type TriggerRepo interface {
	Create(ctx context.Context, trigger entity.Trigger) (int64, error)
	FindRecent(ctx context.Context, limit int) ([]entity.Trigger, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

type triggerRepo struct {
	db *gorm.DB
}

func NewTriggerRepo(db *gorm.DB) TriggerRepo {
	return &triggerRepo{
		db: db,
	}
}

func (r *triggerRepo) Create(ctx context.Context, trigger entity.Trigger) (int64, error) {
	err := r.db.WithContext(ctx).Create(&trigger).Error
	if err != nil {
		return 0, err
	}
	return trigger.Id, nil
}

func (r *triggerRepo) FindRecent(ctx context.Context, limit int) ([]entity.Trigger, error) {
	var triggers []entity.Trigger
	err := r.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&triggers).Error
	if err != nil {
		return nil, err
	}
	return triggers, nil
}

func (r *triggerRepo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Trigger{}).
		Where("created_at >= ?", since).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
