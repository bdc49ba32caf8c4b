package repository

import (
	"context"
	"errors"
	"fmt"

	appErr "github.com/qa-dashboard/engine/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BaseRepository defines the keyed operations shared by the document tables.
// Rows are only ever written whole, through Upsert.
type BaseRepository[T any] interface {
	Upsert(ctx context.Context, obj *T) error
	GetByKey(ctx context.Context, key string, dest *T) error
	FindByKeys(ctx context.Context, keys []string) ([]T, error)
}

type baseRepository[T any] struct {
	db            *gorm.DB
	keyColumn     string
	updateColumns []string
}

// NewBaseRepository builds a repository keyed by keyColumn. On conflict the
// listed updateColumns are overwritten with the incoming row.
func NewBaseRepository[T any](db *gorm.DB, keyColumn string, updateColumns ...string) BaseRepository[T] {
	return &baseRepository[T]{db: db, keyColumn: keyColumn, updateColumns: updateColumns}
}

func (r *baseRepository[T]) Upsert(ctx context.Context, obj *T) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: r.keyColumn}},
		DoUpdates: clause.AssignmentColumns(r.updateColumns),
	}).Create(obj).Error
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "upsert failed")
	}
	return nil
}

func (r *baseRepository[T]) GetByKey(ctx context.Context, key string, dest *T) error {
	err := r.db.WithContext(ctx).Where(fmt.Sprintf("%s = ?", r.keyColumn), key).First(dest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.New(appErr.CodeNotFound, "entity not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get entity failed")
	}
	return nil
}

func (r *baseRepository[T]) FindByKeys(ctx context.Context, keys []string) ([]T, error) {
	out := []T{}
	if len(keys) == 0 {
		return out, nil
	}
	if err := r.db.WithContext(ctx).Where(fmt.Sprintf("%s IN ?", r.keyColumn), keys).Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "find entities failed")
	}
	return out, nil
}
