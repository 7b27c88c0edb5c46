package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/apperr"
)

// Repository provides the read side shared by every model.
type Repository[T any] interface {
	Get(ctx context.Context, id string, includes ...string) (*T, error)
	List(ctx context.Context, order string, includes ...string) ([]T, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// GormRepository implements Repository over gorm.
type GormRepository[T any] struct {
	db   *gorm.DB
	name string
}

// NewRepository creates a repository; name is used in not-found messages.
func NewRepository[T any](db *gorm.DB, name string) *GormRepository[T] {
	return &GormRepository[T]{db: db, name: name}
}

// applyIncludes adds preload statements to the query for each include
func applyIncludes(query *gorm.DB, includes ...string) *gorm.DB {
	for _, include := range includes {
		query = query.Preload(include)
	}
	return query
}

// ValidID reports whether id can name a row. Primary keys are UUIDs, and
// postgres rejects anything else with a type error instead of no rows.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *GormRepository[T]) Get(ctx context.Context, id string, includes ...string) (*T, error) {
	if !ValidID(id) {
		return nil, apperr.NotFound("%s not found", r.name)
	}
	var entity T
	query := applyIncludes(r.db.WithContext(ctx), includes...)
	if err := query.First(&entity, "id = ?", id).Error; err != nil {
		if IsNotFound(err) {
			return nil, apperr.NotFound("%s not found", r.name)
		}
		return nil, fmt.Errorf("get %s %s: %w", r.name, id, err)
	}
	return &entity, nil
}

func (r *GormRepository[T]) List(ctx context.Context, order string, includes ...string) ([]T, error) {
	var entities []T
	query := applyIncludes(r.db.WithContext(ctx), includes...)
	if order != "" {
		query = query.Order(order)
	}
	if err := query.Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", r.name, err)
	}
	return entities, nil
}

func (r *GormRepository[T]) Exists(ctx context.Context, id string) (bool, error) {
	if !ValidID(id) {
		return false, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check %s %s: %w", r.name, id, err)
	}
	return count > 0, nil
}
