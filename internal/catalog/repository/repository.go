package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	catalogdomain "github.com/syedsanaulhaq/ims-v1-sub001/internal/catalog/domain"
)

type gormRepository struct{}

// Provide constructs the gorm-backed item repository.
func Provide() catalogdomain.Repository {
	return &gormRepository{}
}

func (r *gormRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*catalogdomain.Item, error) {
	var item catalogdomain.Item
	err := db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalogdomain.ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *gormRepository) List(ctx context.Context, db *gorm.DB, req catalogdomain.ListRequest) ([]catalogdomain.Item, error) {
	query := db.WithContext(ctx).Model(&catalogdomain.Item{})

	if search := strings.TrimSpace(req.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", like, like)
	}
	if req.Active != nil {
		query = query.Where("active = ?", *req.Active)
	}
	limit := req.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var items []catalogdomain.Item
	if err := query.Order("code ASC").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *gormRepository) Insert(ctx context.Context, db *gorm.DB, item *catalogdomain.Item) error {
	if item == nil || item.ID == 0 {
		return catalogdomain.ErrInvalidItem
	}
	return db.WithContext(ctx).Create(item).Error
}
