package repository

import (
	"errors"
	"fmt"

	"CampusTrade/model"

	"gorm.io/gorm"
)

// GoodsRepository defines the interface for goods data operations.
// 商品模块基于 GORM 实现（与用户模块的 database/sql 并存）。
type GoodsRepository interface {
	GetByID(goodid string) (*model.Goods, error)
	ListAll() ([]model.Goods, error)
	ListByUser(username string) ([]model.Goods, error)
	ListSoldBySeller(username string) ([]model.Goods, error)
	ListSoldByBuyer(username string) ([]model.Goods, error)
	Insert(goods *model.Goods) error
	Update(goods *model.Goods) (int64, error)
	DeleteByID(goodid string) (int64, error)
}

type gormGoodsRepository struct {
	db *gorm.DB
}

// NewGormGoodsRepository creates a new gormGoodsRepository.
func NewGormGoodsRepository(db *gorm.DB) GoodsRepository {
	return &gormGoodsRepository{db: db}
}

// GetByID retrieves a goods record by its id.
func (r *gormGoodsRepository) GetByID(goodid string) (*model.Goods, error) {
	var goods model.Goods
	err := r.db.Where("goodid = ?", goodid).First(&goods).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // Goods not found
		}
		return nil, fmt.Errorf("failed to query goods %s: %w", goodid, err)
	}
	return &goods, nil
}

// ListAll returns all unsold goods (ing != 1). 顺序不作保证。
func (r *gormGoodsRepository) ListAll() ([]model.Goods, error) {
	var list []model.Goods
	if err := r.db.Where("ing != ?", true).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list goods: %w", err)
	}
	return list, nil
}

// ListByUser returns the unsold goods owned by username.
func (r *gormGoodsRepository) ListByUser(username string) ([]model.Goods, error) {
	var list []model.Goods
	if err := r.db.Where("username = ? AND ing != ?", username, true).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list goods for user %s: %w", username, err)
	}
	return list, nil
}

// ListSoldBySeller returns the sold goods owned by username.
func (r *gormGoodsRepository) ListSoldBySeller(username string) ([]model.Goods, error) {
	var list []model.Goods
	if err := r.db.Where("ing = ? AND username = ?", true, username).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list sold goods for seller %s: %w", username, err)
	}
	return list, nil
}

// ListSoldByBuyer returns the sold goods bought by username.
func (r *gormGoodsRepository) ListSoldByBuyer(username string) ([]model.Goods, error) {
	var list []model.Goods
	if err := r.db.Where("ing = ? AND buyername = ?", true, username).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list sold goods for buyer %s: %w", username, err)
	}
	return list, nil
}

// Insert adds a new goods record.
// goodid 是否冲突由调用方先行检查，这里不提供原子的查重插入。
func (r *gormGoodsRepository) Insert(goods *model.Goods) error {
	if err := r.db.Create(goods).Error; err != nil {
		return fmt.Errorf("failed to insert goods %s: %w", goods.GoodID, err)
	}
	return nil
}

// Update overwrites goodname, goodprice, category, ing and buyername.
// img、goodid、username 创建后不可变，不在更新列之内。
func (r *gormGoodsRepository) Update(goods *model.Goods) (int64, error) {
	result := r.db.Model(&model.Goods{}).
		Where("goodid = ?", goods.GoodID).
		Select("goodname", "goodprice", "category", "ing", "buyername").
		Updates(goods)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update goods %s: %w", goods.GoodID, result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteByID removes a goods record, returning the number of rows deleted.
func (r *gormGoodsRepository) DeleteByID(goodid string) (int64, error) {
	result := r.db.Where("goodid = ?", goodid).Delete(&model.Goods{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete goods %s: %w", goodid, result.Error)
	}
	return result.RowsAffected, nil
}
