package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/divyanshu1906/CrowdFunding-Website/internal/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).First(&u, id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByLogin finds a user by username or email.
func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("username = ? OR email = ?", login, login).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Exists reports whether the username or email is already taken.
func (r *UserRepository) Exists(ctx context.Context, username, email string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&n).Error
	return n > 0, err
}
