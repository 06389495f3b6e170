package repository

import (
	"context"
	"strings"

	"github.com/leon37/finsight/internal/model"
	"gorm.io/gorm"
)

// UserRepo 定义接口 (为了以后方便 Mock)
type UserRepo interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByWhatsApp(ctx context.Context, number string) (*model.User, error)
}

type userRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepo {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	// 查找 Email，如果没找到返回 gorm.ErrRecordNotFound
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByWhatsApp 按已验证的 WhatsApp 号码找用户
// 存库的号码可能带也可能不带 + 前缀，两种都试一下
func (r *userRepo) GetByWhatsApp(ctx context.Context, number string) (*model.User, error) {
	clean := strings.TrimPrefix(number, "+")

	var user model.User
	err := r.db.WithContext(ctx).
		Where("whats_app_verified = ? AND (whats_app_number = ? OR whats_app_number = ?)",
			true, clean, "+"+clean).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
