package postgres

import (
	"errors"

	userDatamodel "github.com/frahmantamala/event-ticketing/internal/core/datamodel/user"
	"github.com/frahmantamala/event-ticketing/internal/user"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(userID int64) (*user.User, error) {
	var record userDatamodel.User
	err := r.db.Where("id = ? AND is_active = true", userID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&record), nil
}

func (r *UserRepository) GetPermissions(userID int64) ([]string, error) {
	var permissions []string
	err := r.db.Table("permissions").
		Select("permissions.name").
		Joins("JOIN user_permissions ON permissions.id = user_permissions.permission_id").
		Where("user_permissions.user_id = ?", userID).
		Scan(&permissions).Error
	if err != nil {
		return nil, err
	}
	return permissions, nil
}
