package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/safeshipper/hazard-assessment-service/internal/models"
)

// UserRepository interface for user operations (this service is not the owner
// of user data, identity lives in Casdoor)
type UserRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error)
	Upsert(ctx context.Context, tx *gorm.DB, user *models.User) error

	// Role-based queries
	GetByRole(ctx context.Context, tx *gorm.DB, companyID string, role models.UserRole, limit, offset int) ([]*models.User, error)

	// Validation and checks
	ExistsByID(ctx context.Context, tx *gorm.DB, id string) (bool, error)
	HasRole(ctx context.Context, tx *gorm.DB, id string, role models.UserRole) (bool, error)
}
