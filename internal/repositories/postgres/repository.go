package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/safeshipper/hazard-assessment-service/internal/repositories"
)

// PostgresRepository bundles all entity repositories over one gorm connection.
type PostgresRepository struct {
	db *gorm.DB

	template      repositories.TemplateRepository
	assignment    repositories.AssignmentRepository
	assessment    repositories.AssessmentRepository
	answer        repositories.AnswerRepository
	securityEvent repositories.SecurityEventRepository
	user          repositories.UserRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &PostgresRepository{
		db:            db,
		template:      NewTemplatePostgreSQL(db),
		assignment:    NewAssignmentPostgreSQL(db),
		assessment:    NewAssessmentPostgreSQL(db),
		answer:        NewAnswerPostgreSQL(db),
		securityEvent: NewSecurityEventPostgreSQL(db),
		user:          NewUserPostgreSQL(db),
	}
}

func (r *PostgresRepository) Template() repositories.TemplateRepository {
	return r.template
}

func (r *PostgresRepository) Assignment() repositories.AssignmentRepository {
	return r.assignment
}

func (r *PostgresRepository) Assessment() repositories.AssessmentRepository {
	return r.assessment
}

func (r *PostgresRepository) Answer() repositories.AnswerRepository {
	return r.answer
}

func (r *PostgresRepository) SecurityEvent() repositories.SecurityEventRepository {
	return r.securityEvent
}

func (r *PostgresRepository) User() repositories.UserRepository {
	return r.user
}

// WithTransaction runs fn with a Repository bound to a single transaction.
func (r *PostgresRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (r *PostgresRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// session picks the transaction handle when one is supplied, the base
// connection otherwise.
func session(ctx context.Context, db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// applyPagination applies limit/offset with a sane default page size.
func applyPagination(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit <= 0 {
		limit = 50
	}
	return query.Limit(limit).Offset(offset)
}

// applySort appends an ORDER BY clause from a whitelisted column set.
func applySort(query *gorm.DB, sortBy, sortOrder string, allowed map[string]bool, fallback string) *gorm.DB {
	column := fallback
	if allowed[sortBy] {
		column = sortBy
	}
	direction := "DESC"
	if sortOrder == "asc" {
		direction = "ASC"
	}
	return query.Order(fmt.Sprintf("%s %s", column, direction))
}
