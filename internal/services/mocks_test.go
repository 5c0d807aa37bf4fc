package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"github.com/safeshipper/hazard-assessment-service/internal/cache"
	"github.com/safeshipper/hazard-assessment-service/internal/models"
	"github.com/safeshipper/hazard-assessment-service/internal/repositories"
)

// ===== ENTITY REPOSITORY MOCKS =====

type MockTemplateRepository struct {
	mock.Mock
}

func (m *MockTemplateRepository) Create(ctx context.Context, tx *gorm.DB, template *models.AssessmentTemplate) error {
	args := m.Called(ctx, tx, template)
	return args.Error(0)
}

func (m *MockTemplateRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.AssessmentTemplate, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AssessmentTemplate), args.Error(1)
}

func (m *MockTemplateRepository) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id string) (*models.AssessmentTemplate, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AssessmentTemplate), args.Error(1)
}

func (m *MockTemplateRepository) Update(ctx context.Context, tx *gorm.DB, template *models.AssessmentTemplate) error {
	args := m.Called(ctx, tx, template)
	return args.Error(0)
}

func (m *MockTemplateRepository) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockTemplateRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.TemplateFilters) ([]*models.AssessmentTemplate, int64, error) {
	args := m.Called(ctx, tx, filters)
	return args.Get(0).([]*models.AssessmentTemplate), args.Get(1).(int64), args.Error(2)
}

func (m *MockTemplateRepository) GetDefaultForCompany(ctx context.Context, tx *gorm.DB, companyID string) (*models.AssessmentTemplate, error) {
	args := m.Called(ctx, tx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AssessmentTemplate), args.Error(1)
}

func (m *MockTemplateRepository) SetActive(ctx context.Context, tx *gorm.DB, id string, active bool) error {
	args := m.Called(ctx, tx, id, active)
	return args.Error(0)
}

func (m *MockTemplateRepository) ExistsByName(ctx context.Context, tx *gorm.DB, name, companyID string, excludeID *string) (bool, error) {
	args := m.Called(ctx, tx, name, companyID, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTemplateRepository) HasAssessments(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	args := m.Called(ctx, tx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockTemplateRepository) GetTemplateStats(ctx context.Context, tx *gorm.DB, id string) (*repositories.TemplateStats, error) {
	args := m.Called(ctx, tx, id)
	return args.Get(0).(*repositories.TemplateStats), args.Error(1)
}

type MockAssignmentRepository struct {
	mock.Mock
}

func (m *MockAssignmentRepository) Create(ctx context.Context, tx *gorm.DB, assignment *models.AssessmentAssignment) error {
	args := m.Called(ctx, tx, assignment)
	return args.Error(0)
}

func (m *MockAssignmentRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.AssessmentAssignment, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AssessmentAssignment), args.Error(1)
}

func (m *MockAssignmentRepository) Update(ctx context.Context, tx *gorm.DB, assignment *models.AssessmentAssignment) error {
	args := m.Called(ctx, tx, assignment)
	return args.Error(0)
}

func (m *MockAssignmentRepository) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockAssignmentRepository) GetActiveForCompany(ctx context.Context, tx *gorm.DB, companyID string) ([]*models.AssessmentAssignment, error) {
	args := m.Called(ctx, tx, companyID)
	return args.Get(0).([]*models.AssessmentAssignment), args.Error(1)
}

func (m *MockAssignmentRepository) GetByTrigger(ctx context.Context, tx *gorm.DB, companyID string, trigger models.AssignmentTrigger) ([]*models.AssessmentAssignment, error) {
	args := m.Called(ctx, tx, companyID, trigger)
	return args.Get(0).([]*models.AssessmentAssignment), args.Error(1)
}

type MockAssessmentRepository struct {
	mock.Mock
}

func (m *MockAssessmentRepository) Create(ctx context.Context, tx *gorm.DB, assessment *models.HazardAssessment) error {
	args := m.Called(ctx, tx, assessment)
	return args.Error(0)
}

func (m *MockAssessmentRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.HazardAssessment, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.HazardAssessment), args.Error(1)
}

func (m *MockAssessmentRepository) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id string) (*models.HazardAssessment, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.HazardAssessment), args.Error(1)
}

func (m *MockAssessmentRepository) Update(ctx context.Context, tx *gorm.DB, assessment *models.HazardAssessment) error {
	args := m.Called(ctx, tx, assessment)
	return args.Error(0)
}

func (m *MockAssessmentRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.AssessmentFilters) ([]*models.HazardAssessment, int64, error) {
	args := m.Called(ctx, tx, filters)
	return args.Get(0).([]*models.HazardAssessment), args.Get(1).(int64), args.Error(2)
}

func (m *MockAssessmentRepository) GetByShipment(ctx context.Context, tx *gorm.DB, shipmentID string) ([]*models.HazardAssessment, error) {
	args := m.Called(ctx, tx, shipmentID)
	return args.Get(0).([]*models.HazardAssessment), args.Error(1)
}

func (m *MockAssessmentRepository) GetInProgressForUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.HazardAssessment, error) {
	args := m.Called(ctx, tx, userID)
	return args.Get(0).([]*models.HazardAssessment), args.Error(1)
}

func (m *MockAssessmentRepository) GetPendingOverrides(ctx context.Context, tx *gorm.DB, companyID string, limit, offset int) ([]*models.HazardAssessment, int64, error) {
	args := m.Called(ctx, tx, companyID, limit, offset)
	return args.Get(0).([]*models.HazardAssessment), args.Get(1).(int64), args.Error(2)
}

func (m *MockAssessmentRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status models.AssessmentStatus) error {
	args := m.Called(ctx, tx, id, status)
	return args.Error(0)
}

func (m *MockAssessmentRepository) GetCompletionStats(ctx context.Context, tx *gorm.DB, companyID string, filters repositories.AssessmentFilters) (*repositories.CompletionStats, error) {
	args := m.Called(ctx, tx, companyID, filters)
	return args.Get(0).(*repositories.CompletionStats), args.Error(1)
}

type MockAnswerRepository struct {
	mock.Mock
}

func (m *MockAnswerRepository) Upsert(ctx context.Context, tx *gorm.DB, answer *models.AssessmentAnswer) error {
	args := m.Called(ctx, tx, answer)
	return args.Error(0)
}

func (m *MockAnswerRepository) GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID string) ([]*models.AssessmentAnswer, error) {
	args := m.Called(ctx, tx, assessmentID)
	return args.Get(0).([]*models.AssessmentAnswer), args.Error(1)
}

func (m *MockAnswerRepository) GetByAssessmentAndQuestion(ctx context.Context, tx *gorm.DB, assessmentID, questionID string) (*models.AssessmentAnswer, error) {
	args := m.Called(ctx, tx, assessmentID, questionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AssessmentAnswer), args.Error(1)
}

func (m *MockAnswerRepository) CountByAssessment(ctx context.Context, tx *gorm.DB, assessmentID string) (int64, error) {
	args := m.Called(ctx, tx, assessmentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAnswerRepository) DeleteByAssessment(ctx context.Context, tx *gorm.DB, assessmentID string) error {
	args := m.Called(ctx, tx, assessmentID)
	return args.Error(0)
}

type MockSecurityEventRepository struct {
	mock.Mock
}

func (m *MockSecurityEventRepository) Create(ctx context.Context, tx *gorm.DB, event *models.SecurityEvent) error {
	args := m.Called(ctx, tx, event)
	return args.Error(0)
}

func (m *MockSecurityEventRepository) CreateBatch(ctx context.Context, tx *gorm.DB, events []*models.SecurityEvent) error {
	args := m.Called(ctx, tx, events)
	return args.Error(0)
}

func (m *MockSecurityEventRepository) GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID string) ([]*models.SecurityEvent, error) {
	args := m.Called(ctx, tx, assessmentID)
	return args.Get(0).([]*models.SecurityEvent), args.Error(1)
}

func (m *MockSecurityEventRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.SecurityEventFilters) ([]*models.SecurityEvent, int64, error) {
	args := m.Called(ctx, tx, filters)
	return args.Get(0).([]*models.SecurityEvent), args.Get(1).(int64), args.Error(2)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	args := m.Called(ctx, tx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Upsert(ctx context.Context, tx *gorm.DB, user *models.User) error {
	args := m.Called(ctx, tx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByRole(ctx context.Context, tx *gorm.DB, companyID string, role models.UserRole, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, tx, companyID, role, limit, offset)
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByID(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	args := m.Called(ctx, tx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) HasRole(ctx context.Context, tx *gorm.DB, id string, role models.UserRole) (bool, error) {
	args := m.Called(ctx, tx, id, role)
	return args.Bool(0), args.Error(1)
}

// ===== AGGREGATE MOCK =====

// MockRepository is a mock implementation of the main Repository interface.
// WithTransaction runs the callback against the same mocks so transactional
// paths can be asserted.
type MockRepository struct {
	mock.Mock
	templateRepo      *MockTemplateRepository
	assignmentRepo    *MockAssignmentRepository
	assessmentRepo    *MockAssessmentRepository
	answerRepo        *MockAnswerRepository
	securityEventRepo *MockSecurityEventRepository
	userRepo          *MockUserRepository
}

func newMockRepository() *MockRepository {
	return &MockRepository{
		templateRepo:      &MockTemplateRepository{},
		assignmentRepo:    &MockAssignmentRepository{},
		assessmentRepo:    &MockAssessmentRepository{},
		answerRepo:        &MockAnswerRepository{},
		securityEventRepo: &MockSecurityEventRepository{},
		userRepo:          &MockUserRepository{},
	}
}

func (m *MockRepository) Template() repositories.TemplateRepository           { return m.templateRepo }
func (m *MockRepository) Assignment() repositories.AssignmentRepository       { return m.assignmentRepo }
func (m *MockRepository) Assessment() repositories.AssessmentRepository       { return m.assessmentRepo }
func (m *MockRepository) Answer() repositories.AnswerRepository               { return m.answerRepo }
func (m *MockRepository) SecurityEvent() repositories.SecurityEventRepository { return m.securityEventRepo }
func (m *MockRepository) User() repositories.UserRepository                   { return m.userRepo }
func (m *MockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}
func (m *MockRepository) Ping(ctx context.Context) error { return nil }
func (m *MockRepository) Close() error                   { return nil }

// ===== SUPPORTING FAKES =====

// fakeCache is an in-memory CacheService for flow resume tests.
type fakeCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[string][]byte)}
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.items[key] = data
	return nil
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.items[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *fakeCache) DeletePattern(ctx context.Context, pattern string) error {
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stringPtr(s string) *string {
	return &s
}
