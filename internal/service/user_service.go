package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/word-sanctuary/appraisal-api/internal/models"
	appErrors "github.com/word-sanctuary/appraisal-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	UpdateProfile(ctx context.Context, id, fullName, phone string) error
	UpdateSettings(ctx context.Context, id string, settings []byte) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	UpdateRole(ctx context.Context, id string, role models.Role) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UpdateProfileRequest carries the editable profile fields.
type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Phone    string `json:"phone"`
}

// UserService implements profile, settings and role assignment.
type UserService struct {
	users     userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(users userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{users: users, validator: validate, logger: logger}
}

// Me returns the authenticated user's record.
func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// UpdateProfile edits the profile tab fields.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	if err := s.users.UpdateProfile(ctx, userID, req.FullName, req.Phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	return nil
}

// Settings returns the stored settings document, falling back to defaults
// when none has been saved.
func (s *UserService) Settings(ctx context.Context, userID string) (*models.UserSettings, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	settings := defaultSettings()
	if len(user.Settings) > 0 {
		if err := json.Unmarshal(user.Settings, settings); err != nil {
			s.logger.Warn("corrupt settings document", zap.String("user_id", userID), zap.Error(err))
			settings = defaultSettings()
		}
	}
	return settings, nil
}

// UpdateSettings replaces the notification/system preferences.
func (s *UserService) UpdateSettings(ctx context.Context, userID string, settings models.UserSettings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode settings")
	}
	if err := s.users.UpdateSettings(ctx, userID, payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update settings")
	}
	return nil
}

// ChangePassword sets a new password from the security tab. Accounts created
// through the verification-code flow have no password yet; for those the
// current-password check is skipped.
func (s *UserService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid password payload")
	}

	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}

	if user.PasswordHash != nil && *user.PasswordHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
			return appErrors.Clone(appErrors.ErrForbidden, "current password does not match")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hash), time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}
	return nil
}

// List returns users for the role assignment screen.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return users, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// AssignRole changes a user's stored role and audits the change.
func (s *UserService) AssignRole(ctx context.Context, userID string, role models.Role, assignedBy string) error {
	if !role.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign role")
	}

	payload, _ := json.Marshal(map[string]string{"role": string(role)})
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &assignedBy,
		Action:     models.AuditActionAssignRole,
		Resource:   "user",
		ResourceID: &userID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record role assignment audit log", zap.Error(err))
	}
	return nil
}

func defaultSettings() *models.UserSettings {
	return &models.UserSettings{
		Notifications: models.NotificationSettings{
			Email:         true,
			AppraisalDue:  true,
			AssessmentDue: true,
			Announcements: true,
		},
		System: models.SystemSettings{
			Theme:    "light",
			Language: "en",
			Timezone: "Africa/Lagos",
		},
	}
}
