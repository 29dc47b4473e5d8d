package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"stepstunner/api/internal/apperr"
	"stepstunner/api/internal/models"
	"stepstunner/api/internal/repository"
)

// AdminService covers the user and audit-log surfaces of the dashboard.
// Product and order administration go through CatalogService and
// OrderService. The role gate itself lives in the router middleware.
type AdminService struct {
	users    UserStore
	sessions SessionStore
	activity ActivityStore
	recorder *ActivityRecorder
	log      zerolog.Logger
}

func NewAdminService(
	users UserStore,
	sessions SessionStore,
	activity ActivityStore,
	recorder *ActivityRecorder,
	log zerolog.Logger,
) *AdminService {
	return &AdminService{
		users:    users,
		sessions: sessions,
		activity: activity,
		recorder: recorder,
		log:      log,
	}
}

func (s *AdminService) SearchUsers(ctx context.Context, q string, page int, limit int) ([]models.User, int, error) {
	limit, offset := normalizePage(page, limit)
	users, total, err := s.users.Search(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return users, total, nil
}

type UpdateUserInput struct {
	Role   *models.UserRole
	Active *bool
}

// UpdateUser changes role or active flag. A role change does not invalidate
// tokens already issued; deactivation does revoke the user's sessions.
func (s *AdminService) UpdateUser(ctx context.Context, adminID string, userID string, input UpdateUserInput) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, apperr.NotFound("user not found")
		}
		return models.User{}, apperr.Internal(err)
	}

	if input.Role != nil {
		if *input.Role != models.UserRoleUser && *input.Role != models.UserRoleAdmin {
			return models.User{}, apperr.Validation("unknown role")
		}
		user.Role = *input.Role
	}
	if input.Active != nil {
		user.Active = *input.Active
	}

	if err := s.users.Update(ctx, user); err != nil {
		return models.User{}, apperr.Internal(err)
	}

	if input.Active != nil && !*input.Active {
		if err := s.sessions.DeleteByUser(ctx, userID); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("session revocation failed")
		}
	}

	s.recorder.Record(ActivityEntry{
		UserID:  &adminID,
		Action:  "admin_user_updated",
		Details: map[string]any{"target": userID},
	})
	return user, nil
}

func (s *AdminService) DeleteUser(ctx context.Context, adminID string, userID string) error {
	if adminID == userID {
		return apperr.Validation("cannot delete own account")
	}

	if err := s.sessions.DeleteByUser(ctx, userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("session revocation failed")
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal(err)
	}

	s.recorder.Record(ActivityEntry{
		UserID:  &adminID,
		Action:  "admin_user_deleted",
		Details: map[string]any{"target": userID},
	})
	return nil
}

func (s *AdminService) SearchLogs(ctx context.Context, q string, page int, limit int) ([]models.ActivityLog, int, error) {
	limit, offset := normalizePage(page, limit)
	logs, total, err := s.activity.Search(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return logs, total, nil
}
