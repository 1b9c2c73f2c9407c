package usecase

import (
	"context"
	"errors"
	"strings"

	"go-freelance-backend/internal/domain"
	"go-freelance-backend/pkg/apperror"
	"go-freelance-backend/pkg/logger"
)

type sessionUsecase struct {
	sessions    domain.SessionStore
	profileRepo domain.ProfileRepository
}

func NewSessionUsecase(sessions domain.SessionStore, profileRepo domain.ProfileRepository) domain.SessionUsecase {
	return &sessionUsecase{
		sessions:    sessions,
		profileRepo: profileRepo,
	}
}

// SignIn stores the identity under the fixed session keys. When the user
// already has a profile its role and name are stored too.
func (u *sessionUsecase) SignIn(ctx context.Context, identity domain.Identity) (map[string]string, error) {
	if identity.UID == "" {
		return nil, apperror.Unauthorized("User not authenticated")
	}

	fields := map[string]string{
		domain.SessionUserUID:  identity.UID,
		domain.SessionUserName: identity.DisplayName,
		domain.SessionEmail:    identity.Email,
	}

	profile, err := u.profileRepo.GetByID(ctx, identity.UID)
	switch {
	case err == nil:
		fields[domain.SessionRole] = string(profile.Role)
		fields[domain.SessionNameSur] = profile.Name
	case !errors.Is(err, domain.ErrNotFound):
		logger.Log.Warn("Failed to load profile on sign-in", "uid", identity.UID, "error", err)
	}

	if err := u.sessions.SaveSession(ctx, identity.UID, fields); err != nil {
		return nil, apperror.Internal(err)
	}
	return u.GetSession(ctx, identity.UID)
}

func (u *sessionUsecase) GetSession(ctx context.Context, uid string) (map[string]string, error) {
	session, err := u.sessions.GetSession(ctx, uid)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return session, nil
}

func (u *sessionUsecase) SignOut(ctx context.Context, uid string) error {
	if err := u.sessions.ClearSession(ctx, uid); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func (u *sessionUsecase) RecordNavigation(ctx context.Context, uid, path string) ([]string, error) {
	path = strings.TrimSpace(path)
	if path == "" || !strings.HasPrefix(path, "/") {
		return nil, apperror.BadRequest("Path must start with /")
	}
	if err := u.sessions.PushNavigation(ctx, uid, path); err != nil {
		return nil, apperror.Internal(err)
	}
	return u.Navigation(ctx, uid)
}

func (u *sessionUsecase) Navigation(ctx context.Context, uid string) ([]string, error) {
	entries, err := u.sessions.Navigation(ctx, uid)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return entries, nil
}
