package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-freelance-backend/internal/domain"
	"go-freelance-backend/pkg/apperror"
	"go-freelance-backend/pkg/imaging"
	"go-freelance-backend/pkg/logger"
	"go-freelance-backend/pkg/security"
	"go-freelance-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
)

// MaxIconUploadBytes bounds the raw size of an uploaded icon.
const MaxIconUploadBytes = 5 << 20

type profileUsecase struct {
	profileRepo domain.ProfileRepository
	sessions    domain.SessionStore
	icons       domain.IconStore
	validate    *validator.Validate
	audit       *security.SecurityLogger
}

// NewProfileUsecase stores icons in icons when it is non-nil and inlines
// them on the profile as data URLs otherwise.
func NewProfileUsecase(profileRepo domain.ProfileRepository, sessions domain.SessionStore, icons domain.IconStore, validate *validator.Validate) domain.ProfileUsecase {
	return &profileUsecase{
		profileRepo: profileRepo,
		sessions:    sessions,
		icons:       icons,
		validate:    validate,
		audit:       security.DefaultLogger(),
	}
}

// Register creates the profile the first time a user picks a role. Calling
// it again with the same role returns the stored profile; a different role
// is refused since roles never change.
func (u *profileUsecase) Register(ctx context.Context, identity domain.Identity, role domain.Role) (*domain.UserProfile, error) {
	if identity.UID == "" {
		return nil, apperror.Unauthorized("User not authenticated")
	}
	if role != domain.RoleClient && role != domain.RoleFreelancer {
		return nil, apperror.BadRequest("Role must be Client or Freelancer")
	}

	existing, err := u.profileRepo.GetByID(ctx, identity.UID)
	switch {
	case err == nil:
		if existing.Role != role {
			u.audit.LogUserEvent(ctx, security.EventRoleConflict, identity.UID, map[string]any{
				"role": string(existing.Role), "requested": string(role),
			})
			return nil, apperror.Conflict(fmt.Sprintf("Account is already registered as %s", existing.Role))
		}
		return existing, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, apperror.Internal(err)
	}

	profile := &domain.UserProfile{
		UID:       identity.UID,
		Name:      strings.TrimSpace(identity.DisplayName),
		Email:     identity.Email,
		Role:      role,
		CreatedAt: nowMillis(),
	}
	if err := u.profileRepo.Create(ctx, profile); err != nil {
		return nil, apperror.Internal(err)
	}

	err = u.sessions.SaveSession(ctx, identity.UID, map[string]string{
		domain.SessionRole:    string(role),
		domain.SessionNameSur: profile.Name,
	})
	if err != nil {
		logger.Log.Warn("Failed to store role in session", "uid", identity.UID, "error", err)
	}

	logger.Log.Info("Profile registered", "uid", identity.UID, "role", role)
	u.audit.LogUserEvent(ctx, security.EventRoleAssigned, identity.UID, map[string]any{"role": string(role)})
	return profile, nil
}

// GrantAdmin provisions an Admin profile for uid. Signed-in users can never
// pick this role themselves, so operators grant it before the user registers.
// An existing Client or Freelancer profile keeps its role.
func (u *profileUsecase) GrantAdmin(ctx context.Context, uid string) (*domain.UserProfile, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, apperror.BadRequest("User id is required")
	}

	existing, err := u.profileRepo.GetByID(ctx, uid)
	switch {
	case err == nil:
		if existing.Role != domain.RoleAdmin {
			return nil, apperror.Conflict(fmt.Sprintf("Account is already registered as %s", existing.Role))
		}
		return existing, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, apperror.Internal(err)
	}

	profile := &domain.UserProfile{
		UID:       uid,
		Role:      domain.RoleAdmin,
		CreatedAt: nowMillis(),
	}
	if err := u.profileRepo.Create(ctx, profile); err != nil {
		return nil, apperror.Internal(err)
	}
	if err := u.sessions.SaveSession(ctx, uid, map[string]string{domain.SessionRole: string(domain.RoleAdmin)}); err != nil {
		logger.Log.Warn("Failed to store role in session", "uid", uid, "error", err)
	}

	logger.Log.Info("Admin granted", "uid", uid)
	u.audit.LogUserEvent(ctx, security.EventAdminGranted, uid, map[string]any{"role": string(domain.RoleAdmin)})
	return profile, nil
}

func (u *profileUsecase) GetProfile(ctx context.Context, uid string) (*domain.UserProfile, error) {
	profile, err := u.profileRepo.GetByID(ctx, uid)
	if err != nil {
		return nil, notFoundOr(err, "Profile not found")
	}
	return profile, nil
}

func (u *profileUsecase) UpdateProfile(ctx context.Context, uid string, input domain.ProfileInput) (*domain.UserProfile, error) {
	if err := u.validate.Struct(input); err != nil {
		return nil, apperror.BadRequest(validation.Message(err))
	}
	if _, err := u.profileRepo.GetByID(ctx, uid); err != nil {
		return nil, notFoundOr(err, "Profile not found")
	}

	fields := map[string]any{
		"bio":          strings.TrimSpace(input.Bio),
		"profession":   strings.TrimSpace(input.Profession),
		"skills":       strings.TrimSpace(input.Skills),
		"selectedIcon": input.SelectedIcon,
	}
	if err := u.profileRepo.Update(ctx, uid, fields); err != nil {
		return nil, apperror.Internal(err)
	}
	return u.GetProfile(ctx, uid)
}

func (u *profileUsecase) UploadIcon(ctx context.Context, uid string, data []byte) (*domain.UserProfile, error) {
	if len(data) == 0 {
		return nil, apperror.BadRequest("Icon file is empty")
	}
	if len(data) > MaxIconUploadBytes {
		return nil, apperror.BadRequest("Icon file exceeds 5MB")
	}
	if _, err := u.profileRepo.GetByID(ctx, uid); err != nil {
		return nil, notFoundOr(err, "Profile not found")
	}

	if err := security.CheckImage(data); err != nil {
		u.audit.LogUserEvent(ctx, security.EventUploadRejected, uid, map[string]any{"size": len(data)})
		return nil, apperror.BadRequest("Icon must be a PNG or JPEG image")
	}

	var iconURL string
	if u.icons == nil {
		dataURL, err := imaging.IconDataURL(data)
		if err != nil {
			return nil, apperror.BadRequest("Icon must be a PNG or JPEG image")
		}
		iconURL = dataURL
	} else {
		jpeg, err := imaging.Compress(data, imaging.MaxIconDimension, imaging.IconQuality)
		if err != nil {
			return nil, apperror.BadRequest("Icon must be a PNG or JPEG image")
		}
		iconURL, err = u.icons.PutIcon(ctx, uid, jpeg)
		if err != nil {
			return nil, apperror.Internal(err)
		}
	}

	if err := u.profileRepo.Update(ctx, uid, map[string]any{"customIcon": iconURL}); err != nil {
		return nil, apperror.Internal(err)
	}
	return u.GetProfile(ctx, uid)
}

func (u *profileUsecase) ListUsers(ctx context.Context, actor domain.Actor) (*domain.UserDirectory, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperror.Forbidden("Only admins can list users")
	}
	profiles, err := u.profileRepo.List(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return ClassifyUsers(profiles), nil
}
