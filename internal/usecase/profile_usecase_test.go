package usecase_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"strings"
	"testing"

	"go-freelance-backend/internal/domain"
	"go-freelance-backend/internal/repository/document"
	"go-freelance-backend/internal/repository/memory"
	"go-freelance-backend/internal/usecase"
	"go-freelance-backend/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type profileFixture struct {
	local    *memory.LocalStore
	profiles domain.ProfileRepository
	usecase  domain.ProfileUsecase
	sessions domain.SessionUsecase
}

func newProfileFixture(icons domain.IconStore) *profileFixture {
	store := memory.NewTreeStore()
	f := &profileFixture{local: memory.NewLocalStore(), profiles: document.NewProfileRepository(store)}
	f.usecase = usecase.NewProfileUsecase(f.profiles, f.local, icons, validation.New())
	f.sessions = usecase.NewSessionUsecase(f.local, f.profiles)
	return f
}

var ann = domain.Identity{UID: "u1", DisplayName: " Ann Lee ", Email: "ann@example.com"}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("Should fail without a signed-in user", func(t *testing.T) {
		f := newProfileFixture(nil)
		_, err := f.usecase.Register(ctx, domain.Identity{}, domain.RoleClient)
		assertCode(t, err, http.StatusUnauthorized)
	})

	t.Run("Should refuse roles users cannot pick", func(t *testing.T) {
		f := newProfileFixture(nil)
		_, err := f.usecase.Register(ctx, ann, domain.RoleAdmin)
		assertCode(t, err, http.StatusBadRequest)
	})

	t.Run("Should create the profile and remember the role", func(t *testing.T) {
		f := newProfileFixture(nil)

		profile, err := f.usecase.Register(ctx, ann, domain.RoleFreelancer)
		require.NoError(t, err)
		assert.Equal(t, "Ann Lee", profile.Name)
		assert.Equal(t, domain.RoleFreelancer, profile.Role)

		session, err := f.local.GetSession(ctx, ann.UID)
		require.NoError(t, err)
		assert.Equal(t, "Freelancer", session[domain.SessionRole])
		assert.Equal(t, "Ann Lee", session[domain.SessionNameSur])
	})

	t.Run("Should return the stored profile for the same role", func(t *testing.T) {
		f := newProfileFixture(nil)
		first, err := f.usecase.Register(ctx, ann, domain.RoleClient)
		require.NoError(t, err)

		again, err := f.usecase.Register(ctx, ann, domain.RoleClient)
		require.NoError(t, err)
		assert.Equal(t, first.CreatedAt, again.CreatedAt)
	})

	t.Run("Should refuse to change the role", func(t *testing.T) {
		f := newProfileFixture(nil)
		_, err := f.usecase.Register(ctx, ann, domain.RoleClient)
		require.NoError(t, err)

		_, err = f.usecase.Register(ctx, ann, domain.RoleFreelancer)
		assertCode(t, err, http.StatusConflict)
		assert.Contains(t, err.Error(), "Client")
	})

	t.Run("Should not let users register as admin", func(t *testing.T) {
		f := newProfileFixture(nil)
		_, err := f.usecase.Register(ctx, ann, domain.RoleAdmin)
		assertCode(t, err, http.StatusBadRequest)
	})
}

func TestGrantAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("Should create an admin profile and session role", func(t *testing.T) {
		f := newProfileFixture(nil)
		profile, err := f.usecase.GrantAdmin(ctx, " boss ")
		require.NoError(t, err)
		assert.Equal(t, "boss", profile.UID)
		assert.Equal(t, domain.RoleAdmin, profile.Role)

		stored, err := f.profiles.GetByID(ctx, "boss")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, stored.Role)

		session, err := f.local.GetSession(ctx, "boss")
		require.NoError(t, err)
		assert.Equal(t, string(domain.RoleAdmin), session[domain.SessionRole])
	})

	t.Run("Should be idempotent and survive a later sign-up", func(t *testing.T) {
		f := newProfileFixture(nil)
		_, err := f.usecase.GrantAdmin(ctx, ann.UID)
		require.NoError(t, err)
		again, err := f.usecase.GrantAdmin(ctx, ann.UID)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, again.Role)

		_, err = f.usecase.Register(ctx, ann, domain.RoleClient)
		assertCode(t, err, http.StatusConflict)
	})

	t.Run("Should keep an existing marketplace role", func(t *testing.T) {
		f := newProfileFixture(nil)
		_, err := f.usecase.Register(ctx, ann, domain.RoleFreelancer)
		require.NoError(t, err)

		_, err = f.usecase.GrantAdmin(ctx, ann.UID)
		assertCode(t, err, http.StatusConflict)
	})

	t.Run("Should require a uid", func(t *testing.T) {
		f := newProfileFixture(nil)
		_, err := f.usecase.GrantAdmin(ctx, "  ")
		assertCode(t, err, http.StatusBadRequest)
	})
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("Should fail for an unknown user", func(t *testing.T) {
		f := newProfileFixture(nil)
		_, err := f.usecase.UpdateProfile(ctx, "nobody", domain.ProfileInput{Bio: "hi"})
		assertCode(t, err, http.StatusNotFound)
	})

	t.Run("Should fail on an oversized bio", func(t *testing.T) {
		f := newProfileFixture(nil)
		_, _ = f.usecase.Register(ctx, ann, domain.RoleFreelancer)

		_, err := f.usecase.UpdateProfile(ctx, ann.UID, domain.ProfileInput{Bio: strings.Repeat("a", 501)})
		assertCode(t, err, http.StatusBadRequest)
		assert.Contains(t, err.Error(), "Bio: must be at most 500 characters")
	})

	t.Run("Should store the trimmed fields", func(t *testing.T) {
		f := newProfileFixture(nil)
		_, _ = f.usecase.Register(ctx, ann, domain.RoleFreelancer)

		profile, err := f.usecase.UpdateProfile(ctx, ann.UID, domain.ProfileInput{
			Bio:          " Illustrator ",
			Profession:   "Designer",
			SelectedIcon: "cat",
		})
		require.NoError(t, err)
		assert.Equal(t, "Illustrator", profile.Bio)
		assert.Equal(t, "cat", profile.SelectedIcon)
		assert.Equal(t, domain.RoleFreelancer, profile.Role)
	})
}

func TestUploadIcon(t *testing.T) {
	ctx := context.Background()

	t.Run("Should refuse empty and non-image uploads", func(t *testing.T) {
		f := newProfileFixture(nil)
		_, _ = f.usecase.Register(ctx, ann, domain.RoleClient)

		_, err := f.usecase.UploadIcon(ctx, ann.UID, nil)
		assertCode(t, err, http.StatusBadRequest)

		_, err = f.usecase.UploadIcon(ctx, ann.UID, []byte("GIF89a not really"))
		assertCode(t, err, http.StatusBadRequest)
		assert.Contains(t, err.Error(), "PNG or JPEG")
	})

	t.Run("Should inline the icon without an icon store", func(t *testing.T) {
		f := newProfileFixture(nil)
		_, _ = f.usecase.Register(ctx, ann, domain.RoleClient)

		profile, err := f.usecase.UploadIcon(ctx, ann.UID, pngBytes(t, 512, 300))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(profile.CustomIcon, "data:image/jpeg;base64,"))
	})

	t.Run("Should store the icon and keep its URL", func(t *testing.T) {
		icons := &mockIconStore{}
		f := newProfileFixture(icons)
		_, _ = f.usecase.Register(ctx, ann, domain.RoleClient)

		icons.On("PutIcon", mock.Anything, ann.UID, mock.AnythingOfType("[]uint8")).
			Return("https://icons.example.com/icons/u1.jpg", nil).Once()

		profile, err := f.usecase.UploadIcon(ctx, ann.UID, pngBytes(t, 64, 64))
		require.NoError(t, err)
		assert.Equal(t, "https://icons.example.com/icons/u1.jpg", profile.CustomIcon)
		icons.AssertExpectations(t)
	})
}

func TestListUsers(t *testing.T) {
	t.Run("Should fail for non-admins", func(t *testing.T) {
		f := newProfileFixture(nil)
		_, err := f.usecase.ListUsers(context.Background(), client)
		assertCode(t, err, http.StatusForbidden)
	})

	t.Run("Should classify every profile", func(t *testing.T) {
		f := newProfileFixture(nil)
		_, _ = f.usecase.Register(context.Background(), ann, domain.RoleClient)

		dir, err := f.usecase.ListUsers(context.Background(), admin)
		require.NoError(t, err)
		assert.Equal(t, int64(1), dir.Counts.Client)
	})
}

func TestSession(t *testing.T) {
	ctx := context.Background()

	t.Run("Should fail to sign in without a uid", func(t *testing.T) {
		f := newProfileFixture(nil)
		_, err := f.sessions.SignIn(ctx, domain.Identity{})
		assertCode(t, err, http.StatusUnauthorized)
	})

	t.Run("Should store identity and the known role", func(t *testing.T) {
		f := newProfileFixture(nil)
		_, _ = f.usecase.Register(ctx, ann, domain.RoleFreelancer)

		session, err := f.sessions.SignIn(ctx, ann)
		require.NoError(t, err)
		assert.Equal(t, ann.UID, session[domain.SessionUserUID])
		assert.Equal(t, ann.Email, session[domain.SessionEmail])
		assert.Equal(t, "Freelancer", session[domain.SessionRole])
	})

	t.Run("Should leave the role out before registration", func(t *testing.T) {
		f := newProfileFixture(nil)

		session, err := f.sessions.SignIn(ctx, ann)
		require.NoError(t, err)
		assert.NotContains(t, session, domain.SessionRole)
	})

	t.Run("Should clear everything on sign out", func(t *testing.T) {
		f := newProfileFixture(nil)
		_, _ = f.sessions.SignIn(ctx, ann)

		require.NoError(t, f.sessions.SignOut(ctx, ann.UID))
		session, err := f.sessions.GetSession(ctx, ann.UID)
		require.NoError(t, err)
		assert.Empty(t, session)
	})

	t.Run("Should record navigation newest first", func(t *testing.T) {
		f := newProfileFixture(nil)

		_, err := f.sessions.RecordNavigation(ctx, ann.UID, "jobs")
		assertCode(t, err, http.StatusBadRequest)

		_, _ = f.sessions.RecordNavigation(ctx, ann.UID, "/jobs")
		nav, err := f.sessions.RecordNavigation(ctx, ann.UID, " /profile ")
		require.NoError(t, err)
		assert.Equal(t, []string{"/profile", "/jobs"}, nav)
	})
}
