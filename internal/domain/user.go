package domain

import "context"

type Role string

const (
	RoleClient     Role = "Client"
	RoleFreelancer Role = "Freelancer"
	RoleAdmin      Role = "Admin"
)

func (r Role) Valid() bool {
	return r == RoleClient || r == RoleFreelancer || r == RoleAdmin
}

// Actor is the authenticated caller of a usecase. It is passed explicitly so
// no operation reads identity from ambient state.
type Actor struct {
	UID  string
	Role Role
}

// Identity is what the identity provider returns on sign-in.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// UserProfile is stored at Information/{uid}. Role is fixed at sign-up.
type UserProfile struct {
	UID          string `json:"uid"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	Bio          string `json:"bio"`
	Profession   string `json:"profession"`
	Skills       string `json:"skills"`
	TotalJobs    int    `json:"totalJobs"`
	SelectedIcon string `json:"selectedIcon"`
	CustomIcon   string `json:"customIcon,omitempty"`
	CreatedAt    int64  `json:"createdAt"`
}

type ProfileInput struct {
	Bio          string `json:"bio" validate:"max=500"`
	Profession   string `json:"profession" validate:"max=100"`
	Skills       string `json:"skills" validate:"max=500"`
	SelectedIcon string `json:"selectedIcon" validate:"max=64"`
}

type ProfileRepository interface {
	Create(ctx context.Context, profile *UserProfile) error
	GetByID(ctx context.Context, uid string) (*UserProfile, error)
	List(ctx context.Context) ([]UserProfile, error)
	Update(ctx context.Context, uid string, fields map[string]any) error
}

type ProfileUsecase interface {
	Register(ctx context.Context, identity Identity, role Role) (*UserProfile, error)
	GetProfile(ctx context.Context, uid string) (*UserProfile, error)
	UpdateProfile(ctx context.Context, uid string, input ProfileInput) (*UserProfile, error)
	UploadIcon(ctx context.Context, uid string, data []byte) (*UserProfile, error)
	ListUsers(ctx context.Context, actor Actor) (*UserDirectory, error)
	GrantAdmin(ctx context.Context, uid string) (*UserProfile, error)
}

// SessionUsecase persists identity and navigation for signed-in users.
type SessionUsecase interface {
	SignIn(ctx context.Context, identity Identity) (map[string]string, error)
	GetSession(ctx context.Context, uid string) (map[string]string, error)
	SignOut(ctx context.Context, uid string) error
	RecordNavigation(ctx context.Context, uid, path string) ([]string, error)
	Navigation(ctx context.Context, uid string) ([]string, error)
}
