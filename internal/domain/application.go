package domain

import "context"

type ApplicationStatus string

// Application status constants. accepted and rejected are terminal.
const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusAccepted ApplicationStatus = "accepted"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// Application is a freelancer's bid on a job, keyed by job and applicant.
// Copies of it live in the accepted/rejected collections once decided; the
// accepted copy carries the milestone ledger.
type Application struct {
	ID            string            `json:"id,omitempty"`
	JobID         string            `json:"jobId"`
	JobTitle      string            `json:"jobTitle,omitempty"`
	ClientUID     string            `json:"clientUID,omitempty"`
	ApplicantUID  string            `json:"applicantUID"`
	Name          string            `json:"name"`
	Surname       string            `json:"surname"`
	Motivation    string            `json:"motivation"`
	Skills        string            `json:"skills"`
	Status        ApplicationStatus `json:"status"`
	JobMilestones []Milestone       `json:"job_milestones"`
	AppliedAt     int64             `json:"appliedAt"`
	AcceptedAt    int64             `json:"acceptedAt,omitempty"`
	RejectedAt    int64             `json:"rejectedAt,omitempty"`
}

type ApplicationInput struct {
	Name       string `json:"name" validate:"required,not_blank"`
	Surname    string `json:"surname" validate:"required,not_blank"`
	Motivation string `json:"motivation" validate:"required,not_blank"`
	Skills     string `json:"skills" validate:"required,not_blank"`
}

// ApplicationRepository defines data access for applications and their
// accepted/rejected copies.
type ApplicationRepository interface {
	Create(ctx context.Context, app *Application) error
	Get(ctx context.Context, jobID, applicantID string) (*Application, error)
	Exists(ctx context.Context, jobID, applicantID string) (bool, error)
	ListByJob(ctx context.Context, jobID string) ([]Application, error)
	ListByApplicant(ctx context.Context, applicantUID string) ([]Application, error)
	ListAll(ctx context.Context) ([]Application, error)
	UpdateStatus(ctx context.Context, jobID, applicantID string, status ApplicationStatus, fields map[string]any) error
	DeleteByJob(ctx context.Context, jobID string) error

	SaveAccepted(ctx context.Context, app *Application) error
	GetAccepted(ctx context.Context, jobID, applicantID string) (*Application, error)
	ListAcceptedByJob(ctx context.Context, jobID string) ([]Application, error)
	ListAccepted(ctx context.Context) ([]Application, error)
	ListAcceptedByApplicant(ctx context.Context, applicantUID string) ([]Application, error)
	RemoveAccepted(ctx context.Context, jobID, applicantID string) error
	DeleteAcceptedByJob(ctx context.Context, jobID string) error
	// TransitionMilestone moves a milestone from one status to another and
	// fails with ErrStaleValue when its status is no longer from.
	TransitionMilestone(ctx context.Context, jobID, applicantID string, index int, from, to MilestoneStatus) error

	SaveRejected(ctx context.Context, app *Application) error
	RemoveRejected(ctx context.Context, jobID, applicantID string) error
	DeleteRejectedByJob(ctx context.Context, jobID string) error

	IndexForApplicant(ctx context.Context, applicantUID, jobID string, touchedAt int64) error
	UnindexForApplicant(ctx context.Context, applicantUID, jobID string) error
	// WatchContracts re-delivers the applicant's accepted applications on
	// every change to the applicant index.
	WatchContracts(ctx context.Context, applicantUID string, fn func([]Application, error)) (Unsubscribe, error)
}

// ApplicationUsecase covers applying and the acceptance workflow.
type ApplicationUsecase interface {
	Apply(ctx context.Context, actor Actor, jobID string, input ApplicationInput) (*Application, error)
	ListByJob(ctx context.Context, actor Actor, jobID string) ([]Application, error)
	ListMine(ctx context.Context, actor Actor) ([]Application, error)
	ListContracts(ctx context.Context, actor Actor) ([]Application, error)
	WatchContracts(ctx context.Context, actor Actor, fn func([]Application, error)) (Unsubscribe, error)
	AcceptApplicant(ctx context.Context, actor Actor, jobID, applicantID string) (*Application, error)
	RejectApplicant(ctx context.Context, actor Actor, jobID, applicantID string) (*Application, error)
}
