package domain

import "context"

// Job is a posting owned by the client who created it.
type Job struct {
	ID          string      `json:"id,omitempty"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Budget      Amount      `json:"budget"`
	Deadline    string      `json:"deadline"`
	ClientUID   string      `json:"clientUID"`
	Milestones  []Milestone `json:"milestones"`
	CreatedAt   int64       `json:"createdAt"`
	UpdatedAt   int64       `json:"updatedAt"`
}

// JobInput is what a client submits when posting or editing a job.
type JobInput struct {
	Title       string      `json:"title" validate:"required,not_blank"`
	Description string      `json:"description" validate:"required,not_blank"`
	Category    string      `json:"category" validate:"required,not_blank"`
	Budget      Amount      `json:"budget" validate:"gt=0,finite"`
	Deadline    string      `json:"deadline" validate:"required,datetime=2006-01-02"`
	Milestones  []Milestone `json:"milestones" validate:"required,min=1,dive"`
}

type JobRepository interface {
	// Create stores the job under a generated id and sets job.ID.
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, id string) (*Job, error)
	Fetch(ctx context.Context) ([]Job, error)
	FetchByClient(ctx context.Context, clientUID string) ([]Job, error)
	Update(ctx context.Context, job *Job) error
	Delete(ctx context.Context, id string) error
	IndexForClient(ctx context.Context, clientUID, jobID string, touchedAt int64) error
	UnindexForClient(ctx context.Context, clientUID, jobID string) error
	// WatchClient re-delivers the client's full job list on every change.
	WatchClient(ctx context.Context, clientUID string, fn func([]Job, error)) (Unsubscribe, error)
}

type JobUsecase interface {
	CreateJob(ctx context.Context, actor Actor, input JobInput) (*Job, error)
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context) ([]Job, error)
	ListJobsForClient(ctx context.Context, clientUID string) ([]Job, error)
	WatchJobsForClient(ctx context.Context, clientUID string, fn func([]Job, error)) (Unsubscribe, error)
	UpdateJob(ctx context.Context, actor Actor, id string, input JobInput) (*Job, error)
	DeleteJob(ctx context.Context, actor Actor, id string) error
}
