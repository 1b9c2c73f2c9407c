package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-freelance-backend/internal/domain"
	"go-freelance-backend/pkg/apperror"
	"go-freelance-backend/pkg/logger"
	"go-freelance-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
)

// DefaultMaxMilestones is used when no positive limit is configured.
const DefaultMaxMilestones = 3

// nowMillis is the timestamp source for every record written by usecases.
var nowMillis = func() int64 { return time.Now().UnixMilli() }

// notFoundOr maps domain.ErrNotFound to a 404 with message and anything else
// to an internal error.
func notFoundOr(err error, message string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return apperror.NotFound(message)
	}
	return apperror.Internal(err)
}

type jobUsecase struct {
	jobRepo       domain.JobRepository
	appRepo       domain.ApplicationRepository
	validate      *validator.Validate
	maxMilestones int
}

func NewJobUsecase(jobRepo domain.JobRepository, appRepo domain.ApplicationRepository, validate *validator.Validate, maxMilestones int) domain.JobUsecase {
	if maxMilestones < 1 {
		maxMilestones = DefaultMaxMilestones
	}
	return &jobUsecase{
		jobRepo:       jobRepo,
		appRepo:       appRepo,
		validate:      validate,
		maxMilestones: maxMilestones,
	}
}

func (u *jobUsecase) validateInput(input *domain.JobInput) error {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Category = strings.TrimSpace(input.Category)

	if err := u.validate.Struct(input); err != nil {
		return apperror.BadRequest(validation.Message(err))
	}
	if len(input.Milestones) > u.maxMilestones {
		return apperror.BadRequest(fmt.Sprintf("Milestones: at most %d allowed", u.maxMilestones))
	}
	return nil
}

// milestonesFrom copies the submitted milestones with every status reset to
// Pending.
func milestonesFrom(in []domain.Milestone) []domain.Milestone {
	out := make([]domain.Milestone, len(in))
	for i, m := range in {
		out[i] = domain.Milestone{
			Description: strings.TrimSpace(m.Description),
			Amount:      m.Amount,
			DueDate:     m.DueDate,
			Status:      domain.MilestonePending,
		}
	}
	return out
}

func (u *jobUsecase) CreateJob(ctx context.Context, actor domain.Actor, input domain.JobInput) (*domain.Job, error) {
	if actor.Role != domain.RoleClient {
		return nil, apperror.Forbidden("Only clients can post jobs")
	}
	if err := u.validateInput(&input); err != nil {
		return nil, err
	}

	ts := nowMillis()
	job := &domain.Job{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Budget:      input.Budget,
		Deadline:    input.Deadline,
		ClientUID:   actor.UID,
		Milestones:  milestonesFrom(input.Milestones),
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}

	if err := u.jobRepo.Create(ctx, job); err != nil {
		return nil, apperror.Internal(err)
	}
	if err := u.jobRepo.IndexForClient(ctx, actor.UID, job.ID, ts); err != nil {
		// Without the index the client would never see the job, so drop it.
		if rmErr := u.jobRepo.Delete(ctx, job.ID); rmErr != nil {
			logger.Log.Error("Failed to remove unindexed job", "job_id", job.ID, "error", rmErr)
		}
		return nil, apperror.Internal(err)
	}

	logger.Log.Info("Job created", "job_id", job.ID, "client_uid", actor.UID)
	return job, nil
}

func (u *jobUsecase) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	job, err := u.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Job not found")
	}
	return job, nil
}

func (u *jobUsecase) ListJobs(ctx context.Context) ([]domain.Job, error) {
	jobs, err := u.jobRepo.Fetch(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return jobs, nil
}

func (u *jobUsecase) ListJobsForClient(ctx context.Context, clientUID string) ([]domain.Job, error) {
	jobs, err := u.jobRepo.FetchByClient(ctx, clientUID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return jobs, nil
}

func (u *jobUsecase) WatchJobsForClient(ctx context.Context, clientUID string, fn func([]domain.Job, error)) (domain.Unsubscribe, error) {
	unsubscribe, err := u.jobRepo.WatchClient(ctx, clientUID, fn)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return unsubscribe, nil
}

func (u *jobUsecase) UpdateJob(ctx context.Context, actor domain.Actor, id string, input domain.JobInput) (*domain.Job, error) {
	job, err := u.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Job not found")
	}
	if job.ClientUID != actor.UID {
		return nil, apperror.Forbidden("You can only edit your own jobs")
	}
	if err := u.validateInput(&input); err != nil {
		return nil, err
	}

	ts := nowMillis()
	job.Title = input.Title
	job.Description = input.Description
	job.Category = input.Category
	job.Budget = input.Budget
	job.Deadline = input.Deadline
	job.Milestones = milestonesFrom(input.Milestones)
	job.UpdatedAt = ts

	if err := u.jobRepo.Update(ctx, job); err != nil {
		return nil, apperror.Internal(err)
	}
	if err := u.jobRepo.IndexForClient(ctx, job.ClientUID, job.ID, ts); err != nil {
		logger.Log.Warn("Failed to touch client job index", "job_id", job.ID, "error", err)
	}
	return job, nil
}

// DeleteJob removes the job and everything hanging off it. Deleting a job
// that does not exist succeeds. Removals are independent: each is attempted
// and the failures are reported together.
func (u *jobUsecase) DeleteJob(ctx context.Context, actor domain.Actor, id string) error {
	job, err := u.jobRepo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperror.Internal(err)
	}
	if job.ClientUID != actor.UID {
		return apperror.Forbidden("You can only delete your own jobs")
	}

	var errs []error
	applicants, err := u.appRepo.ListByJob(ctx, id)
	if err != nil {
		errs = append(errs, fmt.Errorf("list applicants: %w", err))
	}

	if err := u.jobRepo.Delete(ctx, id); err != nil {
		errs = append(errs, fmt.Errorf("remove job: %w", err))
	}
	if err := u.appRepo.DeleteByJob(ctx, id); err != nil {
		errs = append(errs, fmt.Errorf("remove applications: %w", err))
	}
	if err := u.appRepo.DeleteAcceptedByJob(ctx, id); err != nil {
		errs = append(errs, fmt.Errorf("remove accepted applications: %w", err))
	}
	if err := u.appRepo.DeleteRejectedByJob(ctx, id); err != nil {
		errs = append(errs, fmt.Errorf("remove rejected applications: %w", err))
	}
	if err := u.jobRepo.UnindexForClient(ctx, job.ClientUID, id); err != nil {
		errs = append(errs, fmt.Errorf("remove client index: %w", err))
	}
	for _, app := range applicants {
		if err := u.appRepo.UnindexForApplicant(ctx, app.ApplicantUID, id); err != nil {
			errs = append(errs, fmt.Errorf("remove applicant index %s: %w", app.ApplicantUID, err))
		}
	}

	if len(errs) > 0 {
		joined := errors.Join(errs...)
		logger.Log.Error("Job deletion incomplete", "job_id", id, "error", joined)
		return apperror.Internal(joined)
	}

	logger.Log.Info("Job deleted", "job_id", id, "applicants", len(applicants))
	return nil
}
