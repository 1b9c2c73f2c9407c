package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-freelance-backend/internal/domain"
	"go-freelance-backend/pkg/apperror"
	"go-freelance-backend/pkg/logger"
	"go-freelance-backend/pkg/security"
	"go-freelance-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type applicationUsecase struct {
	appRepo     domain.ApplicationRepository
	jobRepo     domain.JobRepository
	profileRepo domain.ProfileRepository
	validate    *validator.Validate
	attempts    int
	audit       *security.SecurityLogger
}

func NewApplicationUsecase(appRepo domain.ApplicationRepository, jobRepo domain.JobRepository, profileRepo domain.ProfileRepository, validate *validator.Validate, attempts int) domain.ApplicationUsecase {
	return &applicationUsecase{
		appRepo:     appRepo,
		jobRepo:     jobRepo,
		profileRepo: profileRepo,
		validate:    validate,
		attempts:    attempts,
		audit:       security.DefaultLogger(),
	}
}

func (u *applicationUsecase) Apply(ctx context.Context, actor domain.Actor, jobID string, input domain.ApplicationInput) (*domain.Application, error) {
	if actor.Role != domain.RoleFreelancer {
		return nil, apperror.Forbidden("Only freelancers can apply to jobs")
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Surname = strings.TrimSpace(input.Surname)
	input.Motivation = strings.TrimSpace(input.Motivation)
	input.Skills = strings.TrimSpace(input.Skills)
	if err := u.validate.Struct(input); err != nil {
		return nil, apperror.BadRequest(validation.Message(err))
	}

	job, err := u.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, notFoundOr(err, "Job not found")
	}

	exists, err := u.appRepo.Exists(ctx, jobID, actor.UID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if exists {
		return nil, apperror.BadRequest("You have already applied to this job")
	}

	ts := nowMillis()
	app := &domain.Application{
		JobID:         jobID,
		JobTitle:      job.Title,
		ClientUID:     job.ClientUID,
		ApplicantUID:  actor.UID,
		Name:          input.Name,
		Surname:       input.Surname,
		Motivation:    input.Motivation,
		Skills:        input.Skills,
		Status:        domain.ApplicationStatusPending,
		JobMilestones: milestonesFrom(job.Milestones),
		AppliedAt:     ts,
	}

	if err := u.appRepo.Create(ctx, app); err != nil {
		return nil, apperror.Internal(err)
	}
	if err := u.appRepo.IndexForApplicant(ctx, actor.UID, jobID, ts); err != nil {
		logger.Log.Warn("Failed to index application", "job_id", jobID, "applicant_uid", actor.UID, "error", err)
	}

	logger.Log.Info("Application submitted", "job_id", jobID, "applicant_uid", actor.UID)
	return app, nil
}

// ownedJob loads the job and checks the actor owns it. Admins may read any
// job but only owners may decide applications.
func (u *applicationUsecase) ownedJob(ctx context.Context, actor domain.Actor, jobID string, allowAdmin bool) (*domain.Job, error) {
	job, err := u.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, notFoundOr(err, "Job not found")
	}
	if job.ClientUID == actor.UID || (allowAdmin && actor.Role == domain.RoleAdmin) {
		return job, nil
	}
	return nil, apperror.Forbidden("You do not own this job")
}

func (u *applicationUsecase) ListByJob(ctx context.Context, actor domain.Actor, jobID string) ([]domain.Application, error) {
	if _, err := u.ownedJob(ctx, actor, jobID, true); err != nil {
		return nil, err
	}
	apps, err := u.appRepo.ListByJob(ctx, jobID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return apps, nil
}

func (u *applicationUsecase) ListMine(ctx context.Context, actor domain.Actor) ([]domain.Application, error) {
	if actor.Role != domain.RoleFreelancer {
		return nil, apperror.Forbidden("Only freelancers have applications")
	}
	apps, err := u.appRepo.ListByApplicant(ctx, actor.UID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return apps, nil
}

func (u *applicationUsecase) ListContracts(ctx context.Context, actor domain.Actor) ([]domain.Application, error) {
	if actor.Role != domain.RoleFreelancer {
		return nil, apperror.Forbidden("Only freelancers have contracts")
	}
	apps, err := u.appRepo.ListAcceptedByApplicant(ctx, actor.UID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return apps, nil
}

func (u *applicationUsecase) WatchContracts(ctx context.Context, actor domain.Actor, fn func([]domain.Application, error)) (domain.Unsubscribe, error) {
	if actor.Role != domain.RoleFreelancer {
		return nil, apperror.Forbidden("Only freelancers have contracts")
	}
	unsubscribe, err := u.appRepo.WatchContracts(ctx, actor.UID, fn)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return unsubscribe, nil
}

// pendingApplication loads the application and requires it to be undecided.
func (u *applicationUsecase) pendingApplication(ctx context.Context, jobID, applicantID string) (*domain.Application, error) {
	app, err := u.appRepo.Get(ctx, jobID, applicantID)
	if err != nil {
		return nil, notFoundOr(err, "Applicant not found")
	}
	if app.Status != domain.ApplicationStatusPending {
		return nil, apperror.Conflict(fmt.Sprintf("Application is already %s", app.Status))
	}
	return app, nil
}

// AcceptApplicant accepts one applicant and rejects every other pending
// applicant of the job.
func (u *applicationUsecase) AcceptApplicant(ctx context.Context, actor domain.Actor, jobID, applicantID string) (*domain.Application, error) {
	job, err := u.ownedJob(ctx, actor, jobID, false)
	if err != nil {
		return nil, err
	}
	app, err := u.pendingApplication(ctx, jobID, applicantID)
	if err != nil {
		return nil, err
	}

	accepted, err := u.appRepo.ListAcceptedByJob(ctx, jobID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if len(accepted) > 0 {
		return nil, apperror.Conflict("This job already has an accepted applicant")
	}

	all, err := u.appRepo.ListByJob(ctx, jobID)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	ts := nowMillis()
	contract := *app
	contract.Status = domain.ApplicationStatusAccepted
	contract.AcceptedAt = ts
	contract.JobTitle = job.Title
	contract.ClientUID = job.ClientUID
	if len(contract.JobMilestones) == 0 {
		contract.JobMilestones = milestonesFrom(job.Milestones)
	}

	steps := []Step{
		{
			Name: "mark-accepted",
			Do: func(ctx context.Context) error {
				return u.appRepo.UpdateStatus(ctx, jobID, applicantID, domain.ApplicationStatusAccepted, map[string]any{"acceptedAt": ts})
			},
			Compensate: func(ctx context.Context) error {
				return u.appRepo.UpdateStatus(ctx, jobID, applicantID, domain.ApplicationStatusPending, map[string]any{"acceptedAt": nil})
			},
		},
		{
			Name: "copy-accepted",
			Do: func(ctx context.Context) error {
				return u.appRepo.SaveAccepted(ctx, &contract)
			},
			Compensate: func(ctx context.Context) error {
				return u.appRepo.RemoveAccepted(ctx, jobID, applicantID)
			},
		},
	}

	var rejected int
	for _, sibling := range all {
		if sibling.ApplicantUID == applicantID || sibling.Status != domain.ApplicationStatusPending {
			continue
		}
		steps = append(steps, u.rejectSteps(sibling, ts)...)
		rejected++
	}

	steps = append(steps, u.incrementTotalJobsStep(applicantID))

	saga := Saga{Name: "accept_applicant", Steps: steps, Attempts: u.attempts}
	if err := saga.Run(ctx); err != nil {
		return nil, apperror.Wrap(err)
	}
	u.touchIndexes(ctx, job.ClientUID, applicantID, jobID, ts)

	logger.Log.Info("Applicant accepted", "job_id", jobID, "applicant_uid", applicantID, "rejected_siblings", rejected)
	u.audit.LogUserEvent(ctx, security.EventApplicantAccepted, actor.UID, map[string]any{
		"job_id": jobID, "applicant": security.HashValue(applicantID), "rejected_siblings": rejected,
	})
	return &contract, nil
}

func (u *applicationUsecase) RejectApplicant(ctx context.Context, actor domain.Actor, jobID, applicantID string) (*domain.Application, error) {
	job, err := u.ownedJob(ctx, actor, jobID, false)
	if err != nil {
		return nil, err
	}
	app, err := u.pendingApplication(ctx, jobID, applicantID)
	if err != nil {
		return nil, err
	}

	ts := nowMillis()
	saga := Saga{Name: "reject_applicant", Steps: u.rejectSteps(*app, ts), Attempts: u.attempts}
	if err := saga.Run(ctx); err != nil {
		return nil, apperror.Wrap(err)
	}
	u.touchIndexes(ctx, job.ClientUID, applicantID, jobID, ts)

	rejected := *app
	rejected.Status = domain.ApplicationStatusRejected
	rejected.RejectedAt = ts
	logger.Log.Info("Applicant rejected", "job_id", jobID, "applicant_uid", applicantID)
	return &rejected, nil
}

// rejectSteps marks app rejected and files a copy under the rejected
// collection.
func (u *applicationUsecase) rejectSteps(app domain.Application, ts int64) []Step {
	copyOf := app
	copyOf.Status = domain.ApplicationStatusRejected
	copyOf.RejectedAt = ts

	return []Step{
		{
			Name: "mark-rejected:" + app.ApplicantUID,
			Do: func(ctx context.Context) error {
				return u.appRepo.UpdateStatus(ctx, app.JobID, app.ApplicantUID, domain.ApplicationStatusRejected, map[string]any{"rejectedAt": ts})
			},
			Compensate: func(ctx context.Context) error {
				return u.appRepo.UpdateStatus(ctx, app.JobID, app.ApplicantUID, domain.ApplicationStatusPending, map[string]any{"rejectedAt": nil})
			},
		},
		{
			Name: "copy-rejected:" + app.ApplicantUID,
			Do: func(ctx context.Context) error {
				return u.appRepo.SaveRejected(ctx, &copyOf)
			},
			Compensate: func(ctx context.Context) error {
				return u.appRepo.RemoveRejected(ctx, app.JobID, app.ApplicantUID)
			},
		},
	}
}

// incrementTotalJobsStep bumps the freelancer's totalJobs counter. A
// freelancer without a profile is left alone.
func (u *applicationUsecase) incrementTotalJobsStep(uid string) Step {
	var previous int
	var applied bool

	return Step{
		Name: "increment-total-jobs",
		Do: func(ctx context.Context) error {
			profile, err := u.profileRepo.GetByID(ctx, uid)
			if errors.Is(err, domain.ErrNotFound) {
				logger.Log.Warn("Accepted freelancer has no profile", "uid", uid)
				return nil
			}
			if err != nil {
				return err
			}
			previous = profile.TotalJobs
			if err := u.profileRepo.Update(ctx, uid, map[string]any{"totalJobs": previous + 1}); err != nil {
				return err
			}
			applied = true
			return nil
		},
		Compensate: func(ctx context.Context) error {
			if !applied {
				return nil
			}
			return u.profileRepo.Update(ctx, uid, map[string]any{"totalJobs": previous})
		},
	}
}

func (u *applicationUsecase) touchIndexes(ctx context.Context, clientUID, applicantUID, jobID string, ts int64) {
	touchIndexes(ctx, u.jobRepo, u.appRepo, clientUID, applicantUID, jobID, ts)
}

// touchIndexes bumps both index entries so live listings re-deliver. The
// records are already written, so a failure is only logged.
func touchIndexes(ctx context.Context, jobRepo domain.JobRepository, appRepo domain.ApplicationRepository, clientUID, applicantUID, jobID string, ts int64) {
	err := errors.Join(
		jobRepo.IndexForClient(ctx, clientUID, jobID, ts),
		appRepo.IndexForApplicant(ctx, applicantUID, jobID, ts),
	)
	if err != nil {
		logger.Log.Warn("Failed to touch job indexes", "job_id", jobID, "error", err)
	}
}
