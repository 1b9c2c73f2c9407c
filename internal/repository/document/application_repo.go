package document

import (
	"context"
	"errors"
	"sort"

	"go-freelance-backend/internal/domain"
)

type applicationRepo struct {
	store domain.TreeStore
}

func NewApplicationRepository(store domain.TreeStore) domain.ApplicationRepository {
	return &applicationRepo{store: store}
}

func setApplicationID(a *domain.Application, key string) {
	a.ID = key
	if a.ApplicantUID == "" {
		a.ApplicantUID = key
	}
}

func (r *applicationRepo) read(ctx context.Context, path string) (*domain.Application, error) {
	snap, err := get(ctx, r.store, path)
	if err != nil {
		return nil, err
	}
	var app domain.Application
	if err := snap.Decode(&app); err != nil {
		return nil, err
	}
	setApplicationID(&app, snap.Key())
	return &app, nil
}

func (r *applicationRepo) write(ctx context.Context, path string, app *domain.Application) error {
	stored := *app
	stored.ID = ""
	return set(ctx, r.store, path, &stored)
}

// readJob lists the applications stored under collection/{jobID}.
func (r *applicationRepo) readJob(ctx context.Context, collection, jobID string) ([]domain.Application, error) {
	snap, err := get(ctx, r.store, domain.JoinPath(collection, jobID))
	if err != nil {
		return nil, err
	}
	apps, err := decodeChildren(snap, setApplicationID)
	if err != nil {
		return nil, err
	}
	for i := range apps {
		if apps[i].JobID == "" {
			apps[i].JobID = jobID
		}
	}
	sortApplications(apps)
	return apps, nil
}

// readCollection lists every application of every job in collection.
func (r *applicationRepo) readCollection(ctx context.Context, collection string) ([]domain.Application, error) {
	jobIDs, err := childKeys(ctx, r.store, collection)
	if err != nil {
		return nil, err
	}
	var all []domain.Application
	for _, jobID := range jobIDs {
		apps, err := r.readJob(ctx, collection, jobID)
		if err != nil {
			return nil, err
		}
		all = append(all, apps...)
	}
	return all, nil
}

func (r *applicationRepo) Create(ctx context.Context, app *domain.Application) error {
	app.ID = app.ApplicantUID
	return r.write(ctx, domain.ApplicationPath(app.JobID, app.ApplicantUID), app)
}

func (r *applicationRepo) Get(ctx context.Context, jobID, applicantID string) (*domain.Application, error) {
	return r.read(ctx, domain.ApplicationPath(jobID, applicantID))
}

func (r *applicationRepo) Exists(ctx context.Context, jobID, applicantID string) (bool, error) {
	snap, err := get(ctx, r.store, domain.ApplicationPath(jobID, applicantID))
	if err != nil {
		return false, err
	}
	return snap.Exists(), nil
}

func (r *applicationRepo) ListByJob(ctx context.Context, jobID string) ([]domain.Application, error) {
	return r.readJob(ctx, domain.CollectionApplications, jobID)
}

// ListByApplicant follows the applicant index; stale entries are skipped.
func (r *applicationRepo) ListByApplicant(ctx context.Context, applicantUID string) ([]domain.Application, error) {
	return r.followIndex(ctx, applicantUID, domain.ApplicationPath)
}

func (r *applicationRepo) ListAll(ctx context.Context) ([]domain.Application, error) {
	return r.readCollection(ctx, domain.CollectionApplications)
}

func (r *applicationRepo) UpdateStatus(ctx context.Context, jobID, applicantID string, status domain.ApplicationStatus, fields map[string]any) error {
	merged := map[string]any{"status": status}
	for k, v := range fields {
		merged[k] = v
	}
	return update(ctx, r.store, domain.ApplicationPath(jobID, applicantID), merged)
}

func (r *applicationRepo) DeleteByJob(ctx context.Context, jobID string) error {
	return remove(ctx, r.store, domain.ApplicationsPath(jobID))
}

func (r *applicationRepo) SaveAccepted(ctx context.Context, app *domain.Application) error {
	return r.write(ctx, domain.AcceptedPath(app.JobID, app.ApplicantUID), app)
}

func (r *applicationRepo) GetAccepted(ctx context.Context, jobID, applicantID string) (*domain.Application, error) {
	return r.read(ctx, domain.AcceptedPath(jobID, applicantID))
}

func (r *applicationRepo) ListAcceptedByJob(ctx context.Context, jobID string) ([]domain.Application, error) {
	return r.readJob(ctx, domain.CollectionAccepted, jobID)
}

func (r *applicationRepo) ListAccepted(ctx context.Context) ([]domain.Application, error) {
	return r.readCollection(ctx, domain.CollectionAccepted)
}

func (r *applicationRepo) ListAcceptedByApplicant(ctx context.Context, applicantUID string) ([]domain.Application, error) {
	return r.followIndex(ctx, applicantUID, domain.AcceptedPath)
}

func (r *applicationRepo) RemoveAccepted(ctx context.Context, jobID, applicantID string) error {
	return remove(ctx, r.store, domain.AcceptedPath(jobID, applicantID))
}

func (r *applicationRepo) DeleteAcceptedByJob(ctx context.Context, jobID string) error {
	return remove(ctx, r.store, domain.JoinPath(domain.CollectionAccepted, jobID))
}

func (r *applicationRepo) TransitionMilestone(ctx context.Context, jobID, applicantID string, index int, from, to domain.MilestoneStatus) error {
	path := domain.MilestonePath(domain.AcceptedPath(jobID, applicantID), index)
	swapped, err := swap(ctx, r.store, domain.JoinPath(path, "status"), from, to)
	if err != nil {
		return err
	}
	if !swapped {
		return domain.ErrStaleValue
	}
	return nil
}

func (r *applicationRepo) SaveRejected(ctx context.Context, app *domain.Application) error {
	return r.write(ctx, domain.RejectedPath(app.JobID, app.ApplicantUID), app)
}

func (r *applicationRepo) RemoveRejected(ctx context.Context, jobID, applicantID string) error {
	return remove(ctx, r.store, domain.RejectedPath(jobID, applicantID))
}

func (r *applicationRepo) DeleteRejectedByJob(ctx context.Context, jobID string) error {
	return remove(ctx, r.store, domain.JoinPath(domain.CollectionRejected, jobID))
}

func (r *applicationRepo) IndexForApplicant(ctx context.Context, applicantUID, jobID string, touchedAt int64) error {
	return set(ctx, r.store, domain.ApplicantJobIndexPath(applicantUID, jobID), touchedAt)
}

func (r *applicationRepo) UnindexForApplicant(ctx context.Context, applicantUID, jobID string) error {
	return remove(ctx, r.store, domain.ApplicantJobIndexPath(applicantUID, jobID))
}

func (r *applicationRepo) WatchContracts(ctx context.Context, applicantUID string, fn func([]domain.Application, error)) (domain.Unsubscribe, error) {
	return r.store.Subscribe(ctx, domain.JoinPath(domain.IndexApplicantJobs, applicantUID), func(domain.Snapshot) {
		fn(r.followIndex(ctx, applicantUID, domain.AcceptedPath))
	})
}

func (r *applicationRepo) followIndex(ctx context.Context, applicantUID string, pathFor func(jobID, applicantID string) string) ([]domain.Application, error) {
	jobIDs, err := childKeys(ctx, r.store, domain.JoinPath(domain.IndexApplicantJobs, applicantUID))
	if err != nil {
		return nil, err
	}

	apps := make([]domain.Application, 0, len(jobIDs))
	for _, jobID := range jobIDs {
		app, err := r.read(ctx, pathFor(jobID, applicantUID))
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if app.JobID == "" {
			app.JobID = jobID
		}
		apps = append(apps, *app)
	}
	sortApplications(apps)
	return apps, nil
}

// sortApplications orders newest first.
func sortApplications(apps []domain.Application) {
	sort.SliceStable(apps, func(i, j int) bool {
		if apps[i].AppliedAt != apps[j].AppliedAt {
			return apps[i].AppliedAt > apps[j].AppliedAt
		}
		return apps[i].ID < apps[j].ID
	})
}
