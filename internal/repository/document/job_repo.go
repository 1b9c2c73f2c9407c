package document

import (
	"context"
	"errors"
	"sort"

	"go-freelance-backend/internal/domain"
	"go-freelance-backend/pkg/metrics"
)

type jobRepo struct {
	store domain.TreeStore
}

func NewJobRepository(store domain.TreeStore) domain.JobRepository {
	return &jobRepo{store: store}
}

func setJobID(j *domain.Job, key string) { j.ID = key }

func (r *jobRepo) Create(ctx context.Context, job *domain.Job) error {
	job.ID = ""
	done := metrics.ObserveStoreOp("push")
	key, err := r.store.Push(ctx, domain.CollectionJobs, job)
	done()
	if err != nil {
		return err
	}
	job.ID = key
	return nil
}

func (r *jobRepo) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	snap, err := get(ctx, r.store, domain.JobPath(id))
	if err != nil {
		return nil, err
	}
	var job domain.Job
	if err := snap.Decode(&job); err != nil {
		return nil, err
	}
	job.ID = id
	return &job, nil
}

func (r *jobRepo) Fetch(ctx context.Context) ([]domain.Job, error) {
	snap, err := get(ctx, r.store, domain.CollectionJobs)
	if err != nil {
		return nil, err
	}
	jobs, err := decodeChildren(snap, setJobID)
	if err != nil {
		return nil, err
	}
	sortJobs(jobs)
	return jobs, nil
}

// FetchByClient resolves the client's index entries; entries whose job no
// longer exists are skipped.
func (r *jobRepo) FetchByClient(ctx context.Context, clientUID string) ([]domain.Job, error) {
	ids, err := childKeys(ctx, r.store, domain.JoinPath(domain.IndexClientJobs, clientUID))
	if err != nil {
		return nil, err
	}

	jobs := make([]domain.Job, 0, len(ids))
	for _, id := range ids {
		job, err := r.GetByID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	sortJobs(jobs)
	return jobs, nil
}

func (r *jobRepo) Update(ctx context.Context, job *domain.Job) error {
	stored := *job
	stored.ID = ""
	return set(ctx, r.store, domain.JobPath(job.ID), &stored)
}

func (r *jobRepo) Delete(ctx context.Context, id string) error {
	return remove(ctx, r.store, domain.JobPath(id))
}

func (r *jobRepo) IndexForClient(ctx context.Context, clientUID, jobID string, touchedAt int64) error {
	return set(ctx, r.store, domain.ClientJobIndexPath(clientUID, jobID), touchedAt)
}

func (r *jobRepo) UnindexForClient(ctx context.Context, clientUID, jobID string) error {
	return remove(ctx, r.store, domain.ClientJobIndexPath(clientUID, jobID))
}

func (r *jobRepo) WatchClient(ctx context.Context, clientUID string, fn func([]domain.Job, error)) (domain.Unsubscribe, error) {
	return r.store.Subscribe(ctx, domain.JoinPath(domain.IndexClientJobs, clientUID), func(domain.Snapshot) {
		fn(r.FetchByClient(ctx, clientUID))
	})
}

// sortJobs orders newest first.
func sortJobs(jobs []domain.Job) {
	sort.SliceStable(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt != jobs[j].CreatedAt {
			return jobs[i].CreatedAt > jobs[j].CreatedAt
		}
		return jobs[i].ID < jobs[j].ID
	})
}
