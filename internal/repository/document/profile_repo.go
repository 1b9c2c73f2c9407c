package document

import (
	"context"
	"sort"

	"go-freelance-backend/internal/domain"
)

type profileRepo struct {
	store domain.TreeStore
}

func NewProfileRepository(store domain.TreeStore) domain.ProfileRepository {
	return &profileRepo{store: store}
}

func setProfileID(p *domain.UserProfile, key string) { p.UID = key }

func (r *profileRepo) Create(ctx context.Context, profile *domain.UserProfile) error {
	return set(ctx, r.store, domain.ProfilePath(profile.UID), profile)
}

func (r *profileRepo) GetByID(ctx context.Context, uid string) (*domain.UserProfile, error) {
	snap, err := get(ctx, r.store, domain.ProfilePath(uid))
	if err != nil {
		return nil, err
	}
	var profile domain.UserProfile
	if err := snap.Decode(&profile); err != nil {
		return nil, err
	}
	profile.UID = uid
	return &profile, nil
}

func (r *profileRepo) List(ctx context.Context) ([]domain.UserProfile, error) {
	snap, err := get(ctx, r.store, domain.CollectionProfiles)
	if err != nil {
		return nil, err
	}
	profiles, err := decodeChildren(snap, setProfileID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].Name < profiles[j].Name
	})
	return profiles, nil
}

func (r *profileRepo) Update(ctx context.Context, uid string, fields map[string]any) error {
	return update(ctx, r.store, domain.ProfilePath(uid), fields)
}
