package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/kipimo/core/profile"
)

type profileRepository struct {
	db *DB
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *DB) *profileRepository {
	return &profileRepository{db: db}
}

func (repo *profileRepository) CreateProfile(_ context.Context, p profile.Profile) (profile.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, prof := range repo.db.profiles {
		if prof.Email == p.Email {
			return profile.Profile{}, profile.ErrEmailExists
		}
	}
	repo.db.profiles[p.ID] = p
	return p, nil
}

func (repo *profileRepository) GetProfile(_ context.Context, id string) (profile.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.profiles[id]; ok {
		return p, nil
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (repo *profileRepository) GetProfileByEmail(_ context.Context, email string) (profile.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, p := range repo.db.profiles {
		if strings.EqualFold(p.Email, email) {
			return p, nil
		}
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (repo *profileRepository) QueryProfiles(_ context.Context, filter profile.QueryFilter) ([]profile.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	search := strings.ToLower(filter.Search)
	profs := make([]profile.Profile, 0)
	for _, p := range repo.db.profiles {
		if filter.Role != "" && p.Role != filter.Role {
			continue
		}
		if len(filter.IDs) > 0 && !contains(filter.IDs, p.ID) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.FullName), search) &&
			!strings.Contains(strings.ToLower(p.Email), search) {
			continue
		}
		profs = append(profs, p)
	}
	sort.Slice(profs, func(i, j int) bool { return profs[i].FullName < profs[j].FullName })
	return profs, nil
}
