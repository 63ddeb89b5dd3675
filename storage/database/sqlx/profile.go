package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/profile"
)

const profileColumns = "id, full_name, email, role, created_at"

type profileRepository struct {
	db core.DB
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db core.DB) *profileRepository {
	return &profileRepository{db: db}
}

func (repo *profileRepository) CreateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	q := `INSERT INTO profiles (` + profileColumns + `) VALUES (:id, :full_name, :email, :role, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, p); err != nil {
		if pqCode(err) == pqUniqueViolation {
			return profile.Profile{}, profile.ErrEmailExists
		}
		return profile.Profile{}, errors.Wrap(err, "inserting profile")
	}
	return p, nil
}

func (repo *profileRepository) GetProfile(ctx context.Context, id string) (profile.Profile, error) {
	var p profile.Profile
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	err := repo.db.GetContext(ctx, &p, q, id)
	return p, trapNoRowsErr(err, profile.ErrNotFound)
}

func (repo *profileRepository) GetProfileByEmail(ctx context.Context, email string) (profile.Profile, error) {
	var p profile.Profile
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE email = $1`
	err := repo.db.GetContext(ctx, &p, q, email)
	return p, trapNoRowsErr(err, profile.ErrNotFound)
}

func (repo *profileRepository) QueryProfiles(ctx context.Context, filter profile.QueryFilter) ([]profile.Profile, error) {
	var where whereClause
	if filter.Role != "" {
		where.add("role = ?", filter.Role)
	}
	if len(filter.IDs) > 0 {
		if err := where.addIn("id::text", filter.IDs); err != nil {
			return nil, err
		}
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		where.add("(full_name ILIKE ? OR email ILIKE ?)", pattern, pattern)
	}

	profs := make([]profile.Profile, 0)
	q := repo.db.Rebind(`SELECT ` + profileColumns + ` FROM profiles` + where.String() + ` ORDER BY full_name`)
	if err := repo.db.SelectContext(ctx, &profs, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "querying profiles")
	}
	return profs, nil
}
