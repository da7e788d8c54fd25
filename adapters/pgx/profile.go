package pgx

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/lborres/bantay/core"
)

func (a *Adapter) GetProfile(ctx context.Context, id core.Identity) (*core.UserProfile, error) {
	q := `SELECT id, name, email, avatar, role, bio FROM public.user_profiles WHERE id = $1`

	p := &core.UserProfile{}
	var role string
	err := a.pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.Name, &p.Email, &p.Avatar, &role, &p.Bio)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrProfileNotFound
		}
		return nil, err
	}

	// an unknown stored role is left for the resolver to reject
	p.Role = core.AccessRole(role)
	return p, nil
}

// SetProfile creates or replaces the profile document.
func (a *Adapter) SetProfile(ctx context.Context, p *core.UserProfile) error {
	q := `INSERT INTO public.user_profiles (id, name, email, avatar, role, bio)
	      VALUES ($1, $2, $3, $4, $5, $6)
	      ON CONFLICT (id) DO UPDATE SET
	          name = EXCLUDED.name, email = EXCLUDED.email, avatar = EXCLUDED.avatar,
	          role = EXCLUDED.role, bio = EXCLUDED.bio, updated_at = now()`

	_, err := a.pool.Exec(ctx, q, p.ID, p.Name, p.Email, p.Avatar, string(p.Role), p.Bio)
	return err
}

func (a *Adapter) UpdateRole(ctx context.Context, id core.Identity, role core.AccessRole) error {
	tag, err := a.pool.Exec(ctx, `UPDATE public.user_profiles SET role = $1, updated_at = now() WHERE id = $2`, string(role), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrProfileNotFound
	}
	return nil
}

func (a *Adapter) ListProfiles(ctx context.Context) ([]core.UserProfile, error) {
	rows, err := a.pool.Query(ctx, `SELECT id, name, email, avatar, role, bio FROM public.user_profiles ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []core.UserProfile
	for rows.Next() {
		var p core.UserProfile
		var role string
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.Avatar, &role, &p.Bio); err != nil {
			return nil, err
		}
		p.Role = core.AccessRole(role)
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return profiles, nil
}
