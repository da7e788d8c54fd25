package pgx

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/lborres/bantay/core"
)

const sessionColumns = `id, user_id, token_hash, ip_address, user_agent, expires_at, created_at, updated_at`

func (a *Adapter) CreateSession(ctx context.Context, s *core.Session) error {
	query := `INSERT INTO public.sessions (` + sessionColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := a.pool.Exec(ctx, query,
		s.ID, s.UserID, s.TokenHash, s.IPAddress, s.UserAgent, s.ExpiresAt, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func (a *Adapter) GetSessionByHash(ctx context.Context, tokenHash string) (*core.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM public.sessions WHERE token_hash = $1`
	return scanSessionRow(a.pool.QueryRow(ctx, q, tokenHash))
}

func (a *Adapter) GetSessionByID(ctx context.Context, id string) (*core.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM public.sessions WHERE id = $1`
	return scanSessionRow(a.pool.QueryRow(ctx, q, id))
}

func (a *Adapter) GetUserSessions(ctx context.Context, userID string) ([]*core.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM public.sessions WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := a.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*core.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func scanSessionRow(row pgx.Row) (*core.Session, error) {
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

func scanSession(row pgx.Row) (*core.Session, error) {
	s := &core.Session{}
	err := row.Scan(&s.ID, &s.UserID, &s.TokenHash, &s.IPAddress, &s.UserAgent, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (a *Adapter) UpdateSession(ctx context.Context, s *core.Session) error {
	q := `UPDATE public.sessions SET ip_address = $1, user_agent = $2, expires_at = $3, updated_at = now() WHERE id = $4 RETURNING updated_at`
	err := a.pool.QueryRow(ctx, q, s.IPAddress, s.UserAgent, s.ExpiresAt, s.ID).Scan(&s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.ErrSessionNotFound
		}
		return err
	}
	return nil
}

func (a *Adapter) DeleteSessionByID(ctx context.Context, id string) error {
	return a.deleteOne(ctx, `DELETE FROM public.sessions WHERE id = $1`, id)
}

func (a *Adapter) DeleteSessionByHash(ctx context.Context, tokenHash string) error {
	return a.deleteOne(ctx, `DELETE FROM public.sessions WHERE token_hash = $1`, tokenHash)
}

func (a *Adapter) deleteOne(ctx context.Context, query, arg string) error {
	tag, err := a.pool.Exec(ctx, query, arg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrSessionNotFound
	}
	return nil
}

func (a *Adapter) DeleteUserSessions(ctx context.Context, userID string) (int, error) {
	tag, err := a.pool.Exec(ctx, `DELETE FROM public.sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (a *Adapter) DeleteExpiredSessions(ctx context.Context) (int, error) {
	tag, err := a.pool.Exec(ctx, `DELETE FROM public.sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
