package pgx

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lborres/bantay/core"
)

const uniqueViolation = "23505"

func (a *Adapter) SubscriberExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := a.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM public.subscribers WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (a *Adapter) AddSubscriber(ctx context.Context, s *core.Subscriber) error {
	_, err := a.pool.Exec(ctx,
		`INSERT INTO public.subscribers (email, date, language) VALUES ($1, $2, $3)`,
		s.Email, s.Date, string(s.Language),
	)
	if isUniqueViolation(err) {
		return core.ErrSubscriberExists
	}
	return err
}

func (a *Adapter) ListSubscribers(ctx context.Context) ([]core.Subscriber, error) {
	rows, err := a.pool.Query(ctx, `SELECT email, date, language FROM public.subscribers ORDER BY date DESC, email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []core.Subscriber
	for rows.Next() {
		var s core.Subscriber
		var lang string
		if err := rows.Scan(&s.Email, &s.Date, &lang); err != nil {
			return nil, err
		}
		s.Language = core.Language(lang)
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
