package pgx

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS public.users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		name TEXT NOT NULL DEFAULT '',
		image TEXT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS public.accounts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES public.users(id) ON DELETE CASCADE,
		provider_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		password TEXT NULL,
		access_token TEXT NULL,
		refresh_token TEXT NULL,
		expires_at TIMESTAMPTZ NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_user_provider ON public.accounts(user_id, provider_id)`,
	`CREATE TABLE IF NOT EXISTS public.sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES public.users(id) ON DELETE CASCADE,
		token_hash TEXT NOT NULL UNIQUE,
		ip_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON public.sessions(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON public.sessions(expires_at)`,
	`CREATE TABLE IF NOT EXISTS public.user_profiles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		avatar TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'READER',
		bio TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS public.content (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		date TEXT NOT NULL,
		data JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_content_date ON public.content(date DESC)`,
	`CREATE TABLE IF NOT EXISTS public.subscribers (
		email TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		language TEXT NOT NULL DEFAULT 'fr'
	)`,
}

// Migrate creates every table the adapter reads or writes. It is safe to
// run repeatedly.
func (a *Adapter) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := a.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	return nil
}
