package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const usersTableDDL = `
CREATE TABLE IF NOT EXISTS users (
	id                    BIGSERIAL PRIMARY KEY,
	first_name            TEXT    NOT NULL,
	last_name             TEXT    NOT NULL,
	age                   INTEGER NOT NULL CHECK (age >= 0),
	subject               TEXT    NOT NULL,
	degree_type           TEXT    NOT NULL,
	year_of_study_current INTEGER NOT NULL CHECK (year_of_study_current >= 1),
	email                 TEXT    NOT NULL,
	description           TEXT    NOT NULL,
	password_hash         TEXT    NOT NULL,
	CONSTRAINT users_email_key UNIQUE (email)
)`

// EnsureUsersTable creates the users table when it does not exist yet.
// Existing tables are left untouched.
func EnsureUsersTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, usersTableDDL)

	return err
}
