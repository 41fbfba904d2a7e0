package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/userreg/internal/domain/user"
	"github.com/geocoder89/userreg/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, first_name, last_name, age, subject, degree_type, year_of_study_current, email, description`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

// Create inserts the user and relies on the email unique constraint for
// duplicate detection, so concurrent signups for one address cannot race.
func (r *UsersRepo) Create(ctx context.Context, nu user.NewUser) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.create", func() error {
		return r.pool.QueryRow(ctx, `
		INSERT INTO users
			(first_name, last_name, age, subject, degree_type, year_of_study_current, email, description, password_hash)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING `+userColumns,
			nu.FirstName,
			nu.LastName,
			nu.Age,
			nu.Subject,
			nu.DegreeType,
			nu.YearOfStudyCurrent,
			nu.Email,
			nu.Description,
			nu.PasswordHash,
		).Scan(scanTargets(&u)...)
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailAlreadyExists
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) List(ctx context.Context) (users []user.User, err error) {
	var rows pgx.Rows

	err = r.prom.ObserveDB("users.list", func() error {
		rows, err = r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id ASC`)
		return err
	})

	if err != nil {
		return
	}

	defer rows.Close()

	users = make([]user.User, 0)

	for rows.Next() {
		var u user.User

		e := rows.Scan(scanTargets(&u)...)

		if e != nil {
			err = e
			return
		}
		users = append(users, u)
	}

	err = rows.Err()

	return
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// password_hash is never selected.
func scanTargets(u *user.User) []any {
	return []any{
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Age,
		&u.Subject,
		&u.DegreeType,
		&u.YearOfStudyCurrent,
		&u.Email,
		&u.Description,
	}
}
