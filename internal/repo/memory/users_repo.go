package memory

import (
	"context"
	"sync"

	"github.com/geocoder89/userreg/internal/domain/user"
)

// UsersRepo keeps users in process memory with the same email uniqueness
// rule as the postgres table. Ids start at 1 and only advance on success.
type UsersRepo struct {
	mu      sync.RWMutex
	lastID  int64
	items   []user.User
	byEmail map[string]int64
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		byEmail: make(map[string]int64),
	}
}

func (r *UsersRepo) Create(ctx context.Context, nu user.NewUser) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[nu.Email]; taken {
		return user.User{}, user.ErrEmailAlreadyExists
	}

	r.lastID++
	u := nu.ToUser(r.lastID)
	r.items = append(r.items, u)
	r.byEmail[u.Email] = u.ID

	return withoutHash(u), nil
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	// items is append-only with increasing ids, so it is already in id order
	out := make([]user.User, 0, len(r.items))
	for _, u := range r.items {
		out = append(out, withoutHash(u))
	}

	return out, nil
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return ctx.Err()
}

func withoutHash(u user.User) user.User {
	u.PasswordHash = ""
	return u
}
