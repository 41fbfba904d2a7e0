package security

import (
	"context"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

const DefaultCost = 12

// bcrypt only reads this many bytes of a password; longer input is cut here
// rather than rejected.
const maxPasswordBytes = 72

// Hasher hashes passwords with bcrypt. At most limit hashes run at once,
// extra callers wait (or give up when their context ends).
type Hasher struct {
	cost int
	sem  *semaphore.Weighted
}

func NewHasher(cost, limit int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}

	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	return &Hasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(limit)),
	}
}

// Hash password hashes a plain text password with bcrypt.
func (h *Hasher) Hash(ctx context.Context, plain string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	hash, err := bcrypt.GenerateFromPassword(bcryptInput(plain), h.cost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// helper that compares a bcrypt hash with a plaintext password.

func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(plain))
}

func bcryptInput(plain string) []byte {
	b := []byte(plain)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}
