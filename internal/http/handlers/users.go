package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/userreg/internal/config"
	"github.com/geocoder89/userreg/internal/domain/user"
	"github.com/geocoder89/userreg/internal/observability"
	"github.com/gin-gonic/gin"
)

const storeTimeout = 3 * time.Second

type UsersStore interface {
	Create(ctx context.Context, nu user.NewUser) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
}

type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
}

type UsersHandler struct {
	store  UsersStore
	hasher PasswordHasher
	prom   *observability.Prom
	log    *slog.Logger
}

func NewUsersHandler(store UsersStore, hasher PasswordHasher, prom *observability.Prom, log *slog.Logger) *UsersHandler {
	return &UsersHandler{
		store:  store,
		hasher: hasher,
		prom:   prom,
		log:    log,
	}
}

// POST /users

func (h *UsersHandler) CreateUser(ctx *gin.Context) {
	var req user.CreateRequest

	if !BindJSON(ctx, h.log, &req) {
		h.prom.IncRegistration(observability.OutcomeInvalid)
		return
	}

	reg, err := req.Normalize()

	if err != nil {
		var vErr *user.ValidationError
		if errors.As(err, &vErr) {
			h.prom.IncRegistration(observability.OutcomeInvalid)
			RespondBadRequest(ctx, vErr.Message)
			return
		}

		h.fail(ctx, "normalize registration", err)
		return
	}

	var hash string

	err = h.prom.ObserveHash(func() error {
		var e error
		hash, e = h.hasher.Hash(ctx.Request.Context(), reg.Password)
		return e
	})

	if err != nil {
		h.fail(ctx, "hash password", err)
		return
	}

	// the insert is not tied to the client connection: once the hash is paid
	// for, the row either lands or the failure is logged
	cctx, cancel := config.WithTimeout(storeTimeout)

	defer cancel()

	u, err := h.store.Create(cctx, reg.WithPasswordHash(hash))

	if err != nil {
		if errors.Is(err, user.ErrEmailAlreadyExists) {
			h.prom.IncRegistration(observability.OutcomeConflict)
			RespondConflict(ctx, MsgEmailExists)
			return
		}

		h.fail(ctx, "create user", err)
		return
	}

	h.prom.IncRegistration(observability.OutcomeCreated)
	h.log.InfoContext(ctx.Request.Context(), "user created", "user_id", u.ID)

	ctx.JSON(http.StatusOK, u)
}

// GET /users

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)

	defer cancel()

	users, err := h.store.List(cctx)

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "list users failed", "err", err)
		RespondInternal(ctx)
		return
	}

	if users == nil {
		users = []user.User{}
	}

	RespondJSONWithETag(ctx, http.StatusOK, users)
}

func (h *UsersHandler) fail(ctx *gin.Context, op string, err error) {
	h.prom.IncRegistration(observability.OutcomeError)
	h.log.ErrorContext(ctx.Request.Context(), op+" failed", "err", err)
	RespondInternal(ctx)
}
