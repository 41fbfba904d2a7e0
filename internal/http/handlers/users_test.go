package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/geocoder89/userreg/internal/domain/user"
	"github.com/geocoder89/userreg/internal/http/handlers"
	"github.com/geocoder89/userreg/internal/observability"
	"github.com/geocoder89/userreg/internal/repo/memory"
	"github.com/geocoder89/userreg/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/crypto/bcrypt"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Fake implementations of handlers.UsersStore and handlers.PasswordHasher

type fakeUsersStore struct {
	createFn func(ctx context.Context, nu user.NewUser) (user.User, error)
	listFn   func(ctx context.Context) ([]user.User, error)
	calls    int
}

func (f *fakeUsersStore) Create(ctx context.Context, nu user.NewUser) (user.User, error) {
	f.calls++
	if f.createFn != nil {
		return f.createFn(ctx, nu)
	}

	return nu.ToUser(1), nil
}

func (f *fakeUsersStore) List(ctx context.Context) ([]user.User, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}

	return nil, nil
}

type fakeHasher struct {
	err error
}

func (f fakeHasher) Hash(ctx context.Context, plain string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "hashed:" + plain, nil
}

// recordingStore keeps the hash each created user was stored with.
type recordingStore struct {
	*memory.UsersRepo

	mu     sync.Mutex
	hashes map[string]string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{UsersRepo: memory.NewUsersRepo(), hashes: make(map[string]string)}
}

func (s *recordingStore) Create(ctx context.Context, nu user.NewUser) (user.User, error) {
	u, err := s.UsersRepo.Create(ctx, nu)
	if err == nil {
		s.mu.Lock()
		s.hashes[nu.Email] = nu.PasswordHash
		s.mu.Unlock()
	}
	return u, err
}

func (s *recordingStore) hash(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hashes[email]
	return h, ok
}

// small helper which mounts both user routes on a fresh engine

func setupRouter(h *handlers.UsersHandler) *gin.Engine {
	r := gin.New()

	r.POST("/users", h.CreateUser)
	r.GET("/users", h.ListUsers)

	return r
}

func postUser(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func getUsers(r http.Handler, ifNoneMatch string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	if ifNoneMatch != "" {
		req.Header.Set("If-None-Match", ifNoneMatch)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func userBody(email string) string {
	return `{
		"first_name": " Ada ",
		"last_name": "Lovelace",
		"age": 28,
		"subject": "Math",
		"degree_type": "BSc",
		"year_of_study_current": 2,
		"email": "` + email + `",
		"description": "First programmer.",
		"password": "longenough"
	}`
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var resp handlers.APIError
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error body is not JSON: %v body=%s", err, w.Body.String())
	}
	return resp.Error
}

func TestCreateUserHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		storeSetUp     func(*fakeUsersStore)
		hasher         fakeHasher
		wantStatusCode int
		wantError      string
		wantStoreCalls int
	}{
		{
			name:           "success",
			body:           userBody("Ada@Example.com"),
			wantStatusCode: http.StatusOK,
			wantStoreCalls: 1,
		},
		{
			name:           "malformed json",
			body:           `{"first_name": "Ada"`,
			wantStatusCode: http.StatusBadRequest,
			wantError:      user.MsgInvalidBody,
		},
		{
			name:           "numbers accepted as text",
			body:           strings.Replace(strings.Replace(userBody("a@example.com"), `"Math"`, `42`, 1), `"longenough"`, `12345678`, 1),
			wantStatusCode: http.StatusOK,
			wantStoreCalls: 1,
		},
		{
			name:           "object where text is expected",
			body:           strings.Replace(userBody("a@example.com"), `"Math"`, `{"name": "Math"}`, 1),
			wantStatusCode: http.StatusBadRequest,
			wantError:      user.MsgInvalidBody,
		},
		{
			name:           "null text field is missing",
			body:           strings.Replace(userBody("a@example.com"), `"BSc"`, `null`, 1),
			wantStatusCode: http.StatusBadRequest,
			wantError:      user.MsgMissingFields,
		},
		{
			name: "numeric password does not hide a bad age",
			body: strings.Replace(strings.Replace(userBody("a@example.com"), `"longenough"`, `12345678`, 1),
				`"age": 28`, `"age": -1`, 1),
			wantStatusCode: http.StatusBadRequest,
			wantError:      user.MsgInvalidAge,
		},
		{
			name:           "numeric password too short",
			body:           strings.Replace(userBody("a@example.com"), `"longenough"`, `1234567`, 1),
			wantStatusCode: http.StatusBadRequest,
			wantError:      user.MsgPasswordTooShort,
		},
		{
			name:           "missing required field",
			body:           strings.Replace(userBody("a@example.com"), `"BSc"`, `"  "`, 1),
			wantStatusCode: http.StatusBadRequest,
			wantError:      user.MsgMissingFields,
		},
		{
			name:           "invalid age",
			body:           strings.Replace(userBody("a@example.com"), `"age": 28`, `"age": "twenty"`, 1),
			wantStatusCode: http.StatusBadRequest,
			wantError:      user.MsgInvalidAge,
		},
		{
			name:           "invalid year",
			body:           strings.Replace(userBody("a@example.com"), `"year_of_study_current": 2`, `"year_of_study_current": 0`, 1),
			wantStatusCode: http.StatusBadRequest,
			wantError:      user.MsgInvalidYear,
		},
		{
			name:           "short password",
			body:           strings.Replace(userBody("a@example.com"), `"longenough"`, `"short"`, 1),
			wantStatusCode: http.StatusBadRequest,
			wantError:      user.MsgPasswordTooShort,
		},
		{
			name:           "description too long",
			body:           strings.Replace(userBody("a@example.com"), `"First programmer."`, `"`+strings.Repeat("x", 1001)+`"`, 1),
			wantStatusCode: http.StatusBadRequest,
			wantError:      user.MsgDescriptionLong,
		},
		{
			name: "duplicate email",
			body: userBody("a@example.com"),
			storeSetUp: func(f *fakeUsersStore) {
				f.createFn = func(ctx context.Context, nu user.NewUser) (user.User, error) {
					return user.User{}, fmt.Errorf("insert: %w", user.ErrEmailAlreadyExists)
				}
			},
			wantStatusCode: http.StatusConflict,
			wantError:      handlers.MsgEmailExists,
			wantStoreCalls: 1,
		},
		{
			name: "store error",
			body: userBody("a@example.com"),
			storeSetUp: func(f *fakeUsersStore) {
				f.createFn = func(ctx context.Context, nu user.NewUser) (user.User, error) {
					return user.User{}, errors.New("connection refused")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      handlers.MsgServerError,
			wantStoreCalls: 1,
		},
		{
			name:           "hash error",
			body:           userBody("a@example.com"),
			hasher:         fakeHasher{err: errors.New("out of slots")},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      handlers.MsgServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeUsersStore{}

			if tt.storeSetUp != nil {
				tt.storeSetUp(store)
			}

			h := handlers.NewUsersHandler(store, tt.hasher, nil, discardLogger())
			w := postUser(setupRouter(h), tt.body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantError != "" {
				if got := errorMessage(t, w); got != tt.wantError {
					t.Fatalf("got error %q, want %q", got, tt.wantError)
				}
			}

			if store.calls != tt.wantStoreCalls {
				t.Fatalf("store called %d times, want %d", store.calls, tt.wantStoreCalls)
			}
		})
	}
}

func TestCreateUserHandler_ResponseShape(t *testing.T) {
	var stored user.NewUser

	store := &fakeUsersStore{
		createFn: func(ctx context.Context, nu user.NewUser) (user.User, error) {
			stored = nu
			u := nu.ToUser(7)
			return u, nil
		},
	}

	h := handlers.NewUsersHandler(store, fakeHasher{}, nil, discardLogger())
	w := postUser(setupRouter(h), userBody("  Ada@Example.COM "))

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if stored.PasswordHash != "hashed:longenough" {
		t.Fatalf("store should receive the hash, got %q", stored.PasswordHash)
	}

	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}

	for _, forbidden := range []string{"password", "password_hash", "PasswordHash"} {
		if _, ok := got[forbidden]; ok {
			t.Fatalf("response leaks %q: %s", forbidden, w.Body.String())
		}
	}

	if strings.Contains(w.Body.String(), "longenough") {
		t.Fatalf("response leaks the password: %s", w.Body.String())
	}

	want := map[string]any{
		"id":                    float64(7),
		"first_name":            "Ada",
		"last_name":             "Lovelace",
		"age":                   float64(28),
		"subject":               "Math",
		"degree_type":           "BSc",
		"year_of_study_current": float64(2),
		"email":                 "ada@example.com",
		"description":           "First programmer.",
	}

	for k, v := range want {
		if got[k] != v {
			t.Fatalf("field %s: got %v, want %v", k, got[k], v)
		}
	}
}

func TestCreateUserHandler_Metrics(t *testing.T) {
	prom := observability.NewProm(prometheus.NewRegistry())
	h := handlers.NewUsersHandler(memory.NewUsersRepo(), fakeHasher{}, prom, discardLogger())
	r := setupRouter(h)

	postUser(r, userBody("a@example.com"))
	postUser(r, userBody("a@example.com"))
	postUser(r, `{}`)

	checks := map[string]float64{
		observability.OutcomeCreated:  1,
		observability.OutcomeConflict: 1,
		observability.OutcomeInvalid:  1,
	}

	for outcome, want := range checks {
		if got := testutil.ToFloat64(prom.RegistrationsTotal.WithLabelValues(outcome)); got != want {
			t.Fatalf("outcome %s: got %v, want %v", outcome, got, want)
		}
	}
}

func TestListUsersHandler(t *testing.T) {
	tests := []struct {
		name           string
		storeSetUp     func(*fakeUsersStore)
		wantStatusCode int
		wantBody       string
	}{
		{
			name:           "empty store gives empty array",
			wantStatusCode: http.StatusOK,
			wantBody:       `[]`,
		},
		{
			name: "store error is translated",
			storeSetUp: func(f *fakeUsersStore) {
				f.listFn = func(ctx context.Context) ([]user.User, error) {
					return nil, errors.New("db down")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
			wantBody:       `{"error":"Server error"}`,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeUsersStore{}
			if tt.storeSetUp != nil {
				tt.storeSetUp(store)
			}

			h := handlers.NewUsersHandler(store, fakeHasher{}, nil, discardLogger())
			w := getUsers(setupRouter(h), "")

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
			if strings.TrimSpace(w.Body.String()) != tt.wantBody {
				t.Fatalf("got body %s, want %s", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestListUsersHandler_ETag(t *testing.T) {
	h := handlers.NewUsersHandler(memory.NewUsersRepo(), fakeHasher{}, nil, discardLogger())
	r := setupRouter(h)

	postUser(r, userBody("a@example.com"))

	first := getUsers(r, "")
	etag := first.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag header")
	}

	notModified := getUsers(r, etag)
	if notModified.Code != http.StatusNotModified {
		t.Fatalf("got status %d, want 304", notModified.Code)
	}
	if notModified.Body.Len() != 0 {
		t.Fatalf("304 must not carry a body")
	}

	if w := getUsers(r, "W/"+etag); w.Code != http.StatusNotModified {
		t.Fatalf("weak validator should match, got %d", w.Code)
	}

	postUser(r, userBody("b@example.com"))

	changed := getUsers(r, etag)
	if changed.Code != http.StatusOK {
		t.Fatalf("stale ETag should get a fresh 200, got %d", changed.Code)
	}
}

// End-to-end over the memory store and a real bcrypt hasher.

func TestUsersRoundTrip(t *testing.T) {
	store := newRecordingStore()
	hasher := security.NewHasher(bcrypt.MinCost, 4)
	r := setupRouter(handlers.NewUsersHandler(store, hasher, nil, discardLogger()))

	const n = 5
	created := make([]user.User, 0, n)

	for i := 0; i < n; i++ {
		w := postUser(r, userBody(fmt.Sprintf("user%d@example.com", i)))
		if w.Code != http.StatusOK {
			t.Fatalf("create %d: got status %d, body=%s", i, w.Code, w.Body.String())
		}

		var u user.User
		if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil {
			t.Fatalf("decode created user: %v", err)
		}
		created = append(created, u)
	}

	hash, ok := store.hash("user0@example.com")
	if !ok {
		t.Fatalf("user0 not stored")
	}
	if err := security.CheckPassword(hash, "longenough"); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}

	w := getUsers(r, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: got status %d", w.Code)
	}

	if strings.Contains(w.Body.String(), "password") || strings.Contains(w.Body.String(), "$2a$") {
		t.Fatalf("list leaks credentials: %s", w.Body.String())
	}

	var listed []user.User
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}

	if len(listed) != n {
		t.Fatalf("got %d users, want %d", len(listed), n)
	}

	for i := range listed {
		if i > 0 && listed[i].ID <= listed[i-1].ID {
			t.Fatalf("list not in ascending id order: %+v", listed)
		}
		if listed[i] != created[i] {
			t.Fatalf("round trip mismatch:\n created %+v\n listed  %+v", created[i], listed[i])
		}
	}
}

func TestCreateUser_PasswordLongerThanBcryptLimit(t *testing.T) {
	store := newRecordingStore()
	r := setupRouter(handlers.NewUsersHandler(store, security.NewHasher(bcrypt.MinCost, 1), nil, discardLogger()))

	long := strings.Repeat("p", 73)
	w := postUser(r, strings.Replace(userBody("long@example.com"), `"longenough"`, `"`+long+`"`, 1))
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}

	hash, ok := store.hash("long@example.com")
	if !ok {
		t.Fatalf("user not stored")
	}
	if err := security.CheckPassword(hash, long); err != nil {
		t.Fatalf("stored hash does not verify the submitted password: %v", err)
	}
}

func TestCreateUser_SameEmailDifferentCase(t *testing.T) {
	r := setupRouter(handlers.NewUsersHandler(memory.NewUsersRepo(), fakeHasher{}, nil, discardLogger()))

	if w := postUser(r, userBody("ada@example.com")); w.Code != http.StatusOK {
		t.Fatalf("first: got status %d", w.Code)
	}

	w := postUser(r, userBody("ADA@Example.com"))
	if w.Code != http.StatusConflict {
		t.Fatalf("second: got status %d, want 409", w.Code)
	}
	if got := errorMessage(t, w); got != "Email already exists" {
		t.Fatalf("got error %q", got)
	}
}

func TestCreateUser_ConcurrentSameEmail(t *testing.T) {
	hasher := security.NewHasher(bcrypt.MinCost, 2)
	r := setupRouter(handlers.NewUsersHandler(memory.NewUsersRepo(), hasher, nil, discardLogger()))

	const n = 10
	var wg sync.WaitGroup
	codes := make(chan int, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			email := "race@example.com"
			if i%2 == 1 {
				email = "RACE@example.com"
			}
			codes <- postUser(r, userBody(email)).Code
		}(i)
	}

	wg.Wait()
	close(codes)

	ok, conflict := 0, 0
	for c := range codes {
		switch c {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			conflict++
		default:
			t.Fatalf("unexpected status %d", c)
		}
	}

	if ok != 1 || conflict != n-1 {
		t.Fatalf("got ok=%d conflict=%d", ok, conflict)
	}
}
