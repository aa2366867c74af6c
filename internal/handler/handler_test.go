package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/reversecheats/internal/auth"
	"github.com/sakif/reversecheats/internal/handler"
	"github.com/sakif/reversecheats/internal/model"
	sqliteRepo "github.com/sakif/reversecheats/internal/repository/sqlite"
	"github.com/sakif/reversecheats/internal/service"
)

type fixture struct {
	db       *sqliteRepo.DB
	accounts *service.AuthService
	items    *service.ItemService
	cookies  *auth.CookieManager
	logger   *slog.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqliteRepo.New(context.Background(), filepath.Join(t.TempDir(), "handler.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &fixture{
		db:       db,
		accounts: service.NewAuthService(db, db, auth.NewPasswordService(bcrypt.MinCost), time.Hour, logger),
		items:    service.NewItemService(db, logger),
		cookies:  auth.NewCookieManager(time.Hour, false),
		logger:   logger,
	}
}

// asUser stands in for auth.RequireSession: it attaches a session for
// userID without a cookie round trip.
func asUser(userID int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := &model.Session{Token: "test", UserID: userID, User: model.Identity{ID: userID}}
			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), s)))
		})
	}
}

func itemRouter(items handler.Items, logger *slog.Logger, userID int64) http.Handler {
	h := handler.NewItemHandler(items, logger)
	r := chi.NewRouter()
	r.Use(asUser(userID))
	r.Get("/api/cheat-items", h.HandleList)
	r.Get("/api/cheat-items/{id}", h.HandleGet)
	r.Post("/api/cheat-items", h.HandleCreate)
	r.Put("/api/cheat-items/{id}", h.HandleUpdate)
	r.Delete("/api/cheat-items/{id}", h.HandleDelete)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	return v
}

func createUser(t *testing.T, f *fixture, email string) int64 {
	t.Helper()
	u, err := f.accounts.Signup(context.Background(), service.Credentials{Email: email, Password: "password123"})
	require.NoError(t, err)
	return u.ID
}

// =========================================================================
// AUTH HANDLER
// =========================================================================

func TestAuthHandler_Signup(t *testing.T) {
	f := newFixture(t)
	h := handler.NewAuthHandler(f.accounts, f.cookies, f.logger)

	t.Run("created", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleSignup(rr, httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(`{"email":"u@x.com","password":"password123"}`)))

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.JSONEq(t, `{"ok":true}`, rr.Body.String())
		assert.Empty(t, rr.Result().Cookies(), "signup does not log in")
	})

	t.Run("duplicate", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleSignup(rr, httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(`{"email":"U@x.com","password":"password123"}`)))

		assert.Equal(t, http.StatusConflict, rr.Code)
		body := decode[handler.ErrorResponse](t, rr)
		assert.Equal(t, "Email already registered", body.Message)
	})

	t.Run("bad email", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleSignup(rr, httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(`{"email":"nope","password":"password123"}`)))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Invalid email format", decode[handler.ErrorResponse](t, rr).Message)
	})

	t.Run("malformed json", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleSignup(rr, httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(`{"email":`)))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Invalid request body", decode[handler.ErrorResponse](t, rr).Message)
	})

	t.Run("wrong type", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleSignup(rr, httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(`{"email":42,"password":"password123"}`)))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	f := newFixture(t)
	h := handler.NewAuthHandler(f.accounts, f.cookies, f.logger)
	id := createUser(t, f, "u@x.com")

	t.Run("success sets cookie", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleLogin(rr, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"email":"u@x.com","password":"password123"}`)))

		require.Equal(t, http.StatusOK, rr.Code)
		var body struct {
			OK   bool `json:"ok"`
			User struct {
				ID          int64   `json:"id"`
				Email       string  `json:"email"`
				AccountName *string `json:"account_name"`
			} `json:"user"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.True(t, body.OK)
		assert.Equal(t, id, body.User.ID)
		assert.Equal(t, "u@x.com", body.User.Email)
		assert.Nil(t, body.User.AccountName)

		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "sid", cookies[0].Name)
		assert.Len(t, cookies[0].Value, 64)
		assert.True(t, cookies[0].HttpOnly)
		assert.NotContains(t, rr.Body.String(), cookies[0].Value, "token only travels in the cookie")
	})

	t.Run("wrong password", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleLogin(rr, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"email":"u@x.com","password":"password124"}`)))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "Invalid email or password", decode[handler.ErrorResponse](t, rr).Message)
		assert.Empty(t, rr.Result().Cookies())
	})

	t.Run("missing password", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleLogin(rr, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"email":"u@x.com"}`)))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Email and password are required", decode[handler.ErrorResponse](t, rr).Message)
	})
}

// failingAccounts wraps a real service but fails Logout.
type failingAccounts struct {
	*service.AuthService
}

func (failingAccounts) Logout(context.Context, string) error { return errors.New("database is locked") }

func TestAuthHandler_LogoutAlwaysOK(t *testing.T) {
	f := newFixture(t)

	for name, accounts := range map[string]handler.Accounts{
		"normal":        f.accounts,
		"store failure": failingAccounts{f.accounts},
	} {
		t.Run(name, func(t *testing.T) {
			h := handler.NewAuthHandler(accounts, f.cookies, f.logger)
			req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
			req.AddCookie(&http.Cookie{Name: "sid", Value: "abc"})
			rr := httptest.NewRecorder()

			h.HandleLogout(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.JSONEq(t, `{"ok":true}`, rr.Body.String())
			cookies := rr.Result().Cookies()
			require.Len(t, cookies, 1)
			assert.Equal(t, -1, cookies[0].MaxAge)
		})
	}
}

func TestAuthHandler_Me(t *testing.T) {
	f := newFixture(t)
	h := handler.NewAuthHandler(f.accounts, f.cookies, f.logger)
	createUser(t, f, "u@x.com")
	res, err := f.accounts.Login(context.Background(), service.Credentials{Email: "u@x.com", Password: "password123"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req = req.WithContext(auth.WithSession(req.Context(), res.Session))
	rr := httptest.NewRecorder()
	h.HandleMe(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"user":{"id":`+jsonInt(res.User.ID)+`,"email":"u@x.com","account_name":null},"isFirstLogin":true}`, rr.Body.String())
}

func TestAuthHandler_MeWithoutSession(t *testing.T) {
	f := newFixture(t)
	h := handler.NewAuthHandler(f.accounts, f.cookies, f.logger)

	rr := httptest.NewRecorder()
	h.HandleMe(rr, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthHandler_UpdateAccountName(t *testing.T) {
	f := newFixture(t)
	h := handler.NewAuthHandler(f.accounts, f.cookies, f.logger)
	id := createUser(t, f, "u@x.com")

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/account-name", strings.NewReader(body))
		req = req.WithContext(auth.WithSession(req.Context(), &model.Session{UserID: id}))
		rr := httptest.NewRecorder()
		h.HandleUpdateAccountName(rr, req)
		return rr
	}

	rr := send(`{"account_name":"  Ada  "}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"ok":true,"account_name":"Ada"}`, rr.Body.String())

	u, err := f.db.GetUserByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, u.AccountName)
	assert.Equal(t, "Ada", *u.AccountName)

	rr = send(`{"account_name":"<b>"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "account_name contains invalid characters", decode[handler.ErrorResponse](t, rr).Message)

	rr = send(`{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "account_name is required", decode[handler.ErrorResponse](t, rr).Message)
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

// =========================================================================
// ITEM HANDLER
// =========================================================================

func TestItemHandler_CRUD(t *testing.T) {
	f := newFixture(t)
	userID := createUser(t, f, "u@x.com")
	router := itemRouter(f.items, f.logger, userID)

	rr := do(t, router, http.MethodPost, "/api/cheat-items",
		`{"title":"Git reset","category":"Command","tags":["git", 7, null, "  "],"content":"# reset"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decode[model.CheatItem](t, rr)
	assert.Regexp(t, `^[a-f0-9]{18}$`, created.ID)
	assert.Equal(t, []string{"git"}, created.Tags)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	rr = do(t, router, http.MethodGet, "/api/cheat-items/"+created.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, created, decode[model.CheatItem](t, rr))

	rr = do(t, router, http.MethodGet, "/api/cheat-items", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[struct {
		Items []model.CheatItem `json:"items"`
	}](t, rr)
	require.Len(t, list.Items, 1)

	rr = do(t, router, http.MethodPut, "/api/cheat-items/"+created.ID, `{"title":"Git reset","content":"changed"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var updated map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&updated))
	assert.NotContains(t, updated, "createdAt")
	assert.Equal(t, "Other", updated["category"])
	assert.Equal(t, "changed", updated["content"])

	rr = do(t, router, http.MethodDelete, "/api/cheat-items/"+created.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"ok":true}`, rr.Body.String())

	rr = do(t, router, http.MethodDelete, "/api/cheat-items/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Item not found", decode[handler.ErrorResponse](t, rr).Message)
}

func TestItemHandler_EmptyListIsArray(t *testing.T) {
	f := newFixture(t)
	router := itemRouter(f.items, f.logger, createUser(t, f, "u@x.com"))

	rr := do(t, router, http.MethodGet, "/api/cheat-items", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"items":[]}`, rr.Body.String())
}

func TestItemHandler_BadID(t *testing.T) {
	f := newFixture(t)
	router := itemRouter(f.items, f.logger, createUser(t, f, "u@x.com"))

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rr := do(t, router, method, "/api/cheat-items/NOT-HEX", `{"title":"t","content":"c"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code, method)
		assert.Equal(t, "Invalid item ID", decode[handler.ErrorResponse](t, rr).Message, method)
	}
}

func TestItemHandler_OtherUsersItemIsNotFound(t *testing.T) {
	f := newFixture(t)
	owner := createUser(t, f, "a@x.com")
	intruder := createUser(t, f, "b@x.com")

	rr := do(t, itemRouter(f.items, f.logger, owner), http.MethodPost, "/api/cheat-items", `{"title":"mine","content":"secret"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	id := decode[model.CheatItem](t, rr).ID

	router := itemRouter(f.items, f.logger, intruder)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/api/cheat-items/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodPut, "/api/cheat-items/"+id, `{"title":"x","content":"y"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodDelete, "/api/cheat-items/"+id, "").Code)
}

func TestItemHandler_ValidationMessages(t *testing.T) {
	f := newFixture(t)
	router := itemRouter(f.items, f.logger, createUser(t, f, "u@x.com"))

	rr := do(t, router, http.MethodPost, "/api/cheat-items", `{"title":"t"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "title and content are required", decode[handler.ErrorResponse](t, rr).Message)

	rr = do(t, router, http.MethodPost, "/api/cheat-items", `{"title":"   ","content":"c"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "title and content cannot be empty", decode[handler.ErrorResponse](t, rr).Message)
}

func TestItemHandler_BodyTooLarge(t *testing.T) {
	f := newFixture(t)
	router := itemRouter(f.items, f.logger, createUser(t, f, "u@x.com"))

	huge := `{"title":"t","content":"` + strings.Repeat("x", handler.MaxBodyBytes+1) + `"}`
	rr := do(t, router, http.MethodPost, "/api/cheat-items", huge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

// brokenItems fails every call with a store error.
type brokenItems struct{}

var errStore = errors.New("sqlite: disk I/O error near SELECT")

func (brokenItems) List(context.Context, int64) ([]model.CheatItem, error) { return nil, errStore }
func (brokenItems) Get(context.Context, int64, string) (*model.CheatItem, error) {
	return nil, errStore
}
func (brokenItems) Create(context.Context, int64, service.ItemInput) (*model.CheatItem, error) {
	return nil, errStore
}
func (brokenItems) Update(context.Context, int64, string, service.ItemInput) (*model.CheatItem, error) {
	return nil, errStore
}
func (brokenItems) Delete(context.Context, int64, string) error { return errStore }

func TestItemHandler_StoreErrorsAreGeneric(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	router := itemRouter(brokenItems{}, logger, 1)

	rr := do(t, router, http.MethodGet, "/api/cheat-items", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decode[handler.ErrorResponse](t, rr)
	assert.Equal(t, "Server error", body.Message)
	assert.Equal(t, "internal_error", body.Error)
	assert.NotContains(t, body.Message, "SELECT")
}

// =========================================================================
// HEALTH
// =========================================================================

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	f := newFixture(t)

	rr := httptest.NewRecorder()
	handler.NewHealthHandler(f.db, f.logger).HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	down := pingFunc(func(context.Context) error { return errors.New("database is closed") })
	rr = httptest.NewRecorder()
	handler.NewHealthHandler(down, f.logger).HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rr.Body.String())
}
