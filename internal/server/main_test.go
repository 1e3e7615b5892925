package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"conduit/internal/config"
	"conduit/internal/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:           "0",
		Env:            "test",
		JWTSecret:      "test-secret-that-is-long-enough-for-hs256",
		JWTTTLHours:    1,
		AllowedOrigins: "http://localhost:3000",
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(sqlite.Open("file::memory:"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

// newTestServer returns a server over a fresh in-memory sqlite database and
// its Fiber app. Redis is disabled.
func newTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()
	s, err := NewServerWithDeps(testConfig(), newTestDB(t), nil)
	require.NoError(t, err)
	return s, s.newApp()
}

// newTestServerWithRedis is newTestServer with caching and rate limiting
// backed by an in-process Redis.
func newTestServerWithRedis(t *testing.T) (*Server, *fiber.App, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s, err := NewServerWithDeps(testConfig(), newTestDB(t), client)
	require.NoError(t, err)
	return s, s.newApp(), mr
}

// eachBackend runs fn once without Redis and once with it, so cached reads
// are held to the same expectations as direct ones.
func eachBackend(t *testing.T, fn func(t *testing.T, s *Server, app *fiber.App)) {
	t.Run("without cache", func(t *testing.T) {
		s, app := newTestServer(t)
		fn(t, s, app)
	})
	t.Run("with redis", func(t *testing.T) {
		s, app, _ := newTestServerWithRedis(t)
		fn(t, s, app)
	})
}

type apiResponse struct {
	Status int
	Body   map[string]any
}

// do sends a JSON request and decodes the JSON response, if any.
func do(t *testing.T, app *fiber.App, method, path, token string, body any) apiResponse {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Token "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	out := apiResponse{Status: resp.StatusCode}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out.Body), string(raw))
	}
	return out
}

// register creates a user through the API and returns its token.
func register(t *testing.T, app *fiber.App, username string) string {
	t.Helper()
	resp := do(t, app, fiber.MethodPost, "/api/users", "", fiber.Map{
		"user": fiber.Map{
			"username": username,
			"email":    username + "@example.com",
			"password": "password123",
		},
	})
	require.Equal(t, fiber.StatusCreated, resp.Status, resp.Body)
	return resp.Body["user"].(map[string]any)["token"].(string)
}

// publish creates an article through the API and returns its slug.
func publish(t *testing.T, app *fiber.App, token, title string, tags ...string) string {
	t.Helper()
	if tags == nil {
		tags = []string{}
	}
	resp := do(t, app, fiber.MethodPost, "/api/articles", token, fiber.Map{
		"article": fiber.Map{
			"title":       title,
			"description": "about " + title,
			"body":        "body of " + title,
			"tagList":     tags,
		},
	})
	require.Equal(t, fiber.StatusCreated, resp.Status, resp.Body)
	return article(resp)["slug"].(string)
}

func article(resp apiResponse) map[string]any {
	return resp.Body["article"].(map[string]any)
}

func articles(resp apiResponse) []any {
	return resp.Body["articles"].([]any)
}
