package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"tribune/internal/config"
	"tribune/internal/database"
	"tribune/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDB *gorm.DB

const testPassword = "Password1234!"

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")

	var err error
	testDB, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Printf("Server tests skipped: in-memory database unavailable: %v", err)
		os.Exit(0)
	}

	if err := testDB.AutoMigrate(database.PersistentModels()...); err != nil {
		log.Printf("Server tests skipped: migration failed: %v", err)
		os.Exit(0)
	}

	os.Exit(m.Run())
}

// newTestApp builds a Fiber app with the full route table backed by the
// shared in-memory database. Redis is absent, so caching and rate limiting
// degrade to pass-through.
func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	cfg := &config.Config{
		Port:      "0",
		Env:       "test",
		JWTSecret: "test-secret-key-for-server-tests",
		BaseURL:   "http://localhost:8080",
	}

	s, err := NewServerWithDeps(cfg, testDB, nil)
	if err != nil {
		t.Fatalf("failed to build server: %v", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupRoutes(app)
	return app
}

func truncateTables(t *testing.T, db *gorm.DB) {
	t.Helper()
	for _, table := range []string{
		"likes", "comments", "posts_categories", "posts", "categories",
		"user_ratings", "email_tokens", "reset_tokens", "refresh_tokens",
		"revoked_tokens", "users",
	} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("failed to clear table %s: %v", table, err)
		}
	}
}

func mustCreateUser(t *testing.T, db *gorm.DB, login string, role models.Role) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := &models.User{
		Login:          login,
		Email:          login + "@example.com",
		PasswordHash:   string(hash),
		Role:           role,
		EmailConfirmed: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", login, err)
	}
	return user
}

func mustCreatePost(t *testing.T, db *gorm.DB, authorID uint, title string, status models.Status) *models.Post {
	t.Helper()
	post := &models.Post{
		AuthorID:    authorID,
		Title:       title,
		Content:     "content of " + title,
		Status:      status,
		PublishDate: time.Now(),
	}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("failed to create post %s: %v", title, err)
	}
	return post
}

// doRequest issues a JSON request against the app. An empty token means an
// anonymous call.
func doRequest(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

// loginAs authenticates an existing user and returns a bearer token.
func loginAs(t *testing.T, app *fiber.App, login string) string {
	t.Helper()

	resp := doRequest(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"login":    login,
		"password": testPassword,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login for %s returned status %d", login, resp.StatusCode)
	}

	var body struct {
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	decodeBody(t, resp, &body)
	if body.Tokens.AccessToken == "" {
		t.Fatalf("login for %s returned no access token", login)
	}
	return body.Tokens.AccessToken
}
