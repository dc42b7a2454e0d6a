package services

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vnkhanh/studyflash-backend/config"
	"github.com/vnkhanh/studyflash-backend/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase("file:"+filepath.Join(t.TempDir(), "test.db"), logger.Silent)
	if err != nil {
		t.Fatalf("OpenDatabase: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", model, err)
	}
	return n
}

func createUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	user := models.User{Name: email, Email: email, EmailVerified: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// fakeGitHub giả lập các endpoint OAuth và REST của GitHub.
type fakeGitHub struct {
	*httptest.Server

	mu          sync.Mutex
	userID      int64
	login       string
	name        string
	email       string
	emails      []githubEmail
	challenges  map[string]bool
	tokenCalls  int
	accessToken string
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{
		userID:      42,
		login:       "octocat",
		name:        "The Octocat",
		emails:      []githubEmail{{Email: "octocat@example.com", Primary: true, Verified: true}},
		challenges:  map[string]bool{},
		accessToken: "gho_test_token",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", f.handleToken)
	mux.HandleFunc("/user", f.requireToken(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		body := map[string]interface{}{
			"id":         f.userID,
			"login":      f.login,
			"name":       f.name,
			"avatar_url": "https://avatars.example.com/u/42",
		}
		if f.email != "" {
			body["email"] = f.email
		} else {
			body["email"] = nil
		}
		writeJSON(w, body)
	}))
	mux.HandleFunc("/user/emails", f.requireToken(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, f.emails)
	}))

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

// expectChallenge ghi nhận code_challenge từ URL authorize.
func (f *fakeGitHub) expectChallenge(challenge string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.challenges[challenge] = true
}

func (f *fakeGitHub) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenCalls++

	sum := sha256.Sum256([]byte(r.PostForm.Get("code_verifier")))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])
	if r.PostForm.Get("code") != "good-code" || !f.challenges[challenge] || r.PostForm.Get("client_id") != "client-id" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "bad_verification_code"})
		return
	}

	writeJSON(w, map[string]interface{}{
		"access_token": f.accessToken,
		"token_type":   "bearer",
		"scope":        "read:user,user:email",
	})
}

func (f *fakeGitHub) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+f.accessToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (f *fakeGitHub) provider() *GitHubProvider {
	return NewGitHubProvider("client-id", "client-secret", "http://localhost:8080/api/auth/callback/github", nil,
		WithGitHubEndpoints(f.URL+"/login/oauth/authorize", f.URL+"/login/oauth/access_token", f.URL),
		WithHTTPClient(f.Client()),
	)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
