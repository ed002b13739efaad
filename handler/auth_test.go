package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/lataonhehe/data-contract-hackathon/config"
	"github.com/lataonhehe/data-contract-hackathon/middleware"
)

func authTestConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:        "test-secret",
			TokenExpireHours: 1,
		},
		Users: []config.User{
			{Username: "demo", Password: "demo123"},
		},
	}
}

func setupAuthRouter(cfg *config.Config) *gin.Engine {
	h := NewAuthHandler(cfg)
	router := gin.New()
	router.POST("/api/auth/login", h.Login)
	authed := router.Group("/api", middleware.AuthMiddleware(&cfg.Auth))
	authed.GET("/auth/me", h.GetCurrentUser)
	return router
}

func TestLogin(t *testing.T) {
	cfg := authTestConfig()
	router := setupAuthRouter(cfg)

	w := doJSON(router, "POST", "/api/auth/login", gin.H{"username": "demo", "password": "demo123"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Token == "" {
		t.Error("Expected a token")
	}
	if resp.Username != "demo" {
		t.Errorf("Expected username demo, got %s", resp.Username)
	}
	if resp.ExpiresAt == "" {
		t.Error("Expected expires_at")
	}
}

func TestLoginRejected(t *testing.T) {
	cfg := authTestConfig()
	router := setupAuthRouter(cfg)

	tests := []struct {
		name string
		body gin.H
		want int
	}{
		{"wrong password", gin.H{"username": "demo", "password": "nope"}, http.StatusUnauthorized},
		{"unknown user", gin.H{"username": "ghost", "password": "demo123"}, http.StatusUnauthorized},
		{"missing fields", gin.H{"username": "demo"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, "POST", "/api/auth/login", tt.body)
			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestGetCurrentUser(t *testing.T) {
	cfg := authTestConfig()
	router := setupAuthRouter(cfg)

	w := doJSON(router, "POST", "/api/auth/login", gin.H{"username": "demo", "password": "demo123"})
	var login LoginResponse
	json.Unmarshal(w.Body.Bytes(), &login)

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"username":"demo"`) {
		t.Errorf("Expected username in response, got %s", rec.Body.String())
	}
}

func TestGetCurrentUserUnauthorized(t *testing.T) {
	cfg := authTestConfig()
	router := setupAuthRouter(cfg)

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}
