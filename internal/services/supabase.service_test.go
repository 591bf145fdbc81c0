package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"questlog/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "super-secret-signing-key"

func signTestToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newLocalService(t *testing.T) *SupabaseService {
	t.Helper()

	service, err := NewSupabaseService(config.Config{
		SupabaseURL:       "https://example.supabase.co",
		SupabaseJWTSecret: testJWTSecret,
	})
	require.NoError(t, err)
	return service
}

func TestSupabaseService_ValidateToken_Local(t *testing.T) {
	service := newLocalService(t)

	token := signTestToken(t, testJWTSecret, jwt.MapClaims{
		"sub":   "user-123",
		"aud":   "authenticated",
		"email": "player@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	info, err := service.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", info.UserID)
	assert.Equal(t, "player@example.com", info.Email)
}

func TestSupabaseService_ValidateToken_WrongSecret(t *testing.T) {
	service := newLocalService(t)

	token := signTestToken(t, "some-other-secret", jwt.MapClaims{
		"sub": "user-123",
		"aud": "authenticated",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := service.ValidateToken(context.Background(), token)
	assert.Error(t, err)
}

func TestSupabaseService_ValidateToken_Expired(t *testing.T) {
	service := newLocalService(t)

	token := signTestToken(t, testJWTSecret, jwt.MapClaims{
		"sub": "user-123",
		"aud": "authenticated",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := service.ValidateToken(context.Background(), token)
	assert.Error(t, err)
}

func TestSupabaseService_ValidateToken_WrongAudience(t *testing.T) {
	service := newLocalService(t)

	token := signTestToken(t, testJWTSecret, jwt.MapClaims{
		"sub": "user-123",
		"aud": "anon",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := service.ValidateToken(context.Background(), token)
	assert.Error(t, err)
}

func TestSupabaseService_ValidateToken_Remote(t *testing.T) {
	authServer := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/v1/user", r.URL.Path)
			assert.Equal(t, "Bearer the-access-token", r.Header.Get("Authorization"))
			assert.Equal(t, "anon-key", r.Header.Get("apikey"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id": "user-456", "email": "remote@example.com"}`))
		}),
	)
	defer authServer.Close()

	service, err := NewSupabaseService(config.Config{
		SupabaseURL:     authServer.URL,
		SupabaseAnonKey: "anon-key",
	})
	require.NoError(t, err)

	info, err := service.ValidateToken(context.Background(), "the-access-token")
	require.NoError(t, err)
	assert.Equal(t, "user-456", info.UserID)
	assert.Equal(t, "remote@example.com", info.Email)
}

func TestSupabaseService_ValidateToken_RemoteRejection(t *testing.T) {
	authServer := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message": "invalid token"}`))
		}),
	)
	defer authServer.Close()

	service, err := NewSupabaseService(config.Config{
		SupabaseURL:     authServer.URL,
		SupabaseAnonKey: "anon-key",
	})
	require.NoError(t, err)

	_, err = service.ValidateToken(context.Background(), "bad-token")
	assert.Error(t, err)
}

func TestNewSupabaseService_MissingConfig(t *testing.T) {
	_, err := NewSupabaseService(config.Config{})
	assert.Error(t, err)

	_, err = NewSupabaseService(config.Config{SupabaseURL: "https://example.supabase.co"})
	assert.Error(t, err)
}
