package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"questlog/config"
	"questlog/internal/types"

	logger "github.com/Bparsons0904/goLogger"

	"github.com/golang-jwt/jwt/v5"
)

// SupabaseService validates bearer credentials issued by Supabase Auth.
// When the project's JWT secret is configured, access tokens are verified
// locally (HS256). Otherwise validation falls back to the auth endpoint,
// which is what the hosted dashboard anon key allows.
type SupabaseService struct {
	config     config.Config
	log        logger.Logger
	httpClient *http.Client
	jwtSecret  []byte
}

type supabaseUserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func NewSupabaseService(cfg config.Config) (*SupabaseService, error) {
	log := logger.New("SupabaseService")

	if cfg.SupabaseURL == "" {
		return nil, log.ErrMsg("Supabase configuration required but not provided: missing SupabaseURL")
	}

	var jwtSecret []byte
	if cfg.SupabaseJWTSecret != "" {
		jwtSecret = []byte(cfg.SupabaseJWTSecret)
	} else if cfg.SupabaseAnonKey == "" {
		return nil, log.ErrMsg(
			"Supabase configuration incomplete: need SUPABASE_JWT_SECRET or SUPABASE_ANON_KEY",
		)
	}

	httpClient := &http.Client{
		Timeout: 10 * time.Second,
	}

	service := &SupabaseService{
		config:     cfg,
		log:        log,
		httpClient: httpClient,
		jwtSecret:  jwtSecret,
	}

	log.Info("Supabase service initialized successfully",
		"url", cfg.SupabaseURL,
		"localVerification", jwtSecret != nil)
	return service, nil
}

// ValidateToken resolves a bearer token to the Supabase user it belongs to.
func (ss *SupabaseService) ValidateToken(
	ctx context.Context,
	token string,
) (*types.TokenInfo, error) {
	if ss.jwtSecret != nil {
		return ss.validateLocal(ctx, token)
	}
	return ss.validateRemote(ctx, token)
}

func (ss *SupabaseService) validateLocal(
	ctx context.Context,
	tokenString string,
) (*types.TokenInfo, error) {
	log := ss.log.TraceFromContext(ctx).Function("validateLocal")

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, log.ErrMsg(
					"unexpected signing method: " + fmt.Sprintf("%v", token.Header["alg"]),
				)
			}
			return ss.jwtSecret, nil
		},
		jwt.WithAudience("authenticated"),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, log.Err("token validation failed", err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, log.ErrMsg("token missing subject claim")
	}

	// Email lives in a private claim, re-parse the claim set loosely for it.
	email := ""
	if mapClaims, mapErr := extractMapClaims(tokenString); mapErr == nil {
		if e, ok := mapClaims["email"].(string); ok {
			email = e
		}
	}

	return &types.TokenInfo{
		UserID: claims.Subject,
		Email:  email,
	}, nil
}

func (ss *SupabaseService) validateRemote(
	ctx context.Context,
	token string,
) (*types.TokenInfo, error) {
	log := ss.log.TraceFromContext(ctx).Function("validateRemote")

	userURL := strings.TrimRight(ss.config.SupabaseURL, "/") + "/auth/v1/user"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userURL, nil)
	if err != nil {
		return nil, log.Err("failed to build auth request", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", ss.config.SupabaseAnonKey)

	resp, err := ss.httpClient.Do(req)
	if err != nil {
		return nil, log.Err("auth request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, log.Err("failed to read auth response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, log.Error(
			"token rejected by auth endpoint",
			"status", resp.StatusCode,
			"body", string(body),
		)
	}

	var user supabaseUserResponse
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, log.Err("failed to decode auth response", err)
	}

	if user.ID == "" {
		return nil, log.ErrMsg("auth response missing user id")
	}

	return &types.TokenInfo{
		UserID: user.ID,
		Email:  user.Email,
	}, nil
}

func extractMapClaims(tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}
