package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ulasari/RentalGo/internal/domain"
	"github.com/ulasari/RentalGo/internal/repository"
	"github.com/ulasari/RentalGo/pkg/httpclient"
	"github.com/ulasari/RentalGo/pkg/middleware"
)

// newTokenVerifier builds a validator that introspects bearer tokens against
// the auth service. Token cryptography stays with auth; this service only
// trusts the verify endpoint's answer. Verified identities are provisioned
// into the local users table so that bookings, reviews and favorites can
// reference them.
func newTokenVerifier(authBaseURL string, users repository.UserRepository, logger *slog.Logger) middleware.TokenValidator {
	var provisioned sync.Map
	client := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("auth-verify"),
		logger,
	)
	verifyURL := authBaseURL + "/api/v1/auth/verify"

	return func(token string) (*middleware.Claims, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, verifyURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build verify request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := client.Do(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("verify token: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, httpclient.ParseResponseError(resp, "auth")
		}

		var envelope struct {
			Data middleware.Claims `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return nil, fmt.Errorf("decode verify response: %w", err)
		}
		claims := envelope.Data

		if _, seen := provisioned.Load(claims.UserID); !seen {
			err := users.Ensure(ctx, &domain.User{
				ID:    claims.UserID,
				Email: claims.Email,
				Role:  claims.Role,
			})
			if err != nil {
				// The request still proceeds; writes that need the row will
				// surface their own errors.
				logger.Warn("failed to provision user",
					slog.String("user_id", claims.UserID),
					slog.String("error", err.Error()),
				)
			} else {
				provisioned.Store(claims.UserID, struct{}{})
			}
		}

		return &claims, nil
	}
}
