package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cloo-solutions/mpedge/internal/api"
	"github.com/cloo-solutions/mpedge/internal/domain"
)

type contextKey string

const ClientIDKey contextKey = "client_id"

var ErrInvalidAPIKey = domain.NewDomainError(domain.ErrCodeUnauthorized, "invalid api key")

// AuthValidator resolves a bearer token to a client identifier.
type AuthValidator interface {
	ValidateAPIKey(ctx context.Context, token string) (string, error)
}

// StaticKeyValidator accepts exactly one configured key.
type StaticKeyValidator struct {
	Key      string
	ClientID string
}

func NewStaticKeyValidator(key string) *StaticKeyValidator {
	return &StaticKeyValidator{Key: key, ClientID: "default"}
}

func (v *StaticKeyValidator) ValidateAPIKey(_ context.Context, token string) (string, error) {
	if v.Key == "" || subtle.ConstantTimeCompare([]byte(token), []byte(v.Key)) != 1 {
		return "", ErrInvalidAPIKey
	}
	return v.ClientID, nil
}

func unauthorized(w http.ResponseWriter, message string) {
	api.JSON(w, http.StatusUnauthorized, api.ErrorResponse{Error: message, Code: domain.ErrCodeUnauthorized})
}

// APIKeyAuth requires "Authorization: Bearer <key>" on every request.
func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "missing authorization header")
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				unauthorized(w, "invalid authorization format")
				return
			}

			clientID, err := validator.ValidateAPIKey(r.Context(), token)
			if err != nil {
				unauthorized(w, "invalid api key")
				return
			}

			ctx := context.WithValue(r.Context(), ClientIDKey, clientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetClientID(ctx context.Context) string {
	clientID, _ := ctx.Value(ClientIDKey).(string)
	return clientID
}
