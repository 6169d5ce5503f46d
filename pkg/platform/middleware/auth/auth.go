package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	request "clubreg/pkg/platform/middleware/request"
	"clubreg/pkg/requestcontext"
)

// TokenValidator validates a bearer token and returns the calling service.
type TokenValidator interface {
	ValidateService(tokenString string) (string, error)
}

// TokenValidatorFunc adapts a function to TokenValidator.
type TokenValidatorFunc func(tokenString string) (string, error)

func (f TokenValidatorFunc) ValidateService(tokenString string) (string, error) {
	return f(tokenString)
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireServiceToken admits requests carrying a valid service token. When
// allowed is non-empty the token's service must be one of them.
func RequireServiceToken(validator TokenValidator, logger *slog.Logger, allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := request.GetRequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			caller, err := validator.ValidateService(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			if len(allowed) > 0 && !slices.Contains(allowed, caller) {
				logger.WarnContext(ctx, "forbidden - caller not allowed",
					"caller", caller,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "Caller not allowed")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, caller)))
		})
	}
}
