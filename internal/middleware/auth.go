package middleware

import (
	"net/http"

	"bestpay-client/internal/auth"
	"bestpay-client/internal/logger"
	"bestpay-client/internal/utils"

	"go.uber.org/zap"
)

// Auth rejects requests without a valid service token and stores the caller in
// the request context.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := auth.ExtractAccessToken(r)
			if tokenStr == "" {
				utils.WriteJSONError(w, "missing access token", http.StatusUnauthorized)
				return
			}

			claims, err := auth.ParseServiceToken(tokenStr, secret)
			if err != nil {
				logger.FromCtx(r.Context()).Warn("access token rejected", zap.Error(err))
				utils.WriteJSONError(w, "invalid access token", http.StatusUnauthorized)
				return
			}

			ctx := utils.SetClientContext(r.Context(), claims.ClientID(), claims.Scope)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireScope answers 403 unless the caller's token grants one of scopes. It runs
// after Auth.
func RequireScope(scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.HasScope(utils.GetClientScopeFromContext(r.Context()), scopes...) {
				utils.WriteJSONError(w, "token scope does not allow this operation", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
