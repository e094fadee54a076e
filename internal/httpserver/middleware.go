package httpserver

import (
	"context"
	"net/http"
	"strings"

	"lv-paperledger/internal/auth"
	"lv-paperledger/internal/httputil"
)

type ctxKey string

const accountIDKey ctxKey = "account_id"

func WithAuth(svc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "missing bearer token"})
				return
			}
			accountID, err := svc.ParseToken(strings.TrimSpace(parts[1]))
			if err != nil {
				httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "invalid token"})
				return
			}
			ctx := context.WithValue(r.Context(), accountIDKey, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func AccountID(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(accountIDKey).(string)
	return id, ok && id != ""
}

// withAccount adapts a handler that needs the authenticated account.
func withAccount(h func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := AccountID(r)
		if !ok {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
			return
		}
		h(w, r, accountID)
	}
}
