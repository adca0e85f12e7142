package api

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"carassist-backend/internal/auth"
	"carassist-backend/pkg/httputil"
)

// --- JWT Middleware ---

// JwtAuthMiddleware verifies the JWT token from the Authorization header.
// If valid, it injects the UserID into the request context.
func JwtAuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Println("Auth Middleware: Missing Authorization header")
				httputil.RespondError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				log.Printf("Auth Middleware: Malformed Authorization header")
				httputil.RespondError(w, http.StatusUnauthorized, "Malformed Authorization header (Expected: Bearer <token>)")
				return
			}

			authenticate(w, r, next, parts[1], jwtSecret)
		})
	}
}

// JwtQueryAuthMiddleware verifies a JWT passed as the `token` query
// parameter. Used by the SSE stream endpoint only: the browser EventSource
// API cannot set custom headers, so the header middleware is unusable there.
func JwtQueryAuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := r.URL.Query().Get("token")
			if tokenString == "" {
				log.Println("Auth Middleware: Missing token query parameter")
				httputil.RespondError(w, http.StatusUnauthorized, "token query parameter required")
				return
			}

			authenticate(w, r, next, tokenString, jwtSecret)
		})
	}
}

func authenticate(w http.ResponseWriter, r *http.Request, next http.Handler, tokenString, jwtSecret string) {
	claims, err := auth.ParseAccessToken(tokenString, jwtSecret)
	if err != nil {
		log.Printf("Auth Middleware: Error parsing token: %v", err)
		if errors.Is(err, jwt.ErrTokenExpired) {
			httputil.RespondError(w, http.StatusUnauthorized, "Token has expired")
		} else if errors.Is(err, jwt.ErrTokenMalformed) {
			httputil.RespondError(w, http.StatusUnauthorized, "Malformed token")
		} else {
			httputil.RespondError(w, http.StatusUnauthorized, "Invalid token")
		}
		return
	}

	next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), claims.UserID)))
}
