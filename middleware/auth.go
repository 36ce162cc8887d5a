package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"newsnotes/internal/auth"
	"newsnotes/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

var (
	errNoToken       = errors.New("no token provided")
	errNotConfigured = errors.New("server is not configured to validate JWTs")
)

// Authenticator validates Supabase access tokens and attaches the user to
// the request context.
type Authenticator struct {
	Secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{Secret: []byte(secret)}
}

// Require rejects requests without a valid token.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.authenticate(r)
		if err != nil {
			if errors.Is(err, errNoToken) {
				http.Error(w, "Unauthorized: No token provided", http.StatusUnauthorized)
				return
			}
			logger.Sugar.Infof("Invalid token: %v", err)
			http.Error(w, "Unauthorized: Invalid or expired token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
	})
}

// Optional attaches the user when a valid token is present and otherwise
// lets the request through anonymously. Handlers behind it decide what an
// anonymous caller may do.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.authenticate(r)
		if err != nil {
			if !errors.Is(err, errNoToken) {
				logger.Sugar.Infof("Ignoring invalid token: %v", err)
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
	})
}

func (a *Authenticator) authenticate(r *http.Request) (*auth.User, error) {
	tokenString := bearerToken(r)
	if tokenString == "" {
		return nil, errNoToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Ensure the signing method is HMAC (Supabase default)
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		if len(a.Secret) == 0 {
			logger.Sugar.Error("SUPABASE_JWT_SECRET environment variable not set.")
			return nil, errNotConfigured
		}
		return a.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("could not parse token claims")
	}
	// Supabase puts the user id in the 'sub' claim.
	userID, err := claims.GetSubject()
	if err != nil || userID == "" {
		return nil, errors.New("user id (sub) claim is missing or invalid")
	}
	email, _ := claims["email"].(string)

	return &auth.User{ID: userID, Email: email}, nil
}

// bearerToken reads the token from the query string first, because the
// browser WebSocket API cannot set headers, then from the Authorization
// header.
func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
