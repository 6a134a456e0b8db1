// Package auth mints and checks the short-lived session tokens handed
// out after a successful inbound launch. The token carries just enough
// for the portal: who the user is, their role, and the site the launch
// landed in.
package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const SessionCookie = "ltigate_session"

type Service struct {
	hmac []byte
	ttl  time.Duration
}

func NewService(secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Service{hmac: []byte(secret), ttl: ttl}
}

type Claims struct {
	Sub    string `json:"sub"`
	EID    string `json:"eid"`
	Role   string `json:"role"`
	SiteID string `json:"site"`
	jwt.RegisteredClaims
}

func (s *Service) IssueLaunchToken(userID, eid, role, siteID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Sub:    userID,
		EID:    eid,
		Role:   role,
		SiteID: siteID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "lti-gateway",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.hmac)
}

func (s *Service) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.hmac, nil
	})
	if err != nil || !token.Valid {
		return nil, err
	}
	c, _ := token.Claims.(*Claims)
	return c, nil
}

// JWTMiddleware accepts the session as a Bearer header or the launch
// cookie, and attaches the parsed claims to the request context.
func JWTMiddleware(s *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := ""
			if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				tok = strings.TrimPrefix(h, "Bearer ")
			} else if c, err := r.Cookie(SessionCookie); err == nil {
				tok = c.Value
			}
			if tok == "" {
				http.Error(w, "missing session", http.StatusUnauthorized)
				return
			}
			claims, err := s.Parse(tok)
			if err != nil || claims == nil {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
