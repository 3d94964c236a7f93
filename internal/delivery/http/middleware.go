package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/purescan/backend/internal/domain"
	"github.com/purescan/backend/internal/usecase"
)

const userContextKey = "user"

// CORSMiddleware handles CORS for the web client
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if isAllowedOrigin(origin, allowedOrigins) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
			c.Writer.Header().Set("Access-Control-Max-Age", "3600")
		}

		// Handle preflight requests
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// isAllowedOrigin checks if the origin is in the allowed list
func isAllowedOrigin(origin string, allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		// Support wildcard matching for preview deployments
		if strings.HasSuffix(allowed, "*") {
			prefix := strings.TrimSuffix(allowed, "*")
			if strings.HasPrefix(origin, prefix) {
				return true
			}
		} else if origin == allowed {
			return true
		}
	}
	return false
}

// LoggerMiddleware logs requests
func LoggerMiddleware() gin.HandlerFunc {
	return gin.Logger()
}

// RecoveryMiddleware recovers from panics
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.Recovery()
}

// session is one resolved bearer token. The state machine mirrors the
// client's session lifecycle: a token starts loading, resolves to
// authenticated or anonymous, and an authenticated one can be signed out
// when the provider later rejects it.
type session struct {
	state   domain.AuthState
	user    *domain.UserIdentity
	expires time.Time
}

// AuthMiddleware verifies bearer tokens against the identity provider and
// caches the outcome per token. Verification is bounded: when the provider
// is slow, a still-fresh cached identity is served instead of stalling the
// request.
type AuthMiddleware struct {
	verifier domain.IdentityVerifier
	timeout  time.Duration
	ttl      time.Duration

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewAuthMiddleware creates the auth middleware. timeout bounds a single
// provider call; ttl bounds how long a verified token skips re-verification.
func NewAuthMiddleware(verifier domain.IdentityVerifier, timeout, ttl time.Duration) *AuthMiddleware {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &AuthMiddleware{
		verifier: verifier,
		timeout:  timeout,
		ttl:      ttl,
		sessions: make(map[string]*session),
	}
}

// Handle is the gin middleware entrypoint
func (m *AuthMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.Request.Header.Get("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		if user := m.cachedUser(token); user != nil {
			c.Set(userContextKey, user)
			c.Next()
			return
		}

		user, err := usecase.WithTimeout(c.Request.Context(), m.timeout,
			func(ctx context.Context) (*domain.UserIdentity, error) {
				return m.verifier.Verify(ctx, token)
			}, nil)
		if err != nil && errors.Is(err, domain.ErrUnauthorized) {
			// Only an explicit provider verdict signs the session out
			m.reject(token)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		if err != nil || user == nil {
			// Provider timed out or failed without a verdict. Fall back to a
			// stale cached identity if one exists; a brand-new token cannot
			// be trusted blind.
			if err != nil {
				log.Printf("[Auth] identity provider error: %v", err)
			}
			if stale := m.staleUser(token); stale != nil {
				c.Set(userContextKey, stale)
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "identity provider unavailable"})
			return
		}

		m.store(token, user)
		c.Set(userContextKey, user)
		c.Next()
	}
}

// cachedUser returns the identity for a token whose session is
// authenticated and unexpired
func (m *AuthMiddleware) cachedUser(token string) *domain.UserIdentity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[token]
	if !ok || s.state != domain.AuthAuthenticated || time.Now().After(s.expires) {
		return nil
	}
	return s.user
}

// staleUser returns the identity of an authenticated session even past its
// TTL, for the provider-timeout fallback
func (m *AuthMiddleware) staleUser(token string) *domain.UserIdentity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[token]
	if !ok || s.state != domain.AuthAuthenticated {
		return nil
	}
	return s.user
}

func (m *AuthMiddleware) store(token string, user *domain.UserIdentity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, err := domain.AuthLoading.Transition(domain.AuthAuthenticated)
	if err != nil {
		state = domain.AuthAuthenticated
	}
	m.sessions[token] = &session{
		state:   state,
		user:    user,
		expires: time.Now().Add(m.ttl),
	}
}

// reject marks a token's session terminal so a replayed token never serves
// a stale identity again
func (m *AuthMiddleware) reject(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		m.sessions[token] = &session{state: domain.AuthAnonymous}
		return
	}
	if next, err := s.state.Transition(domain.AuthSignedOut); err == nil {
		s.state = next
		s.user = nil
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
