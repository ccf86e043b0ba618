package auth

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// Middleware authenticates bearer tokens and checks the caller's role
// against the policy.
type Middleware struct {
	secret []byte
	policy Policy
	logger logrus.FieldLogger
}

// NewMiddleware constructs the middleware.
func NewMiddleware(secret []byte, policy Policy, logger logrus.FieldLogger) *Middleware {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Middleware{secret: secret, policy: policy, logger: logger}
}

// Wrap guards next. Requests outside the protected API pass through.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		required, protected := m.policy.RequiredRole(r)
		if !protected || m.policy.IsExempt(r) {
			next.ServeHTTP(w, r)
			return
		}
		identity, status := m.authenticate(r, required)
		if status != http.StatusOK {
			http.Error(w, strings.ToLower(http.StatusText(status)), status)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity.Role, identity.Subject)))
	})
}

func (m *Middleware) authenticate(r *http.Request, required Role) (Identity, int) {
	claims, err := ParseJWT(bearerToken(r), m.secret)
	if err != nil {
		m.logger.WithError(err).WithField("path", r.URL.Path).Debug("token rejected")
		return Identity{}, http.StatusUnauthorized
	}
	role, _ := NormalizeRole(claims.Role)
	if !RoleAtLeast(role, required) {
		m.logger.WithFields(logrus.Fields{
			"path":     r.URL.Path,
			"method":   r.Method,
			"subject":  claims.Subject,
			"role":     role,
			"required": required,
		}).Warn("insufficient role")
		return Identity{}, http.StatusForbidden
	}
	return Identity{Role: role, Subject: claims.Subject}, http.StatusOK
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
