package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/eservice/internal/events"
	apperrors "github.com/spec-kit/eservice/pkg/util/errorutil"
)

const (
	principalKey = "auth_principal"
	apiKeyHeader = "X-API-Key"
	// APIKeySubject is the principal subject for callers using the service API key.
	APIKeySubject = "service-api-key"
)

// Method describes how a principal authenticated.
type Method string

const (
	MethodNone   Method = "none"
	MethodJWT    Method = "jwt"
	MethodAPIKey Method = "api_key"
)

// Principal represents the authenticated caller.
type Principal struct {
	SubjectID string
	Method    Method
}

// AuthMiddleware validates bearer tokens or the service API key. When
// disabled every caller passes as an anonymous principal.
type AuthMiddleware struct {
	enabled    bool
	tokens     *TokenManager
	apiKeyHash string
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(enabled bool, tokens *TokenManager, apiKeyHash string) *AuthMiddleware {
	return &AuthMiddleware{enabled: enabled, tokens: tokens, apiKeyHash: apiKeyHash}
}

// Handle enforces authentication and records the caller as the event actor.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	principal, err := m.authenticate(c)
	if err != nil {
		return err
	}

	c.Locals(principalKey, principal)
	c.SetUserContext(events.ContextWithActor(c.UserContext(), events.Actor{
		SubjectID: principal.SubjectID,
		IPAddress: c.IP(),
	}))
	return c.Next()
}

func (m *AuthMiddleware) authenticate(c *fiber.Ctx) (*Principal, error) {
	if !m.enabled {
		return &Principal{Method: MethodNone}, nil
	}

	if key := c.Get(apiKeyHeader); key != "" {
		if !VerifyAPIKey(m.apiKeyHash, key) {
			return nil, apperrors.NewUnauthorized("invalid API key")
		}
		return &Principal{SubjectID: APIKeySubject, Method: MethodAPIKey}, nil
	}

	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return nil, apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	return &Principal{SubjectID: claims.SubjectID, Method: MethodJWT}, nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
