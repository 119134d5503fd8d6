package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/eservice/internal/events"
	apperrors "github.com/spec-kit/eservice/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)
	token, expires, err := tm.GenerateToken("agent-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expires, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "agent-1", claims.SubjectID)

	_, err = NewTokenManager("other", time.Minute).ParseToken(token)
	assert.Error(t, err)

	_, _, err = tm.GenerateToken("")
	assert.Error(t, err)
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		SubjectID: "agent-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tm.ParseToken(signed)
	assert.Error(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		SubjectID: "agent-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	signed, err = foreign.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tm.ParseToken(signed)
	assert.Error(t, err)
}

func TestAPIKeyVerification(t *testing.T) {
	hash, err := HashAPIKey("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyAPIKey(hash, "s3cret"))
	assert.False(t, VerifyAPIKey(hash, "wrong"))
	assert.False(t, VerifyAPIKey("", "s3cret"))
	assert.False(t, VerifyAPIKey(hash, ""))
}

func newAuthApp(mw *AuthMiddleware) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"error_code": de.Code})
		},
	})
	app.Get("/whoami", mw.Handle, func(c *fiber.Ctx) error {
		p, ok := PrincipalFromContext(c)
		if !ok {
			return c.SendStatus(500)
		}
		actor := events.ActorFromContext(c.UserContext())
		return c.JSON(fiber.Map{"subject": p.SubjectID, "method": p.Method, "actor": actor.SubjectID})
	})
	return app
}

func TestMiddlewareDisabledAllowsAnonymous(t *testing.T) {
	app := newAuthApp(NewAuthMiddleware(false, nil, ""))
	resp, err := app.Test(httptest.NewRequest("GET", "/whoami", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestMiddlewareEnforcesCredentials(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)
	hash, err := HashAPIKey("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	app := newAuthApp(NewAuthMiddleware(true, tm, hash))
	token, _, err := tm.GenerateToken("agent-9")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		value  string
		status int
	}{
		{"missing", "", "", 401},
		{"wrong scheme", "Authorization", "Basic abc", 401},
		{"bad token", "Authorization", "Bearer nope", 401},
		{"valid token", "Authorization", "Bearer " + token, 200},
		{"bad api key", "X-API-Key", "wrong", 401},
		{"valid api key", "X-API-Key", "s3cret", 200},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/whoami", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
