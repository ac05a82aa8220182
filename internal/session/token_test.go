package session

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// Builds an unsigned token with the given subject claim. The signature
// segment is garbage on purpose, it is never verified.
func makeToken(t *testing.T, claims map[string]any) string {
	t.Helper()

	header, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)

	return base64.RawURLEncoding.EncodeToString(header) +
		"." +
		base64.RawURLEncoding.EncodeToString(payload) +
		"." +
		base64.RawURLEncoding.EncodeToString([]byte("signature"))
}

func TestToken(t *testing.T) {
	require.Equal(t, "abc", Token("abc"))
	require.Equal(t, "abc", Token(CookieName+"=abc"))
	require.Equal(t, "abc", Token("  "+CookieName+"=abc; Path=/; HttpOnly"))
}

func TestUserID(t *testing.T) {
	token := makeToken(t, map[string]any{"sub": "user_123"})

	subject, err := UserID(token)
	require.NoError(t, err)
	require.Equal(t, "user_123", subject)

	// The cookie form and the spliced user id form resolve the same.
	subject, err = UserID(CookieName + "=" + token)
	require.NoError(t, err)
	require.Equal(t, "user_123", subject)

	subject, err = UserID("stale_id" + userSeparator + token)
	require.NoError(t, err)
	require.Equal(t, "user_123", subject)
}

func TestUserIDMalformed(t *testing.T) {
	_, err := UserID("")
	require.ErrorIs(t, err, ErrMalformedToken)

	_, err = UserID("one.two")
	require.ErrorIs(t, err, ErrMalformedToken)

	_, err = UserID("not.a.token")
	require.ErrorIs(t, err, ErrMalformedToken)

	// A decodable token without a subject claim is still malformed.
	_, err = UserID(makeToken(t, map[string]any{"aud": "nope"}))
	require.ErrorIs(t, err, ErrMalformedToken)
}

func TestNormalize(t *testing.T) {
	token := makeToken(t, map[string]any{"sub": "user_123"})

	// A bare token gets the cookie name prefixed.
	cookie, err := Normalize(token)
	require.NoError(t, err)
	require.Equal(t, CookieName+"="+token, cookie)

	// A stale spliced user id is rebuilt from the payload.
	cookie, err = Normalize("stale_id" + userSeparator + token)
	require.NoError(t, err)
	require.Equal(t, CookieName+"=user_123"+userSeparator+token, cookie)

	// Already normalized cookies come out unchanged.
	again, err := Normalize(cookie)
	require.NoError(t, err)
	require.Equal(t, cookie, again)
}
