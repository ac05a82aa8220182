// Package session deals with the session cookie material stored on an
// account. The cookie value is a JWT whose payload carries the user id
// on the upstream service, sometimes with the id spliced in front of
// the token behind an url encoded "::" separator.
package session

import (
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
)

// CookieName is the name the upstream service expects the session
// token under.
const CookieName = "WorkosCursorSessionToken"

// The url encoded "::" separator between the user id and the token.
const userSeparator = "%3A%3A"

var ErrMalformedToken = errors.New("malformed session token")

// Token extracts the raw token material from a stored cookie string,
// stripping the cookie name and any trailing attributes.
func Token(cookie string) string {
	value := strings.TrimSpace(cookie)

	if index := strings.Index(value, CookieName+"="); index >= 0 {
		value = value[index+len(CookieName)+1:]
	}
	if index := strings.Index(value, ";"); index >= 0 {
		value = value[:index]
	}

	return value
}

// UserID derives the user identifier embedded in the token. The token
// must have exactly three dot separated segments and a subject claim in
// the payload segment. The signature is not verified, we only ever read
// our own stored material.
func UserID(cookie string) (string, error) {
	raw := Token(cookie)

	// The cookie may carry the user id in front of the token itself.
	if strings.Contains(raw, userSeparator) {
		partials := strings.Split(raw, userSeparator)
		raw = partials[len(partials)-1]
	}

	if strings.Count(raw, ".") != 2 {
		return "", errors.Wrap(ErrMalformedToken, "token does not have three segments")
	}

	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(raw, claims); err != nil {
		return "", errors.Wrapf(ErrMalformedToken, "could not decode payload: %v", err)
	}

	subject, ok := claims["sub"].(string)
	if !ok || subject == "" {
		return "", errors.Wrap(ErrMalformedToken, "token has no subject claim")
	}

	return subject, nil
}

// Normalize rewrites a stored cookie so it can be sent to the upstream
// service as is. The cookie name is prefixed when missing, and, when
// the token carries a user id portion, it is rebuilt from the payload
// so a stale id cannot linger.
func Normalize(cookie string) (string, error) {
	userID, err := UserID(cookie)
	if err != nil {
		return "", err
	}

	raw := Token(cookie)
	if strings.Contains(raw, userSeparator) {
		partials := strings.Split(raw, userSeparator)
		raw = userID + userSeparator + partials[len(partials)-1]
	}

	return CookieName + "=" + raw, nil
}
