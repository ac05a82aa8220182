// Package register is the boundary to the external registration flow.
// The mechanics of actually signing an account up (browser automation,
// mailbox verification) live outside this program, we only consume the
// session token they produce.
package register

import (
	"bytes"
	"context"
	"crypto/rand"
	"math/big"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Registrar obtains a session token for freshly created credentials.
type Registrar interface {
	Register(ctx context.Context, email, password string) (token string, err error)
}

// CommandRegistrar shells out to an external helper. The helper
// receives the credentials on its environment and prints the session
// token on stdout.
type CommandRegistrar struct {
	Command string
}

func (r CommandRegistrar) Register(ctx context.Context, email, password string) (string, error) {
	if r.Command == "" {
		return "", errors.New("no registration helper configured, set REGISTER_CMD")
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", r.Command)
	cmd.Env = append(cmd.Environ(), "EMAIL="+email, "PASSWORD="+password)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", errors.Wrap(err, "registration helper failed")
	}

	token := strings.TrimSpace(stdout.String())
	if token == "" {
		return "", errors.New("registration helper produced no token")
	}
	return token, nil
}

const (
	localChars    = "abcdefghijklmnopqrstuvwxyz0123456789"
	passwordChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"

	localLength    = 12
	passwordLength = 16
)

// GenerateCredentials returns a random email on the domain and a
// random password for it.
func GenerateCredentials(domain string) (email string, password string, err error) {
	if domain == "" {
		return "", "", errors.New("a domain is required to generate an account")
	}

	local, err := randomString(localChars, localLength)
	if err != nil {
		return "", "", err
	}
	password, err = randomString(passwordChars, passwordLength)
	if err != nil {
		return "", "", err
	}

	return local + "@" + domain, password, nil
}

func randomString(charset string, length int) (string, error) {
	var builder strings.Builder
	for i := 0; i < length; i++ {
		index, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", errors.Wrap(err, "could not gather randomness")
		}
		builder.WriteByte(charset[index.Int64()])
	}
	return builder.String(), nil
}
