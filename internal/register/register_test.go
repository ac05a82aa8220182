package register

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateCredentials(t *testing.T) {
	email, password, err := GenerateCredentials("example.com")
	require.NoError(t, err)

	local, domain, found := strings.Cut(email, "@")
	require.True(t, found)
	require.Equal(t, "example.com", domain)
	require.Len(t, local, localLength)
	require.Len(t, password, passwordLength)

	// Two generations never collide in practice.
	other, _, err := GenerateCredentials("example.com")
	require.NoError(t, err)
	require.NotEqual(t, email, other)
}

func TestGenerateCredentialsNeedsDomain(t *testing.T) {
	_, _, err := GenerateCredentials("")
	require.Error(t, err)
}

func TestCommandRegistrar(t *testing.T) {
	registrar := CommandRegistrar{Command: `echo "token-for-$EMAIL"`}

	token, err := registrar.Register(context.Background(), "new@example.com", "secret")
	require.NoError(t, err)
	require.Equal(t, "token-for-new@example.com", token)
}

func TestCommandRegistrarFailures(t *testing.T) {
	ctx := context.Background()

	_, err := CommandRegistrar{}.Register(ctx, "a@example.com", "secret")
	require.ErrorContains(t, err, "REGISTER_CMD")

	_, err = CommandRegistrar{Command: "exit 3"}.Register(ctx, "a@example.com", "secret")
	require.Error(t, err)

	// A helper that prints nothing produced no token.
	_, err = CommandRegistrar{Command: "true"}.Register(ctx, "a@example.com", "secret")
	require.ErrorContains(t, err, "no token")
}

func TestResetMachineIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	existing := map[string]any{
		"some.other.setting":    "kept",
		"telemetry.machineId":   "old",
		"telemetry.devDeviceId": "old",
	}
	data, err := json.Marshal(existing)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	require.NoError(t, ResetMachineIDs(path))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	state := map[string]any{}
	require.NoError(t, json.Unmarshal(contents, &state))

	// Unrelated keys survive, the telemetry identifiers are replaced.
	require.Equal(t, "kept", state["some.other.setting"])
	require.NotEqual(t, "old", state[machineIDKey])
	require.Len(t, state[machineIDKey], 64)
	require.Len(t, state[macMachineIDKey], 64)
	require.NotEqual(t, "old", state[devDeviceIDKey])

	sqm, ok := state[sqmIDKey].(string)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(sqm, "{"))
	require.True(t, strings.HasSuffix(sqm, "}"))
	require.Equal(t, strings.ToUpper(sqm), sqm)
}

func TestResetMachineIDsCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "storage.json")

	require.NoError(t, ResetMachineIDs(path))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	state := map[string]any{}
	require.NoError(t, json.Unmarshal(contents, &state))
	require.Contains(t, state, machineIDKey)
	require.Contains(t, state, devDeviceIDKey)
}
