package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoundedAge(t *testing.T) {
	require.Equal(t, "30 s", RoundedAge(30*time.Second))
	require.Equal(t, "1 m", RoundedAge(90*time.Second))
	require.Equal(t, "3 h", RoundedAge(3*time.Hour))
	require.Equal(t, "2 d", RoundedAge(48*time.Hour))
	require.Equal(t, "1 wk", RoundedAge(8*24*time.Hour))
	require.Equal(t, "2 mo", RoundedAge(70*24*time.Hour))
	require.Equal(t, "1 yr", RoundedAge(400*24*time.Hour))
}

func TestAskConsent(t *testing.T) {
	var out strings.Builder
	require.True(t, AskConsent(strings.NewReader("yes\n"), &out, "sure? "))
	require.Contains(t, out.String(), "sure? ")

	require.True(t, AskConsent(strings.NewReader("YES\n"), &out, ""))
	require.False(t, AskConsent(strings.NewReader("y\n"), &out, ""))
	require.False(t, AskConsent(strings.NewReader("no\n"), &out, ""))
	require.False(t, AskConsent(strings.NewReader(""), &out, ""))
}
