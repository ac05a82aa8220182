package utils

import (
	"fmt"
	"io"
	"strings"
)

// AskConsent prompts on out and reads a yes/no answer from in. Only an
// explicit "yes" consents.
func AskConsent(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)

	var consent string
	fmt.Fscanf(in, "%s", &consent)
	consent = strings.ToLower(consent)
	consent = strings.TrimSpace(consent)

	return consent == "yes"
}
