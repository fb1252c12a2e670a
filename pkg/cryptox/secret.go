package cryptox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MinSecretLength is the shortest signing or salt secret accepted, in bytes.
const MinSecretLength = 32

var ErrSecretTooShort = fmt.Errorf("secret must be at least %d bytes", MinSecretLength)

// ResolveSecret returns the inline value when set, otherwise the trimmed
// contents of file. Missing secrets are an error; nothing is generated.
func ResolveSecret(name, inline, file string) ([]byte, error) {
	value := strings.TrimSpace(inline)
	if value == "" && file != "" {
		b, err := os.ReadFile(filepath.Clean(file))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		value = strings.TrimSpace(string(b))
	}
	if value == "" {
		return nil, errors.New(name + " is not set")
	}
	if len(value) < MinSecretLength {
		return nil, fmt.Errorf("%s: %w", name, ErrSecretTooShort)
	}
	return []byte(value), nil
}
