package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
)

// ephemeralSecretBytes is the size of a generated fallback secret.
const ephemeralSecretBytes = 64

// LoadSecret resolves the fleet-shared secret.
//
// Resolution order:
//  1. Base64 content of the mounted secret file, when path is set.
//     Read errors and malformed content are configuration errors:
//     starting with a different secret than the rest of the fleet
//     would silently partition it.
//  2. The raw environment value, when set.
//  3. A freshly generated random secret. Peers will reject this node,
//     which is acceptable for a fleet of one and for local runs; the
//     returned warning is non-empty in this case and should be logged.
func LoadSecret(path, envValue string) (secret []byte, warning string, err error) {
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("auth: reading secret file: %w", err)
		}

		secret, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
		if err != nil {
			return nil, "", fmt.Errorf("auth: secret file %s is not valid base64: %w", path, err)
		}
		if len(secret) == 0 {
			return nil, "", fmt.Errorf("auth: secret file %s decodes to nothing", path)
		}
		return secret, "", nil
	}

	if envValue != "" {
		return []byte(envValue), "", nil
	}

	generated := make([]byte, ephemeralSecretBytes)
	if _, err := rand.Read(generated); err != nil {
		return nil, "", fmt.Errorf("auth: generating ephemeral secret: %w", err)
	}
	return generated, "no fleet secret configured, generated an ephemeral one; peers will reject this node", nil
}
