package main

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"family-media/internal/auth"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

const (
	// minKeyLength is the shortest key accepted by "hash".
	minKeyLength = 16
	// generatedKeyBytes is the entropy of keys made by "generate".
	generatedKeyBytes = 32
)

// readSecret reads a key from the terminal without echo. Tests replace it.
var readSecret = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stdout)
		return 1
	}

	switch args[0] {
	case "generate":
		return generateCommand(args[1:], stdout, stderr)
	case "hash":
		return hashCommand(args[1:], stdout, stderr)
	case "verify":
		return verifyCommand(stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", sanitizeCommand(args[0])) //nolint:gosec // G705 - only [a-zA-Z0-9_-] pass sanitizeCommand
		printUsage(stdout)
		return 1
	}
}

// sanitizeCommand returns a safe representation of a command string for display.
// It uses an allowlist approach, replacing any character that is not alphanumeric,
// a hyphen, or an underscore with '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Family Media API Key Management")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: hashkey <command> [role] [name]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  generate <role> [name] - Create a random key and its API_KEYS entry")
	fmt.Fprintln(w, "  hash <role> [name]     - Hash a key typed at the prompt")
	fmt.Fprintln(w, "  verify                 - Check a typed key against API_KEYS")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Roles: Read, Full, Admin")
}

// roleAndName parses the "<role> [name]" arguments.
func roleAndName(args []string) (auth.Role, string, error) {
	if len(args) < 1 {
		return auth.RoleNone, "", fmt.Errorf("role is required")
	}
	role, err := auth.ParseRole(args[0])
	if err != nil {
		return auth.RoleNone, "", err
	}
	if role == auth.RoleNone {
		return auth.RoleNone, "", fmt.Errorf("a key with role None grants nothing")
	}

	var name string
	if len(args) > 1 {
		name = args[1]
		if strings.ContainsAny(name, ":,") || strings.TrimSpace(name) != name || name == "" {
			return auth.RoleNone, "", fmt.Errorf("name must not contain ':' or ',' or surrounding spaces")
		}
	}
	return role, name, nil
}

// buildEntry hashes key and formats one API_KEYS entry.
func buildEntry(role auth.Role, name string, key []byte, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(key, cost)
	if err != nil {
		return "", fmt.Errorf("hash key: %w", err)
	}
	if name == "" {
		return role.String() + ":" + string(hash), nil
	}
	return role.String() + ":" + name + ":" + string(hash), nil
}

func generateKey() (string, error) {
	buf := make([]byte, generatedKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func validateKey(key, confirm []byte) error {
	if !bytes.Equal(key, confirm) {
		return fmt.Errorf("keys do not match")
	}
	if len(key) < minKeyLength {
		return fmt.Errorf("key must be at least %d characters", minKeyLength)
	}
	return nil
}

func generateCommand(args []string, stdout, stderr io.Writer) int {
	role, name, err := roleAndName(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	key, err := generateKey()
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to generate key: %v\n", err)
		return 1
	}
	entry, err := buildEntry(role, name, []byte(key), bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Key:   %s\n", key)
	fmt.Fprintf(stdout, "Entry: %s\n", entry)
	fmt.Fprintln(stdout, "")
	fmt.Fprintln(stdout, "Give the key to the client and append the entry to API_KEYS.")
	return 0
}

func hashCommand(args []string, stdout, stderr io.Writer) int {
	role, name, err := roleAndName(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprint(stdout, "Key: ")
	key, err := readSecret()
	fmt.Fprintln(stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading key: %v\n", err)
		return 1
	}

	fmt.Fprint(stdout, "Confirm Key: ")
	confirm, err := readSecret()
	fmt.Fprintln(stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading key: %v\n", err)
		return 1
	}

	if err := validateKey(key, confirm); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	entry, err := buildEntry(role, name, key, bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Entry: %s\n", entry)
	return 0
}

// verifyKey reports what a request carrying key would be granted under the
// API_KEYS value.
func verifyKey(spec string, key []byte) (auth.Decision, error) {
	keys, err := auth.ParseKeys(spec)
	if err != nil {
		return auth.Decision{}, err
	}
	if len(keys) == 0 {
		return auth.Decision{}, fmt.Errorf("API_KEYS is empty")
	}

	req, err := http.NewRequest(http.MethodGet, "/api/media/", http.NoBody)
	if err != nil {
		return auth.Decision{}, err
	}
	req.Header.Set(auth.APIKeyHeader, string(key))
	return auth.NewKeyAuthorizer(keys, auth.RoleNone).Authorize(req), nil
}

func verifyCommand(stdout, stderr io.Writer) int {
	spec := os.Getenv("API_KEYS")

	fmt.Fprint(stdout, "Key: ")
	key, err := readSecret()
	fmt.Fprintln(stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading key: %v\n", err)
		return 1
	}

	decision, err := verifyKey(spec, key)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if !decision.Authorized {
		fmt.Fprintln(stdout, "Status: Key does not match any API_KEYS entry")
		return 1
	}
	fmt.Fprintf(stdout, "Status: Key matches %q with role %s\n", decision.Subject, decision.Role)
	return 0
}
