package auth

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"family-media/internal/logging"

	"golang.org/x/crypto/bcrypt"
)

// APIKeyHeader carries an API key when no bearer token is sent.
const APIKeyHeader = "X-API-Key"

// Decision is the outcome of authorizing one request.
type Decision struct {
	Authorized bool
	Role       Role
	// Subject names the matched key, or "anonymous".
	Subject string
}

// Authorizer decides who is calling. Handlers compare Decision.Role
// against the role their operation requires.
type Authorizer interface {
	Authorize(r *http.Request) Decision
}

// Key is one configured API key: its bcrypt hash and the role it grants.
type Key struct {
	Name string
	Role Role
	Hash []byte
}

// ParseKeys parses the API_KEYS format: a comma-separated list of
// Role:bcrypthash or Role:name:bcrypthash entries.
func ParseKeys(spec string) ([]Key, error) {
	var keys []Key
	for i, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		var k Key
		switch len(parts) {
		case 2:
			k.Name = fmt.Sprintf("key%d", i+1)
			k.Hash = []byte(parts[1])
		case 3:
			k.Name = parts[1]
			k.Hash = []byte(parts[2])
		default:
			return nil, fmt.Errorf("API key entry %d: want Role:hash or Role:name:hash", i+1)
		}

		role, err := ParseRole(parts[0])
		if err != nil {
			return nil, fmt.Errorf("API key entry %d: %w", i+1, err)
		}
		if _, err := bcrypt.Cost(k.Hash); err != nil {
			return nil, fmt.Errorf("API key entry %d: not a bcrypt hash: %w", i+1, err)
		}
		k.Role = role
		keys = append(keys, k)
	}
	return keys, nil
}

// KeyAuthorizer authorizes requests by API key. Requests without a key get
// the anonymous role; requests with an unknown key are rejected.
type KeyAuthorizer struct {
	keys      []Key
	anonymous Role

	// index into keys by SHA-256 of verified presented keys
	mu    sync.RWMutex
	cache map[[sha256.Size]byte]int
}

// NewKeyAuthorizer creates an authorizer for keys.
func NewKeyAuthorizer(keys []Key, anonymous Role) *KeyAuthorizer {
	return &KeyAuthorizer{
		keys:      keys,
		anonymous: anonymous,
		cache:     make(map[[sha256.Size]byte]int),
	}
}

// Authorize implements Authorizer.
func (a *KeyAuthorizer) Authorize(r *http.Request) Decision {
	presented := presentedKey(r)
	if presented == "" {
		return Decision{Authorized: a.anonymous > RoleNone, Role: a.anonymous, Subject: "anonymous"}
	}

	idx, ok := a.lookup(presented)
	if !ok {
		logging.Debug("Rejected unknown API key from %s", r.RemoteAddr)
		return Decision{Role: RoleNone}
	}
	k := a.keys[idx]
	return Decision{Authorized: k.Role > RoleNone, Role: k.Role, Subject: k.Name}
}

func (a *KeyAuthorizer) lookup(presented string) (int, bool) {
	digest := sha256.Sum256([]byte(presented))

	a.mu.RLock()
	idx, ok := a.cache[digest]
	a.mu.RUnlock()
	if ok {
		return idx, true
	}

	for i, k := range a.keys {
		if bcrypt.CompareHashAndPassword(k.Hash, []byte(presented)) == nil {
			a.mu.Lock()
			a.cache[digest] = i
			a.mu.Unlock()
			return i, true
		}
	}
	return 0, false
}

func presentedKey(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get(APIKeyHeader))
}
