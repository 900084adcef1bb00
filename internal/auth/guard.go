package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
)

// HeaderName carries the fleet token on inter-node requests.
const HeaderName = "Internal-Auth"

// DefaultFreshness is how far a token's issue time may lie from the
// verifier's clock in either direction. Tokens are minted per dispatch,
// so the window only needs to absorb clock skew and network latency.
const DefaultFreshness = 2 * time.Second

var (
	// ErrInvalidToken marks tokens failing signature or shape checks.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrStaleToken marks well-signed tokens outside the freshness window.
	ErrStaleToken = errors.New("auth: token outside freshness window")
)

// claims is the signed payload of a fleet token.
type claims struct {
	IssuedAtMicros int64 `json:"iat_us"`
	Ordinal        int   `json:"ord"`
}

// Guard mints and verifies the tokens that authenticate replication
// traffic inside the fleet.
//
// Every member holds the same secret; a valid token proves the sender
// has it and signed recently. Tokens are HS256 compact JWS, so the
// signature check runs in constant time inside the HMAC comparison.
// This is the system's only authorization boundary: it keeps strangers
// off the replication port, nothing more.
type Guard struct {
	secret    []byte
	ordinal   int
	freshness time.Duration
	signer    jose.Signer
}

// NewGuard builds a guard around the fleet-shared secret.
// freshness <= 0 selects DefaultFreshness.
func NewGuard(secret []byte, ordinal int, freshness time.Duration) (*Guard, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: secret must not be empty")
	}
	if freshness <= 0 {
		freshness = DefaultFreshness
	}

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: secret}, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building signer: %w", err)
	}

	return &Guard{
		secret:    secret,
		ordinal:   ordinal,
		freshness: freshness,
		signer:    signer,
	}, nil
}

// Token mints a fresh token for one outbound dispatch.
func (g *Guard) Token() (string, error) {
	payload, err := json.Marshal(claims{
		IssuedAtMicros: time.Now().UnixMicro(),
		Ordinal:        g.ordinal,
	})
	if err != nil {
		return "", fmt.Errorf("auth: marshaling claims: %w", err)
	}

	sig, err := g.signer.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return sig.CompactSerialize()
}

// Verify checks a presented token and returns the sender's ordinal.
//
// The signature is checked before anything else; a token that fails it
// reveals nothing about why. Freshness is enforced in both directions
// so replayed tokens and badly skewed clocks are rejected alike.
func (g *Guard) Verify(token string) (int, error) {
	if token == "" {
		return 0, ErrInvalidToken
	}

	obj, err := jose.ParseSigned(token, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return 0, ErrInvalidToken
	}

	payload, err := obj.Verify(g.secret)
	if err != nil {
		return 0, ErrInvalidToken
	}

	var c claims
	if err := json.Unmarshal(payload, &c); err != nil {
		return 0, ErrInvalidToken
	}

	age := time.Since(time.UnixMicro(c.IssuedAtMicros))
	if age > g.freshness || age < -g.freshness {
		return 0, ErrStaleToken
	}

	return c.Ordinal, nil
}
