package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	keyOnce sync.Once
	keyPool []*rsa.PrivateKey
)

// testKey returns one of a few shared RSA keys; generating 2048-bit keys per
// test is slow.
func testKey(t testing.TB, i int) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		for range 3 {
			k, err := rsa.GenerateKey(rand.Reader, 2048)
			if err != nil {
				panic(err)
			}
			keyPool = append(keyPool, k)
		}
	})
	return keyPool[i]
}

type testSigner struct {
	kid string
	key *rsa.PrivateKey
}

func newSigner(t testing.TB, kid string, i int) *testSigner {
	return &testSigner{kid: kid, key: testKey(t, i)}
}

func (s *testSigner) signingKey() *SigningKey {
	return &SigningKey{KeyID: s.kid, Key: &s.key.PublicKey, Algorithm: "RS256"}
}

func (s *testSigner) sign(t testing.TB, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = s.kid
	raw, err := tok.SignedString(s.key)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return raw
}

func (s *testSigner) jwk() map[string]any {
	pub := s.key.PublicKey
	return map[string]any{
		"kty": "RSA",
		"kid": s.kid,
		"use": "sig",
		"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// jwksServer serves the signers' public keys and counts requests.
func jwksServer(t testing.TB, signers ...*testSigner) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	keys := make([]map[string]any, 0, len(signers))
	for _, s := range signers {
		keys = append(keys, s.jwk())
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": keys})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

const (
	testIssuer   = "https://login.microsoftonline.com/tenant-1/v2.0"
	testAudience = "api://server-app"
)

var testNow = time.Unix(1_700_000_000, 0)

func fixedNow() time.Time { return testNow }

// baseClaims is a claim set that passes every check of testValidator.
func baseClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub": "user-1",
		"iss": testIssuer,
		"aud": testAudience,
		"iat": testNow.Add(-time.Minute).Unix(),
		"exp": testNow.Add(time.Hour).Unix(),
	}
}

func testValidator(resolver KeyResolver) *JWTValidator {
	return NewJWTValidator(ValidatorConfig{
		Issuer:    testIssuer,
		Audiences: []string{testAudience},
		Now:       fixedNow,
	}, resolver)
}

func wantCode(t testing.TB, err error, code Code) *Error {
	t.Helper()
	if err == nil {
		t.Fatalf("error = nil, want code %s", code)
	}
	ae, ok := err.(*Error)
	if !ok {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if ae.Code != code {
		t.Fatalf("Code = %s, want %s (reason: %v)", ae.Code, code, ae.Reason)
	}
	return ae
}
