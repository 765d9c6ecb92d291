package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
)

var ErrNotRSA = errors.New("signing key is not an RSA private key")

// SigningKey is one RSA key of the session-token key set.
type SigningKey struct {
	Kid     string
	Private *rsa.PrivateKey
}

func (k *SigningKey) Public() *rsa.PublicKey { return &k.Private.PublicKey }

// KeyManager signs session tokens with Active. Tokens carrying the kid of
// Active or Next verify, so Next can be published ahead of a rotation.
type KeyManager struct {
	Active *SigningKey
	Next   *SigningKey

	public map[string]*rsa.PublicKey
}

// NewKeyManager reads PEM keys (PKCS#1 or PKCS#8) from disk. Next is optional.
func NewKeyManager(activeKid, activePath, nextKid, nextPath string) (*KeyManager, error) {
	active, err := readKeyFile(activePath)
	if err != nil {
		return nil, fmt.Errorf("active key %q: %w", activeKid, err)
	}
	km := newKeyManager(activeKid, active)
	if nextKid == "" || nextPath == "" {
		return km, nil
	}
	next, err := readKeyFile(nextPath)
	if err != nil {
		return nil, fmt.Errorf("next key %q: %w", nextKid, err)
	}
	km.Next = km.add(nextKid, next)
	return km, nil
}

// NewEphemeralKeyManager generates an in-memory key. Tokens die with the process.
func NewEphemeralKeyManager(kid string) (*KeyManager, error) {
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	return newKeyManager(kid, k), nil
}

func newKeyManager(kid string, k *rsa.PrivateKey) *KeyManager {
	km := &KeyManager{public: map[string]*rsa.PublicKey{}}
	km.Active = km.add(kid, k)
	return km
}

func (km *KeyManager) add(kid string, k *rsa.PrivateKey) *SigningKey {
	sk := &SigningKey{Kid: kid, Private: k}
	km.public[kid] = sk.Public()
	return sk
}

func readKeyFile(path string) (*rsa.PrivateKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseKey(b)
}

func parseKey(b []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, errors.New("no PEM block")
	}
	if block.Type == "RSA PRIVATE KEY" {
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	}
	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("unsupported PEM block %q", block.Type)
	}
	k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rk, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrNotRSA
	}
	return rk, nil
}

// JWK is the public half of a SigningKey as served on /.well-known/jwks.json.
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWKS lists Active first, then Next when set.
func (km *KeyManager) JWKS() JWKS {
	set := JWKS{Keys: []JWK{}}
	for _, k := range []*SigningKey{km.Active, km.Next} {
		if k == nil {
			continue
		}
		pub := k.Public()
		set.Keys = append(set.Keys, JWK{
			Kty: "RSA",
			Kid: k.Kid,
			Use: "sig",
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		})
	}
	return set
}

func (km *KeyManager) PublicByKid(kid string) (*rsa.PublicKey, bool) {
	pk, ok := km.public[kid]
	return pk, ok
}
