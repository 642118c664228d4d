package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Domain prefixes for content digests.
// Version suffix enables future algorithm migration.
const (
	DomainVariable = "simkernel/variable/v1"
	DomainModel    = "simkernel/model/v1"
	DomainCommand  = "simkernel/command/v1"
	DomainSpec     = "simkernel/spec/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest computes a domain-separated digest of v's canonical JSON.
// Two inputs with equal canonical encodings always share a digest.
func Digest(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// VariableDigest computes the digest of a Variable's content.
func VariableDigest(v *Variable) (string, error) {
	return Digest(DomainVariable, v)
}

// SpecDigest computes the digest of a model definition. Runs journalled
// with equal spec digests were started from the same definition.
func SpecDigest(spec *ModelSpec) (string, error) {
	data, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", DomainSpec, err)
	}
	return hashWithDomain(DomainSpec, data), nil
}

// MustDigest is like Digest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustDigest(domain string, v any) string {
	d, err := Digest(domain, v)
	if err != nil {
		panic(err)
	}
	return d
}
