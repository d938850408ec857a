package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainRow     = "datagen/row/v1"
	DomainProfile = "datagen/profile/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RowHash computes the content-addressed identity of a generated row.
// Two bags with equal values hash identically regardless of provenance.
func RowHash(bag DataBag) (string, error) {
	canonical, err := MarshalCanonical(bag)
	if err != nil {
		return "", fmt.Errorf("RowHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRow, canonical), nil
}

// ProfileHash computes the identity of a compiled profile from its canonical
// JSON rendering.
func ProfileHash(canonical []byte) string {
	return hashWithDomain(DomainProfile, canonical)
}

// MustRowHash is like RowHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustRowHash(bag DataBag) string {
	hash, err := RowHash(bag)
	if err != nil {
		panic(err)
	}
	return hash
}
