package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainRecord  = "weft/record/v1"
	DomainBinding = "weft/binding/v1"
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

// RecordID computes a content-addressed ID for an action record.
// Stable given the same concept, operation, input, and seq.
func RecordID(concept, op string, input Object, seq int64) (string, error) {
	obj := Object{
		"concept": String(concept),
		"op":      String(op),
		"input":   input,
		"seq":     Int(seq),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("RecordID: marshal: %w", err)
	}

	return hashWithDomain(DomainRecord, canonical), nil
}

// BindingHash computes a hash over a frame's bindings, keyed by variable
// display name. Used by the engine to suppress a rule re-firing the same
// binding within one dispatch scope.
// Returns error if bindings cannot be canonically marshaled.
func BindingHash(bindings Object) (string, error) {
	canonical, err := MarshalCanonical(bindings)
	if err != nil {
		return "", fmt.Errorf("BindingHash: marshal: %w", err)
	}

	return hashWithDomain(DomainBinding, canonical), nil
}

// MustBindingHash is like BindingHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustBindingHash(bindings Object) string {
	hash, err := BindingHash(bindings)
	if err != nil {
		panic(err)
	}
	return hash
}
