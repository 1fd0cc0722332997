package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed fingerprints.
// Version suffix enables future algorithm migration.
const (
	DomainStatement = "shorthand/statement/v1"
	DomainParams    = "shorthand/params/v1"
	DomainRender    = "shorthand/render/v1"
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

// StatementFingerprint identifies a compiled statement by its template SQL,
// the text with named :param placeholders. Assigned values do not affect it,
// so it is stable across renders of the same shape.
func StatementFingerprint(templateSQL string) string {
	return hashWithDomain(DomainStatement, []byte(templateSQL))
}

// ParamsHash computes a hash over a set of parameter values. Together with
// StatementFingerprint it identifies one fully rendered statement.
func ParamsHash(params IRObject) (string, error) {
	canonical, err := MarshalCanonical(params)
	if err != nil {
		return "", fmt.Errorf("ParamsHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainParams, canonical), nil
}

// RenderID identifies one rendering: a statement shape plus the values bound
// into it.
func RenderID(fingerprint, paramsHash string) string {
	return hashWithDomain(DomainRender, []byte(fingerprint+"\x00"+paramsHash))
}
