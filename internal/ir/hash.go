package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainRuleset = "eqsat/ruleset/v1"
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

// RulesetHash computes the content-addressed identity of an ordered rule set.
// Rule order is significant: the same rules in a different order produce a
// different hash, because declaration order changes apply order.
func RulesetHash(rules []RuleDescriptor) (string, error) {
	canonical, err := MarshalRules(rules)
	if err != nil {
		return "", fmt.Errorf("RulesetHash: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainRuleset, canonical), nil
}

// MarshalRules renders an ordered rule set as canonical JSON, the exact bytes
// RulesetHash hashes. Nil slices are written as empty arrays.
func MarshalRules(rules []RuleDescriptor) ([]byte, error) {
	list := make([]any, len(rules))
	for i, r := range rules {
		list[i] = r.canonicalMap()
	}
	return MarshalCanonical(list)
}

// MustRulesetHash is like RulesetHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustRulesetHash(rules []RuleDescriptor) string {
	h, err := RulesetHash(rules)
	if err != nil {
		panic(err)
	}
	return h
}
