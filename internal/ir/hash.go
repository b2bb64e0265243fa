package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainTranscript = "herald/transcript/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TranscriptID computes the content-addressed ID of a transcript within a
// cycle. The ID is stable across re-runs given the same inputs.
func TranscriptID(cycleToken string, t Transcript) (string, error) {
	target := t.Target
	if target == nil {
		target = Null{}
	}
	obj := map[string]any{
		"cycle_token":  cycleToken,
		"effect_index": t.EffectIndex,
		"rule_phid":    string(t.RulePHID),
		"action":       string(t.Action),
		"target":       target,
		"applied":      t.Applied,
		"reason":       t.Reason,
		"seq":          t.Seq,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("TranscriptID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTranscript, canonical), nil
}

// Seal stamps t with its content-addressed ID for cycleToken.
func (t *Transcript) Seal(cycleToken string) error {
	id, err := TranscriptID(cycleToken, *t)
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}
