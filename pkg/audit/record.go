// Package audit wraps routing decisions in a schema-versioned, hashable
// envelope. Callers log records verbatim; compliance tooling depends on the
// encoding byte-for-byte, so the record hash covers a canonical form.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zen-systems/routegate/pkg/policy"
)

const SchemaRecordV1 = "routegate.decision.v1"

// Record is one audited routing decision.
type Record struct {
	Schema     string          `json:"schema"`
	RecordHash string          `json:"record_hash"`
	Skill      policy.Skill    `json:"skill"`
	Decision   policy.Decision `json:"decision"`
	Timestamp  int64           `json:"timestamp"`
	Signature  *Signature      `json:"signature,omitempty"`
}

// Signature is a detached Ed25519 signature over the record's hash payload.
type Signature struct {
	Alg      string `json:"alg"`
	PubKeyID string `json:"pubkey_id"`
	Sig      string `json:"sig"`
}

// NewRecord builds a record for a decision and computes its hash.
func NewRecord(skill policy.Skill, decision policy.Decision, at time.Time) (*Record, error) {
	r := &Record{
		Schema:    SchemaRecordV1,
		Skill:     skill,
		Decision:  decision,
		Timestamp: at.Unix(),
	}
	if err := r.ComputeHash(); err != nil {
		return nil, err
	}
	return r, nil
}

// ComputeHash sets RecordHash from the canonical hash payload. The payload
// excludes the hash and signature fields themselves.
func (r *Record) ComputeHash() error {
	h, err := recordHashPayload(r)
	if err != nil {
		return err
	}
	r.RecordHash = h
	return nil
}

// Verify reports whether the stored hash matches the record content.
func (r *Record) Verify() error {
	h, err := recordHashPayload(r)
	if err != nil {
		return err
	}
	if h != r.RecordHash {
		return fmt.Errorf("record hash mismatch: stored %s, computed %s", r.RecordHash, h)
	}
	return nil
}

// Validate checks structural requirements before signing or persisting.
func (r *Record) Validate() error {
	if r.Schema != SchemaRecordV1 {
		return fmt.Errorf("unexpected schema %q", r.Schema)
	}
	if !r.Skill.Valid() {
		return fmt.Errorf("unknown skill %q", r.Skill)
	}
	if r.RecordHash == "" {
		return fmt.Errorf("record hash not computed")
	}
	if r.Timestamp == 0 {
		return fmt.Errorf("timestamp required")
	}
	return nil
}

// canonicalJSON returns a stable JSON representation. encoding/json emits
// struct fields in declaration order, which is stable for these types.
func canonicalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

func computeSHA256(v any) (string, error) {
	data, err := canonicalJSON(v)
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:]), nil
}

func recordHashPayload(r *Record) (string, error) {
	type recordContent struct {
		Schema    string          `json:"schema"`
		Skill     policy.Skill    `json:"skill"`
		Decision  policy.Decision `json:"decision"`
		Timestamp int64           `json:"timestamp"`
	}

	return computeSHA256(recordContent{
		Schema:    r.Schema,
		Skill:     r.Skill,
		Decision:  r.Decision,
		Timestamp: r.Timestamp,
	})
}
