package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainRecord separates record hashes from any other hash in the system.
const DomainRecord = "ruling/audit-record/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RecordID computes the content-addressed ID of a record. Duration and the
// existing ID are excluded, so replaying a run with the same inputs yields
// the same IDs.
func RecordID(r Record) (string, error) {
	obj := map[string]any{
		"run_id":  r.RunID,
		"seq":     r.Seq,
		"kind":    string(r.Kind),
		"unit":    r.Unit,
		"outcome": r.Outcome,
		"error":   r.Error,
		"code":    r.Code,
	}
	if len(r.Params) > 0 {
		obj["params"] = r.Params
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("RecordID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRecord, canonical), nil
}
