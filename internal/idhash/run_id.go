package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(call_id|plan_id|entry_timestamp_ms)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(callID, planID string, entryTimestampMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", callID, planID, entryTimestampMs)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
