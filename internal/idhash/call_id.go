package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeCallID computes a deterministic call_id using SHA256.
// Formula: SHA256(mint|source|called_at_ms)
// Returns hex-encoded hash (64 characters).
func ComputeCallID(mint, source string, calledAtMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", mint, source, calledAtMs)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
