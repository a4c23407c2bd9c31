// Package idhash computes deterministic identifiers for batches and jobs.
package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComputeBatchID computes a deterministic batch identifier.
// Formula: base58(SHA256(filename|strategy_id|method|seed|runs)[:16]).
// The same inputs always name the same batch, which is what makes
// re-running a batch with one seed reproducible end to end.
func ComputeBatchID(filename, strategyID, method string, seed int64, runs int) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%d", filename, strategyID, method, seed, runs)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:16])
}

// ComputeJobID computes a job identifier from the batch identity and the
// submission time, so resubmitting the same batch yields a distinct job.
func ComputeJobID(batchID string, submittedAtMs int64) string {
	data := fmt.Sprintf("%s|%d", batchID, submittedAtMs)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:16])
}
