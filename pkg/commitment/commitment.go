// Package commitment handles dossier fingerprints. The off-chain dossier
// service hashes a verification dossier and submits only the digest; the core
// stores and compares digests and never sees the underlying personal data.
package commitment

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"

	dErrors "clearledger/pkg/domain-errors"
)

// Size is the digest length in bytes.
const Size = 32

// Commitment is a SHA3-256 content fingerprint of an off-chain dossier.
type Commitment [Size]byte

// Zero is the invalid all-zero commitment.
var Zero Commitment

// Compute fingerprints raw dossier bytes. Exposed for the dossier-service
// side of the protocol and for tests; the core itself only ever receives
// ready-made digests.
func Compute(dossier []byte) Commitment {
	return Commitment(sha3.Sum256(dossier))
}

// Parse decodes a hex-encoded commitment from external input.
//
// Errors: returns CodeInvalidCommitment when the value is not 32 hex-encoded
// bytes or is the zero digest.
func Parse(s string) (Commitment, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != Size {
		return Zero, dErrors.New(dErrors.CodeInvalidCommitment, "commitment must be 32 hex-encoded bytes")
	}
	var c Commitment
	copy(c[:], raw)
	if c.IsZero() {
		return Zero, dErrors.New(dErrors.CodeInvalidCommitment, "commitment cannot be the zero digest")
	}
	return c, nil
}

// IsZero reports whether the commitment is the invalid zero digest.
func (c Commitment) IsZero() bool {
	return c == Zero
}

// String returns the hex encoding of the commitment.
func (c Commitment) String() string {
	return hex.EncodeToString(c[:])
}
