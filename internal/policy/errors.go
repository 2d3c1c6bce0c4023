package policy

import "errors"

// Sentinel validation errors (spec.md §4.6).
var (
	ErrCRFAndBitrateBothSet = errors.New("policy: crf and target_bitrate are mutually exclusive")
	ErrFlatPolicyRejected   = errors.New("policy: missing phases key (pre-phases policies are rejected)")
	ErrSchemaVersionTooOld  = errors.New("policy: schema_version below minimum supported version")
)
