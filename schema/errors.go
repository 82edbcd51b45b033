package schema

import "errors"

// Batch-level errors abort the computation and are returned to the caller.
var (
	ErrInvalidRange       = errors.New("invalid range")
	ErrTooManyBuckets     = errors.New("too many buckets")
	ErrUnknownGranularity = errors.New("unknown granularity")
	ErrNegativeWeight     = errors.New("negative weight")
	ErrInvalidWeight      = errors.New("weight is not a finite number")
	ErrInvalidPanel       = errors.New("invalid panel")
)

// Record-level errors are absorbed into a NormalizeReport and never abort a batch.
var (
	ErrMalformedRecord = errors.New("malformed record")
	ErrUnknownCategory = errors.New("unknown category")
)
