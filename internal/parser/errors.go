package parser

import "errors"

var (
	ErrMissingHeader      = errors.New("parser: missing bridge-pool-assignment header")
	ErrInvalidTimestamp   = errors.New("parser: invalid header timestamp")
	ErrInvalidLine        = errors.New("parser: invalid line")
	ErrInvalidFingerprint = errors.New("parser: invalid fingerprint")
)
