package ml

import "errors"

// Configuration errors. Binaries treat these as fatal.
var (
	ErrDatasetNotFound = errors.New("dataset file not found")
	ErrMissingColumn   = errors.New("required column missing")
	ErrMissingLabel    = errors.New("row has no label")
	ErrInvalidLabel    = errors.New("label must be 0 or 1")
	ErrEmptyDataset    = errors.New("dataset has no rows")
	ErrBundleNotFound  = errors.New("bundle file not found")
	ErrInvalidBundle   = errors.New("invalid bundle")
)

var (
	ErrNotFitted       = errors.New("model not fitted")
	ErrFeatureCount    = errors.New("feature vector has wrong length")
	ErrFeatureMismatch = errors.New("feature list does not match the trained contract")
	ErrSingleClass     = errors.New("training labels contain a single class")
)
