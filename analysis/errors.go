package analysis

import "errors"

// ErrInvalidConfig indicates unusable segmenter or estimator parameters.
var ErrInvalidConfig = errors.New("invalid analysis config")
