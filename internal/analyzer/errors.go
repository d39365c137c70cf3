package analyzer

import "errors"

// ErrUnknownAnalyzer is returned when no analyzer is registered under a name.
var ErrUnknownAnalyzer = errors.New("unknown analyzer")
