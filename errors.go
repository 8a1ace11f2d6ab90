package transitiso

import (
	"github.com/pkg/errors"
)

// ErrBadDataset marks a malformed or missing dataset. Loaders return it
// wrapped with context; the engine falls back to a "not loaded" state for
// the affected component and keeps operating with degraded accuracy.
var ErrBadDataset = errors.New("bad dataset")

// ErrBadConfig marks invalid tunables (pixel size, radii and the like),
// rejected at the call boundary rather than silently clamped.
var ErrBadConfig = errors.New("bad configuration")

func errBadDatasetf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrBadDataset, format, args...)
}

func errBadConfigf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrBadConfig, format, args...)
}
