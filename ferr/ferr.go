// Package ferr defines the error taxonomy shared by the geometry, format
// and track packages: fatal structural errors, recoverable format
// mismatches, and observable (non-fatal) conditions that the engine logs
// but does not abort on.
package ferr

import "errors"

var (
	// ErrFormatInvalid marks a fatal structural violation detected during
	// open or table construction (bad geometry bounds, oversize sector
	// count, sector size code > 6, heap overflow). The open must be
	// aborted and the image rejected.
	ErrFormatInvalid = errors.New("format invalid")

	// ErrOpenMismatch marks a recoverable failure: this opener's format
	// does not match the given file. The caller should try the next
	// handler in the chain.
	ErrOpenMismatch = errors.New("image does not match this format")

	// ErrCRCMismatch marks a non-fatal, observable condition: a sector's
	// CRC did not verify. On read the bad data is still emitted as-is; on
	// write the payload is still persisted. Callers use this to decide
	// whether to log, not whether to abort.
	ErrCRCMismatch = errors.New("CRC mismatch")

	// ErrWriteUnresolved marks a DAM that arrived with no matching IDAM
	// and whose sector could not be inferred from rotational angle either.
	// The sector write is skipped.
	ErrWriteUnresolved = errors.New("write sector could not be resolved")

	// ErrConfigMiss marks a tag-config file with no section scoring above
	// the mismatch floor; the tag opener reports this as ErrOpenMismatch
	// to its caller.
	ErrConfigMiss = errors.New("no matching configuration section")
)

// Is reports whether err is, or wraps, target. Thin wrapper kept so
// call sites read `ferr.Is(err, ferr.ErrFormatInvalid)` instead of
// importing both "errors" and this package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
