package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Archive backends and stores return
// these (optionally wrapped) so the vault and facade layers can translate them
// into domain errors.
//
// These represent factual states about stored resources, not validation
// failures:
// - ErrNotFound: entry or document does not exist
// - ErrPathNotFound: parent directory of a save/update target is missing
// - ErrConflict: an entry already occupies the target path
// - ErrExpired: document past its expiry date
// - ErrUnavailable: backend temporarily unreachable
//
// For rule violations on documents themselves, use the typed errors in
// internal/document and internal/policy.
var (
	ErrNotFound     = errors.New("not found")
	ErrPathNotFound = errors.New("path not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrUnavailable  = errors.New("unavailable")
)
