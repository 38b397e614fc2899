package binary

// SelectMode controls the fallback behaviour of Choose.
type SelectMode int

const (
	// SelectStrict returns no asset when nothing matches the keyword.
	SelectStrict SelectMode = iota
	// SelectLegacy falls back to the first asset of the release.
	SelectLegacy
)

// String returns the string representation of the mode
func (m SelectMode) String() string {
	switch m {
	case SelectStrict:
		return "strict"
	case SelectLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// ParseSelectMode parses "strict" or "legacy". The empty string means strict.
func ParseSelectMode(s string) (SelectMode, bool) {
	switch s {
	case "", "strict":
		return SelectStrict, true
	case "legacy":
		return SelectLegacy, true
	default:
		return SelectStrict, false
	}
}

// ProgressFunc receives download progress as a whole percentage (0-100).
type ProgressFunc func(percent int)

// VerificationMethod indicates how a download was verified
type VerificationMethod int

const (
	// VerificationNone means the release offered nothing to verify against
	VerificationNone VerificationMethod = iota
	// VerificationSHA256 means the checksum file matched
	VerificationSHA256
	// VerificationSignedSHA256 means the checksum file matched and its
	// OpenPGP signature was valid
	VerificationSignedSHA256
)

// String returns the string representation of the verification method
func (v VerificationMethod) String() string {
	switch v {
	case VerificationNone:
		return "none"
	case VerificationSHA256:
		return "sha256"
	case VerificationSignedSHA256:
		return "sha256+pgp"
	default:
		return "unknown"
	}
}
