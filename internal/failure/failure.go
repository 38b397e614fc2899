// Package failure defines the error taxonomy shared by the release client,
// fetcher, installer, ledger and orchestrator.
//
// Every component returns a *Error carrying a Kind so the orchestrator can turn
// any failure into a short machine-readable reason without string matching.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// KindUnknown is used for errors that carry no classification.
	KindUnknown Kind = iota
	// KindOffline means the reachability probe failed; no network work was attempted.
	KindOffline
	// KindNetwork means a release API request failed or returned a non-2xx status.
	KindNetwork
	// KindFetch means an asset download failed.
	KindFetch
	// KindAssetNotFound means no asset of the release matched the selection policy.
	KindAssetNotFound
	// KindExtraction means the archive could not be read as zip or tar.
	KindExtraction
	// KindInstall means none of the wanted files were found in the archive,
	// or they could not be copied into place.
	KindInstall
	// KindVerification means a checksum or signature check failed.
	KindVerification
	// KindPersistence means the version ledger could not be read or written.
	KindPersistence
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindOffline:
		return "offline"
	case KindNetwork:
		return "network"
	case KindFetch:
		return "fetch"
	case KindAssetNotFound:
		return "asset-not-found"
	case KindExtraction:
		return "extraction"
	case KindInstall:
		return "install"
	case KindVerification:
		return "verification"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Reason returns the machine-readable reason reported to UI collaborators.
func (k Kind) Reason() string {
	switch k {
	case KindOffline:
		return "no-internet"
	case KindNetwork:
		return "network-error"
	case KindFetch:
		return "fetch-error"
	case KindAssetNotFound:
		return "asset-not-found"
	case KindExtraction:
		return "extraction-error"
	case KindInstall:
		return "install-error"
	case KindVerification:
		return "verification-error"
	case KindPersistence:
		return "persistence-error"
	default:
		return "failed"
	}
}

// Sentinel errors usable with errors.Is. A *Error matches the sentinel of its kind.
var (
	ErrOffline       = errors.New("no internet connection")
	ErrNetwork       = errors.New("network error")
	ErrFetch         = errors.New("fetch error")
	ErrAssetNotFound = errors.New("asset not found")
	ErrExtraction    = errors.New("extraction error")
	ErrInstall       = errors.New("install error")
	ErrVerification  = errors.New("verification error")
	ErrPersistence   = errors.New("persistence error")
)

var sentinels = map[Kind]error{
	KindOffline:       ErrOffline,
	KindNetwork:       ErrNetwork,
	KindFetch:         ErrFetch,
	KindAssetNotFound: ErrAssetNotFound,
	KindExtraction:    ErrExtraction,
	KindInstall:       ErrInstall,
	KindVerification:  ErrVerification,
	KindPersistence:   ErrPersistence,
}

// Error is a classified failure.
type Error struct {
	Kind Kind
	Op   string // what was being attempted, e.g. "fetch latest release"
	Err  error  // underlying cause (may be nil)
}

// New creates a classified error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf creates a classified error with a formatted cause.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		if s, ok := sentinels[e.Kind]; ok {
			return s.Error()
		}
		return e.Kind.Reason()
	case e.Err == nil:
		return e.Op
	case e.Op == "":
		return e.Err.Error()
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// KindOf returns the kind of the outermost *Error in err's chain,
// or KindUnknown if there is none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Reason returns the reason string for err.
func Reason(err error) string {
	return KindOf(err).Reason()
}
