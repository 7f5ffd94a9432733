// Package identity resolves a caller's application GUID against the
// producer's authorization manifest and records the assignment in the
// registration store.
package identity

import (
	"errors"

	"github.com/google/uuid"
)

// AuthStatus is the authorization state of a resolved identity.
type AuthStatus int

const (
	Unverified AuthStatus = iota
	Verified
	VerifiedTest
	TestPendingSetup
)

func (s AuthStatus) String() string {
	switch s {
	case Verified:
		return "verified"
	case VerifiedTest:
		return "verified-test"
	case TestPendingSetup:
		return "test-pending-setup"
	default:
		return "unverified"
	}
}

// Manifest status values.
const (
	statusAuthorized = 1
	statusTest       = 2
)

// DevMarker is the file whose presence under the data path enables test
// identities.
const DevMarker = "{E69A5B35-5E42-42A0-8721-9F7279269950}"

// Identity is a resolved consumer identity.
type Identity struct {
	GUID   uuid.UUID
	Index  int
	Title  string
	Status AuthStatus
}

var (
	ErrNotInstalled    = errors.New("identity: broadcast module not installed")
	ErrAccessDenied    = errors.New("identity: manifest unreadable or malformed")
	ErrUnknownIdentity = errors.New("identity: unknown application id")
	ErrSetupRequired   = errors.New("identity: test application id requires setup")
)
