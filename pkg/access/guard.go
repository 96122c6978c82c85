// Package access keeps tenants from reaching each other's assistants and
// threads. The backend is shared by every GraphDB installation and user, so
// the only isolation is the metadata TTYG stores on each object.
package access

import (
	"errors"

	"github.com/harun/ttyg/pkg/assistant"
)

// DefaultInstallationID marks objects usable from any installation
const DefaultInstallationID = "__default__"

var (
	// ErrInstallationMismatch means the object belongs to another TTYG installation
	ErrInstallationMismatch = errors.New("installation mismatch")
	// ErrOwnerMismatch means the thread belongs to another GraphDB user
	ErrOwnerMismatch = errors.New("owner mismatch")
)

// DeniedError is returned by the Authorize methods. Message is what the
// user is shown; Unwrap exposes the reason for errors.Is.
type DeniedError struct {
	Reason  error
	Message string
}

func (e *DeniedError) Error() string { return e.Message }

func (e *DeniedError) Unwrap() error { return e.Reason }

// Guard holds the tenant identity taken from configuration
type Guard struct {
	InstallationID string
	Username       string
}

// NewGuard creates a guard for one tenant
func NewGuard(installationID, username string) *Guard {
	return &Guard{InstallationID: installationID, Username: username}
}

// InstallationMatches reports whether an object's installation id is usable
// by the configured installation. An absent id never matches.
func (g *Guard) InstallationMatches(installationID string, ok bool) bool {
	if !ok {
		return false
	}
	return installationID == DefaultInstallationID || installationID == g.InstallationID
}

// AuthorizeAssistant checks the installation id embedded in graphdb.ttyg
func (g *Guard) AuthorizeAssistant(a *assistant.Assistant) error {
	if !g.InstallationMatches(a.Metadata.InstallationID()) {
		return &DeniedError{
			Reason:  ErrInstallationMismatch,
			Message: "Assistant not associated with the configured TTYG installation ID.",
		}
	}
	return nil
}

// AuthorizeThread checks installation first, then ownership
func (g *Guard) AuthorizeThread(t *assistant.Thread) error {
	if !g.InstallationMatches(t.Metadata.InstallationID()) {
		return &DeniedError{
			Reason:  ErrInstallationMismatch,
			Message: "Thread not associated with the configured TTYG installation ID.",
		}
	}
	if owner, ok := t.Metadata.Username(); !ok || owner != g.Username {
		return &DeniedError{
			Reason:  ErrOwnerMismatch,
			Message: "Thread not associated with the configured GraphDB username.",
		}
	}
	return nil
}

// FilterAssistants keeps the assistants available to this installation
func (g *Guard) FilterAssistants(all []assistant.Assistant) []assistant.Assistant {
	var out []assistant.Assistant
	for i := range all {
		if g.AuthorizeAssistant(&all[i]) == nil {
			out = append(out, all[i])
		}
	}
	return out
}
