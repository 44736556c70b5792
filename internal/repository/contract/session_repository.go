package contract

import "bank-support-be/pkg/dialog"

// SessionRepository keeps live dialog sessions. Sessions are process-local.
type SessionRepository interface {
	Save(session *dialog.Session)
	Get(sessionID string) (*dialog.Session, bool)
	Delete(sessionID string)
	Count() int
}
