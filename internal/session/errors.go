package session

import (
	"errors"
	"fmt"
)

// ErrNoActiveSession is returned by Complete when the worker has nothing to
// complete. Never retried automatically; the worker must decide what to do.
var ErrNoActiveSession = errors.New("session: no active session")

// ActiveSessionError is returned by Start when the worker already has an
// InProgress session of any kind. The UI must offer "close and start new" as
// an explicit two-step action, never close implicitly.
type ActiveSessionError struct {
	Kind       string
	BuildingID string
	UnitID     string
}

func (e *ActiveSessionError) Error() string {
	loc := e.BuildingID
	if e.UnitID != "" {
		loc += "/" + e.UnitID
	}
	return fmt.Sprintf("session: a %s session is already active at %s", e.Kind, loc)
}
