// Package session tracks the opaque session token the analysis service assigns
// on the first submission of a traversal.
package session

import (
	"errors"
	"fmt"
)

// ErrTokenChanged is returned when the service answers with a different token
// than the one already adopted for this traversal.
var ErrTokenChanged = errors.New("session token changed mid-traversal")

// ErrNoToken is returned when no token is held and the service supplied none.
var ErrNoToken = errors.New("service returned no session token")

// Tracker holds at most one session token. The zero value is an absent session.
// Tracker is a value type: Adopt and Clear return the next tracker.
type Tracker struct {
	token string
}

// Token returns the held token and whether one is set.
func (t Tracker) Token() (string, bool) {
	return t.token, t.token != ""
}

// Ptr returns the token as a nullable wire value.
func (t Tracker) Ptr() *string {
	if t.token == "" {
		return nil
	}
	tok := t.token
	return &tok
}

// Adopt applies a token returned by the service. The first non-empty token is
// adopted; afterwards the service must echo the same token. An empty token is
// accepted only when one is already held.
func (t Tracker) Adopt(token string) (Tracker, error) {
	switch {
	case token == "" && t.token == "":
		return t, ErrNoToken
	case token == "":
		return t, nil
	case t.token == "":
		return Tracker{token: token}, nil
	case token != t.token:
		return t, fmt.Errorf("%w: have %q, got %q", ErrTokenChanged, t.token, token)
	}
	return t, nil
}

// Clear returns an absent session.
func (t Tracker) Clear() Tracker {
	return Tracker{}
}
