package registry

import (
	"context"
	"errors"
	"strings"
)

// EligibleVoter is one roster entry resolved from the voter registry.
type EligibleVoter struct {
	ID           string
	Name         string
	Email        string
	DepartmentID *string
}

// Scope narrows roster resolution. DepartmentID is nil for
// institution-wide elections.
type Scope struct {
	ElectionID   string
	DepartmentID *string
}

// VoterRegistry resolves the eligible-voter roster for an election.
// Implementations may be unavailable; callers fall back to a static
// roster and flag degraded mode.
type VoterRegistry interface {
	ResolveEligibleVoters(ctx context.Context, scope Scope) ([]EligibleVoter, error)
}

// StaticRegistry serves a fixed roster. Used as the degraded-mode
// fallback and in tests.
type StaticRegistry struct {
	voters []EligibleVoter
}

// NewStaticRegistry builds a registry over a fixed roster.
func NewStaticRegistry(voters []EligibleVoter) *StaticRegistry {
	return &StaticRegistry{voters: voters}
}

// ParseRoster parses "id:name:email" entries separated by semicolons,
// the format of the fallback roster env variable.
func ParseRoster(raw string) []EligibleVoter {
	var voters []EligibleVoter
	for _, entry := range strings.Split(raw, ";") {
		fields := strings.SplitN(strings.TrimSpace(entry), ":", 3)
		if len(fields) != 3 || fields[0] == "" || fields[2] == "" {
			continue
		}
		voters = append(voters, EligibleVoter{ID: fields[0], Name: fields[1], Email: fields[2]})
	}
	return voters
}

// ResolveEligibleVoters filters the static roster by department scope.
func (r *StaticRegistry) ResolveEligibleVoters(_ context.Context, scope Scope) ([]EligibleVoter, error) {
	if len(r.voters) == 0 {
		return nil, errors.New("static roster is empty")
	}
	if scope.DepartmentID == nil {
		return append([]EligibleVoter{}, r.voters...), nil
	}
	var filtered []EligibleVoter
	for _, v := range r.voters {
		if v.DepartmentID == nil || *v.DepartmentID == *scope.DepartmentID {
			filtered = append(filtered, v)
		}
	}
	return filtered, nil
}
