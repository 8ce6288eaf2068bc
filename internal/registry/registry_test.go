package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoster(t *testing.T) {
	voters := ParseRoster("U-1:Ama Mensah:ama@example.edu; U-2:Kofi Owusu:kofi@example.edu")
	require.Len(t, voters, 2)
	assert.Equal(t, "U-1", voters[0].ID)
	assert.Equal(t, "Ama Mensah", voters[0].Name)
	assert.Equal(t, "kofi@example.edu", voters[1].Email)
}

func TestParseRosterSkipsMalformedEntries(t *testing.T) {
	voters := ParseRoster("U-1:Ama:ama@example.edu;bogus;:noid:x@example.edu;U-2:NoEmail:")
	require.Len(t, voters, 1)
	assert.Equal(t, "U-1", voters[0].ID)
}

func TestParseRosterEmptyInput(t *testing.T) {
	assert.Empty(t, ParseRoster(""))
}

func TestStaticRegistryDepartmentScope(t *testing.T) {
	eng := "dept-eng"
	sci := "dept-sci"
	reg := NewStaticRegistry([]EligibleVoter{
		{ID: "U-1", Email: "a@example.edu", DepartmentID: &eng},
		{ID: "U-2", Email: "b@example.edu", DepartmentID: &sci},
		{ID: "U-3", Email: "c@example.edu"},
	})

	all, err := reg.ResolveEligibleVoters(context.Background(), Scope{ElectionID: "e1"})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	scoped, err := reg.ResolveEligibleVoters(context.Background(), Scope{ElectionID: "e1", DepartmentID: &eng})
	require.NoError(t, err)
	require.Len(t, scoped, 2, "department members plus unscoped voters")
	assert.Equal(t, "U-1", scoped[0].ID)
	assert.Equal(t, "U-3", scoped[1].ID)
}

func TestStaticRegistryEmptyRoster(t *testing.T) {
	_, err := NewStaticRegistry(nil).ResolveEligibleVoters(context.Background(), Scope{ElectionID: "e1"})
	assert.Error(t, err)
}
