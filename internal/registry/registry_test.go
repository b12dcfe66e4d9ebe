package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/linc-gateway/internal/domain"
)

func TestDefaultTables_AreConsistent(t *testing.T) {
	r, err := New(DefaultTables())
	require.NoError(t, err)

	assert.Len(t, r.Agents(), 6)
	for _, agent := range r.Agents() {
		assert.True(t, r.IsValidTask(agent, DefaultTaskName), "agent %s must accept the fallback task", agent)
		for _, env := range []Environment{Development, Production} {
			url, err := r.ResolveEndpoint(agent, env)
			require.NoError(t, err)
			assert.NotEmpty(t, url)
		}
	}
}

func TestNew_RejectsMismatchedTables(t *testing.T) {
	tables := DefaultTables()
	delete(tables.Endpoints[Production], DataLinc)

	_, err := New(tables)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "production")
}

func TestNew_RejectsAgentMissingFromTaskTable(t *testing.T) {
	tables := Tables{
		Endpoints: map[Environment]map[string]string{
			Development: {"a": "http://a", "b": "http://b"},
		},
		Tasks: map[string][]string{"a": {"x"}},
	}
	_, err := New(tables)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	r, err := New(DefaultTables())
	require.NoError(t, err)

	assert.NoError(t, r.Validate("claimlinc", "submit"))
	assert.NoError(t, r.Validate("ClaimLinc", "submit"), "agent names are case-insensitive")

	err = r.Validate("UnknownAgent", "x")
	assert.ErrorIs(t, err, domain.ErrAgentNotFound)

	err = r.Validate("claimlinc", "delete_everything")
	assert.ErrorIs(t, err, domain.ErrTaskNotAllowed)
	assert.NotErrorIs(t, err, domain.ErrAgentNotFound)
}

func TestIsValidTask_AllowListIsPerAgent(t *testing.T) {
	r, err := New(DefaultTables())
	require.NoError(t, err)

	assert.True(t, r.IsValidTask(EligiLinc, "check_coverage"))
	assert.False(t, r.IsValidTask(ClaimLinc, "check_coverage"))
	assert.False(t, r.IsValidTask("ghost", DefaultTaskName))
}

func TestResolveEndpoint_PerEnvironment(t *testing.T) {
	r, err := New(DefaultTables())
	require.NoError(t, err)

	dev, err := r.ResolveEndpoint(ClaimLinc, Development)
	require.NoError(t, err)
	prod, err := r.ResolveEndpoint(ClaimLinc, Production)
	require.NoError(t, err)
	assert.NotEqual(t, dev, prod)

	_, err = r.ResolveEndpoint("ghost", Production)
	assert.ErrorIs(t, err, domain.ErrAgentNotFound)

	_, err = r.ResolveEndpoint(ClaimLinc, Environment("staging"))
	assert.Error(t, err)
}

func TestWithOverrides(t *testing.T) {
	base := DefaultTables()
	tables, err := base.WithOverrides(map[string]map[string]string{
		"production": {"ClaimLinc": "http://claims.internal"},
	})
	require.NoError(t, err)

	r, err := New(tables)
	require.NoError(t, err)
	url, err := r.ResolveEndpoint(ClaimLinc, Production)
	require.NoError(t, err)
	assert.Equal(t, "http://claims.internal", url)

	// исходные таблицы не меняются
	assert.NotEqual(t, "http://claims.internal", base.Endpoints[Production][ClaimLinc])

	_, err = base.WithOverrides(map[string]map[string]string{"production": {"ghost": "http://x"}})
	assert.Error(t, err)
	_, err = base.WithOverrides(map[string]map[string]string{"staging": {ClaimLinc: "http://x"}})
	assert.Error(t, err)
}
