package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reclaim/pkg/domain"
	dErrors "reclaim/pkg/domain-errors"
)

func TestValidate_TransitionTable(t *testing.T) {
	allowed := []struct{ from, to domain.Status }{
		{domain.StatusRegistered, domain.StatusLost},
		{domain.StatusRegistered, domain.StatusStolen},
		{domain.StatusLost, domain.StatusFound},
		{domain.StatusLost, domain.StatusRegistered},
		{domain.StatusStolen, domain.StatusFound},
		{domain.StatusFound, domain.StatusReturned},
		{domain.StatusFound, domain.StatusSold},
		{domain.StatusFound, domain.StatusRegistered},
	}
	for _, tc := range allowed {
		assert.NoError(t, Validate(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to domain.Status }{
		{domain.StatusRegistered, domain.StatusFound},
		{domain.StatusRegistered, domain.StatusReturned},
		{domain.StatusLost, domain.StatusStolen},
		{domain.StatusLost, domain.StatusSold},
		{domain.StatusStolen, domain.StatusRegistered},
		{domain.StatusStolen, domain.StatusSold},
		{domain.StatusSold, domain.StatusLost},
		{domain.StatusSold, domain.StatusRegistered},
		{domain.StatusReturned, domain.StatusLost},
		{domain.StatusRegistered, domain.StatusRegistered},
	}
	for _, tc := range denied {
		err := Validate(tc.from, tc.to)
		require.Error(t, err, "%s -> %s should be denied", tc.from, tc.to)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	}
}

func TestValidate_UnknownStatus(t *testing.T) {
	err := Validate(domain.StatusRegistered, domain.Status("vaporized"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(domain.StatusReturned))
	assert.True(t, IsTerminal(domain.StatusSold))
	assert.False(t, IsTerminal(domain.StatusRegistered))
	assert.False(t, IsTerminal(domain.StatusLost))
	assert.False(t, IsTerminal(domain.StatusStolen))
	assert.False(t, IsTerminal(domain.StatusFound))
}

func TestTriggersMatching(t *testing.T) {
	assert.True(t, TriggersMatching(domain.StatusStolen))
	assert.True(t, TriggersMatching(domain.StatusLost))
	assert.False(t, TriggersMatching(domain.StatusFound))
	assert.False(t, TriggersMatching(domain.StatusRegistered))
}
