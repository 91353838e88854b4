package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_EveryRuleHasDiagnostic(t *testing.T) {
	for _, r := range Rules() {
		im, ok := Lookup(r.Kind)
		require.True(t, ok, "rule %s", r.ID)
		assert.NotEmpty(t, im.SuggestedFix)
		assert.NotEmpty(t, im.Schedule)
	}
}

func TestLookup_Unknown(t *testing.T) {
	_, ok := Lookup("nonsense")
	assert.False(t, ok)
}

func TestCommonImbalances_ReturnsCopy(t *testing.T) {
	table := CommonImbalances()
	table[0].Title = "changed"
	im, _ := Lookup(table[0].Kind)
	assert.NotEqual(t, "changed", im.Title)
}
