package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRules_Valid(t *testing.T) {
	r := DefaultRules()
	require.NoError(t, r.Validate())
	assert.Len(t, r.Aliases, 8)
	assert.Len(t, r.Placeholders, 13)
}

func TestCanonicalize_Idempotent(t *testing.T) {
	r := DefaultRules()
	labels := []string{
		"0099 Art Gallery",
		"0136 David Lam Park",
		"0154 Arbutus & 10th",
		"0165 Main St",
		"2143 UBC Gym",
		"0001 10th & Cambie",
		"",
	}
	for _, label := range labels {
		once := r.Canonicalize(label)
		assert.Equal(t, once, r.Canonicalize(once), label)
	}
}

func TestCanonicalize_UnknownLabelUnchanged(t *testing.T) {
	assert.Equal(t, "0500 Somewhere", DefaultRules().Canonicalize("0500 Somewhere"))
}

func TestRulesValidate(t *testing.T) {
	tests := []struct {
		name  string
		rules Rules
	}{
		{
			name:  "empty prefix",
			rules: Rules{Aliases: []StationAlias{{Prefix: "", Canonical: "0001 A"}}},
		},
		{
			name:  "empty canonical",
			rules: Rules{Aliases: []StationAlias{{Prefix: "0001", Canonical: ""}}},
		},
		{
			name: "chained aliases",
			rules: Rules{Aliases: []StationAlias{
				{Prefix: "0001", Canonical: "0002 B"},
				{Prefix: "0002", Canonical: "0003 C"},
			}},
		},
		{
			name: "canonical shadowed by earlier alias",
			rules: Rules{Aliases: []StationAlias{
				{Prefix: "00", Canonical: "0001 A"},
				{Prefix: "0099", Canonical: "0099 Gallery"},
			}},
		},
		{
			name:  "blank placeholder",
			rules: Rules{Placeholders: []string{"  "}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.rules.Validate(), ErrInvalidRules)
		})
	}
}

func TestRulesMerge(t *testing.T) {
	base := DefaultRules()
	extra := Rules{
		Aliases: []StationAlias{
			{Prefix: "0201", Canonical: "0201 Shaw Tower - Coal Harbour"},
			{Prefix: "0300", Canonical: "0300 New Station"},
		},
		Placeholders: []string{"0999 Test Dock", "0991 HQ Workshop"},
	}

	merged := base.Merge(extra)

	require.NoError(t, merged.Validate())
	assert.Len(t, merged.Aliases, 9)
	assert.Len(t, merged.Placeholders, 14)
	assert.Equal(t, "0201 Shaw Tower - Coal Harbour", merged.Canonicalize("0201 Shaw"))
	assert.Equal(t, "0300 New Station", merged.Canonicalize("0300 old name"))
	assert.Equal(t, "0201 Shaw Tower", base.Canonicalize("0201 Shaw"), "base rules must not change")
	assert.Len(t, base.Placeholders, 13)
}
