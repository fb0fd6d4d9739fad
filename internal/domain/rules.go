package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidRules is returned when a rule set would make alias rewriting
// non-idempotent or contains empty entries.
var ErrInvalidRules = errors.New("invalid cleaning rules")

// StationAlias rewrites every station label starting with Prefix to Canonical.
type StationAlias struct {
	Prefix    string `yaml:"prefix"`
	Canonical string `yaml:"canonical"`
}

// Rules holds the station clean-up tables applied by the Cleaner.
type Rules struct {
	Aliases      []StationAlias `yaml:"aliases"`
	Placeholders []string       `yaml:"placeholders"`
}

// DefaultRules returns the built-in rule tables. Several stations were
// relabelled over the years; the aliases collapse each id to its current
// label. 0154 and 0165 were decommissioned and their trips are folded into
// the neighbouring stations 0155 and 0150.
func DefaultRules() Rules {
	return Rules{
		Aliases: []StationAlias{
			{Prefix: "0099", Canonical: "0099 šxʷƛ̓ənəq Xwtl'e7énḵ Square - Vancouver Art Gallery North Plaza"},
			{Prefix: "0136", Canonical: "0136 David Lam Park - West"},
			{Prefix: "0201", Canonical: "0201 Shaw Tower"},
			{Prefix: "0237", Canonical: "0237 Glen & 6th"},
			{Prefix: "1002", Canonical: "1002 PNE - Hastings & Windermere"},
			{Prefix: "2143", Canonical: "2143 War Memorial Gym"},
			{Prefix: "0154", Canonical: "0155 Arbutus & McNicoll"},
			{Prefix: "0165", Canonical: "0150 Alexander & Main"},
		},
		// Workshop, yard and event pseudo-stations used for fleet operations.
		Placeholders: []string{
			"0980 Workshop - Balancer Bike Check In",
			"0981 Workshop - Service Complete",
			"0982 Workshop - Bike Testing",
			"0987 Quebec Yard - Rogers",
			"0991 HQ Workshop",
			"0992 Workshop - Return to Smoove",
			"0994 Workshop - Transmitter Testing",
			"0995 Workshop - Transmitter On Deck",
			"0997 Workshop - Demo Station",
			"0985 Quebec Yard - To Service",
			"1000 Temporary Station",
			"1000 Vancouver PRIDE Valet Station",
			"3000 Temporary Station - Celebration of Light",
		},
	}
}

// Merge returns r extended with extra. An extra alias with a prefix already
// present replaces the existing canonical name in place.
func (r Rules) Merge(extra Rules) Rules {
	out := Rules{
		Aliases:      append([]StationAlias(nil), r.Aliases...),
		Placeholders: append([]string(nil), r.Placeholders...),
	}
	for _, a := range extra.Aliases {
		replaced := false
		for i := range out.Aliases {
			if out.Aliases[i].Prefix == a.Prefix {
				out.Aliases[i].Canonical = a.Canonical
				replaced = true
				break
			}
		}
		if !replaced {
			out.Aliases = append(out.Aliases, a)
		}
	}
	for _, p := range extra.Placeholders {
		if !slices.Contains(out.Placeholders, p) {
			out.Placeholders = append(out.Placeholders, p)
		}
	}
	return out
}

// Validate rejects empty entries and alias chains. Every canonical name must
// be a fixed point of Canonicalize, which makes rewriting idempotent.
func (r Rules) Validate() error {
	for _, a := range r.Aliases {
		if a.Prefix == "" || a.Canonical == "" {
			return fmt.Errorf("%w: alias with empty prefix or canonical name", ErrInvalidRules)
		}
	}
	for _, a := range r.Aliases {
		if got := r.Canonicalize(a.Canonical); got != a.Canonical {
			return fmt.Errorf("%w: canonical %q of alias %s is rewritten to %q",
				ErrInvalidRules, a.Canonical, a.Prefix, got)
		}
	}
	for _, p := range r.Placeholders {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%w: empty placeholder station", ErrInvalidRules)
		}
	}
	return nil
}

// Canonicalize applies the first matching alias to station.
func (r Rules) Canonicalize(station string) string {
	for _, a := range r.Aliases {
		if strings.HasPrefix(station, a.Prefix) {
			return a.Canonical
		}
	}
	return station
}
