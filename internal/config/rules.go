package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/couchcryptid/bikeshare-trends/internal/domain"
)

// LoadRules returns the default cleaning rules extended by the YAML file at
// path. An empty path yields the defaults. The file has the form:
//
//	aliases:
//	  - prefix: "0201"
//	    canonical: "0201 Shaw Tower"
//	placeholders:
//	  - "0999 Test Dock"
func LoadRules(path string) (domain.Rules, error) {
	rules := domain.DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Rules{}, fmt.Errorf("read CLEANING_RULES_FILE: %w", err)
	}
	var extra domain.Rules
	if err := yaml.UnmarshalStrict(data, &extra); err != nil {
		return domain.Rules{}, fmt.Errorf("parse CLEANING_RULES_FILE %s: %w", path, err)
	}

	rules = rules.Merge(extra)
	if err := rules.Validate(); err != nil {
		return domain.Rules{}, fmt.Errorf("CLEANING_RULES_FILE %s: %w", path, err)
	}
	return rules, nil
}
