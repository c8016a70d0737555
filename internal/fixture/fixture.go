// Package fixture loads profiles and tenders from YAML files for local
// seeding and tests.
package fixture

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/alexanderksmi/doffin-hunter/internal/model"
)

// Set is the content of a fixture file.
type Set struct {
	Profiles []model.Profile `yaml:"profiles"`
	Tenders  []model.Tender  `yaml:"tenders"`
}

// Load reads and parses a fixture file.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fixture: read %s", path)
	}
	set, err := Parse(data)
	if err != nil {
		return nil, eris.Wrapf(err, "fixture: %s", path)
	}
	return set, nil
}

// Parse decodes fixture YAML. A top-level organization_id, when present, is
// applied to every profile and tender that does not set its own.
func Parse(data []byte) (*Set, error) {
	var raw struct {
		OrganizationID string `yaml:"organization_id"`
		Set            `yaml:",inline"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "fixture: parse yaml")
	}

	set := raw.Set
	for i := range set.Profiles {
		if set.Profiles[i].OrganizationID == "" {
			set.Profiles[i].OrganizationID = raw.OrganizationID
		}
	}
	for i := range set.Tenders {
		if set.Tenders[i].OrganizationID == "" {
			set.Tenders[i].OrganizationID = raw.OrganizationID
		}
	}
	if err := set.validate(); err != nil {
		return nil, err
	}
	return &set, nil
}

func (s *Set) validate() error {
	var problems []string
	seen := map[string]bool{}
	owners := map[string]int{}
	for i, p := range s.Profiles {
		switch {
		case p.ID == "":
			problems = append(problems, fmt.Sprintf("profiles[%d]: id is required", i))
			continue
		case p.OrganizationID == "":
			problems = append(problems, fmt.Sprintf("profile %s: organization_id is required", p.ID))
		case seen["p:"+p.ID]:
			problems = append(problems, fmt.Sprintf("profile %s: duplicate id", p.ID))
		}
		seen["p:"+p.ID] = true
		if p.IsOwnProfile {
			owners[p.OrganizationID]++
		}
	}
	for org, n := range owners {
		if n > 1 {
			problems = append(problems, fmt.Sprintf("organization %s: %d own profiles, expected at most one", org, n))
		}
	}
	for i, t := range s.Tenders {
		switch {
		case t.ID == "":
			problems = append(problems, fmt.Sprintf("tenders[%d]: id is required", i))
			continue
		case t.OrganizationID == "":
			problems = append(problems, fmt.Sprintf("tender %s: organization_id is required", t.ID))
		case seen["t:"+t.ID]:
			problems = append(problems, fmt.Sprintf("tender %s: duplicate id", t.ID))
		}
		seen["t:"+t.ID] = true
	}
	if len(problems) > 0 {
		return eris.Errorf("fixture: invalid: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Organizations returns the distinct organization ids in the set, in order
// of first appearance.
func (s *Set) Organizations() []string {
	var out []string
	seen := map[string]bool{}
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, p := range s.Profiles {
		add(p.OrganizationID)
	}
	for _, t := range s.Tenders {
		add(t.OrganizationID)
	}
	return out
}
