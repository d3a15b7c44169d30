// Package eval runs query suites against the course advisor workflows and
// checks the answers.
package eval

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Expect lists the checks of a case. Zero values are not checked.
type Expect struct {
	Contains      []string `yaml:"contains,omitempty"`
	NotContains   []string `yaml:"not_contains,omitempty"`
	MinQuality    float64  `yaml:"min_quality,omitempty"`
	Intent        string   `yaml:"intent,omitempty"`
	MinIterations int      `yaml:"min_iterations,omitempty"`
}

// Case is one query. Cases that share a Session run in order against the
// same working memory.
type Case struct {
	Name    string `yaml:"name"`
	Query   string `yaml:"query"`
	Student string `yaml:"student,omitempty"`
	Session string `yaml:"session,omitempty"`
	Expect  Expect `yaml:"expect"`
}

// Suite is a named list of cases. Stage is the workflow the suite was
// written for; callers may run it against another.
type Suite struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Stage       string `yaml:"stage,omitempty"`
	Cases       []Case `yaml:"cases"`
}

// ParseSuite decodes a YAML suite.
func ParseSuite(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse suite: %w", err)
	}
	if len(s.Cases) == 0 {
		return nil, errors.New("parse suite: no cases")
	}
	for i := range s.Cases {
		c := &s.Cases[i]
		if strings.TrimSpace(c.Query) == "" {
			return nil, fmt.Errorf("parse suite: case %d has no query", i+1)
		}
		if c.Name == "" {
			c.Name = fmt.Sprintf("case-%d", i+1)
		}
	}
	return &s, nil
}

// LoadSuite reads a suite file, or a predefined suite when path names one.
func LoadSuite(p string) (*Suite, error) {
	if s, err := Predefined(p); err == nil {
		return s, nil
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	return ParseSuite(data)
}

//go:embed suites/*.yaml
var builtin embed.FS

// PredefinedNames lists the built-in suites.
func PredefinedNames() []string {
	entries, _ := builtin.ReadDir("suites")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Predefined returns a built-in suite by name.
func Predefined(name string) (*Suite, error) {
	data, err := builtin.ReadFile(path.Join("suites", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("no predefined suite %q", name)
	}
	return ParseSuite(data)
}
