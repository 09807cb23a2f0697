package latex

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dgallion1/texgest/internal/doctree"
	"github.com/goccy/go-yaml"
)

// MaxMarkerFileSize limits marker spec files.
var MaxMarkerFileSize = 1 << 20

// MarkerSpec maps sectioning command and structural environment names to
// nesting levels. Names are matched case-insensitively. A MarkerSpec is
// immutable once built.
type MarkerSpec struct {
	commands     map[string]int
	environments map[string]int
}

// DefaultCommandLevels are the standard LaTeX sectioning commands.
var DefaultCommandLevels = map[string]int{
	"part":          1,
	"chapter":       2,
	"section":       3,
	"subsection":    4,
	"subsubsection": 5,
	"paragraph":     6,
	"subparagraph":  7,
}

// DefaultEnvironmentLevels are front/back-matter environments. They share
// level 1 and are siblings at the top of the structure.
var DefaultEnvironmentLevels = map[string]int{
	"abstract":         1,
	"keywords":         1,
	"acknowledgments":  1,
	"acknowledgements": 1,
	"résumé":           1,
	"resume":           1,
	"preface":          1,
}

// NewMarkerSpec validates and copies the two level tables.
func NewMarkerSpec(commands, environments map[string]int) (MarkerSpec, error) {
	cmds, err := normalizeLevels(commands)
	if err != nil {
		return MarkerSpec{}, fmt.Errorf("commands: %w", err)
	}
	envs, err := normalizeLevels(environments)
	if err != nil {
		return MarkerSpec{}, fmt.Errorf("environments: %w", err)
	}
	return MarkerSpec{commands: cmds, environments: envs}, nil
}

// DefaultMarkerSpec returns the built-in tables.
func DefaultMarkerSpec() MarkerSpec {
	spec, err := NewMarkerSpec(DefaultCommandLevels, DefaultEnvironmentLevels)
	if err != nil {
		panic(err)
	}
	return spec
}

func normalizeLevels(in map[string]int) (map[string]int, error) {
	out := make(map[string]int, len(in))
	for name, level := range in {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return nil, ErrEmptyMarkerName
		}
		if level <= 0 {
			return nil, fmt.Errorf("%w: %s=%d", ErrInvalidLevel, name, level)
		}
		out[name] = level
	}
	return out, nil
}

// CommandLevel returns the level of a sectioning command, or
// doctree.LeafLevel if it is not declared.
func (m MarkerSpec) CommandLevel(name string) int {
	if l, ok := m.commands[strings.ToLower(name)]; ok {
		return l
	}
	return doctree.LeafLevel
}

// EnvironmentLevel returns the level of an environment, or doctree.LeafLevel.
func (m MarkerSpec) EnvironmentLevel(name string) int {
	if l, ok := m.environments[strings.ToLower(name)]; ok {
		return l
	}
	return doctree.LeafLevel
}

// Commands returns the declared command names, longest first.
func (m MarkerSpec) Commands() []string { return sortedNames(m.commands) }

// Environments returns the declared environment names, longest first.
func (m MarkerSpec) Environments() []string { return sortedNames(m.environments) }

// Empty reports whether no marker is declared at all.
func (m MarkerSpec) Empty() bool {
	return len(m.commands) == 0 && len(m.environments) == 0
}

func sortedNames(levels map[string]int) []string {
	names := make([]string, 0, len(levels))
	for n := range levels {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return names
}

type markerFile struct {
	Commands     map[string]int `yaml:"commands"`
	Environments map[string]int `yaml:"environments"`
}

// LoadMarkerSpec reads a YAML file with "commands" and "environments"
// tables. Unknown keys are rejected.
func LoadMarkerSpec(path string) (MarkerSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return MarkerSpec{}, fmt.Errorf("read marker spec: %w", err)
	}
	return ParseMarkerSpec(data)
}

// ParseMarkerSpec decodes the YAML form of a MarkerSpec.
func ParseMarkerSpec(data []byte) (MarkerSpec, error) {
	if len(data) > MaxMarkerFileSize {
		return MarkerSpec{}, fmt.Errorf("%w: %d bytes (max %d)", ErrMarkerFileTooLarge, len(data), MaxMarkerFileSize)
	}
	var f markerFile
	if err := yaml.UnmarshalWithOptions(data, &f, yaml.Strict()); err != nil {
		return MarkerSpec{}, fmt.Errorf("parse marker spec: %w", err)
	}
	return NewMarkerSpec(f.Commands, f.Environments)
}
