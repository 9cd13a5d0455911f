// Package registry holds the set of model identifiers the bot is willing to
// forward to the inference service.
package registry

import (
	"slices"
	"strings"
)

// DefaultModels are the models supported when the deployment does not override them.
var DefaultModels = []string{"deepseek-r1", "mistral", "llama3.2"}

// Set is an ordered, immutable set of model ids. Membership is case-sensitive.
type Set struct {
	ids []string
}

// Default returns the built-in model set.
func Default() *Set { return New(DefaultModels...) }

// New builds a Set from ids, dropping blanks and duplicates while keeping order.
func New(ids ...string) *Set {
	s := &Set{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || slices.Contains(s.ids, id) {
			continue
		}
		s.ids = append(s.ids, id)
	}
	return s
}

// Contains reports whether id is a supported model.
func (s *Set) Contains(id string) bool {
	if s == nil {
		return false
	}
	return slices.Contains(s.ids, id)
}

// IDs returns a copy of the model ids in configured order.
func (s *Set) IDs() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.ids)
}

// Len is the number of supported models.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// String joins the ids with ", ".
func (s *Set) String() string { return strings.Join(s.IDs(), ", ") }
