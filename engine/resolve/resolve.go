// Package resolve maps names from parsed commands to spell and entity IDs.
package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/spellcore/engine/catalog"
	"github.com/nathoo/spellcore/types"
)

// AmbiguityError indicates multiple entries matched a name.
type AmbiguityError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguityError) Error() string {
	names := strings.Join(e.Candidates, ", ")
	return fmt.Sprintf("which %s? (%s)", e.Name, names)
}

// NotFoundError indicates nothing matched a name.
type NotFoundError struct {
	Kind string // "spell" or "creature"
	Name string
}

func (e *NotFoundError) Error() string {
	if e.Kind == "spell" {
		return fmt.Sprintf("you don't know a spell called %q", e.Name)
	}
	return fmt.Sprintf("you don't see %q here", e.Name)
}

// Spell resolves a spell name to its template.
func Spell(cat *catalog.Catalog, name string) (*types.Spell, error) {
	if s, ok := cat.Spell(name); ok {
		return s, nil
	}
	candidates := make(map[string]string, len(cat.Spells))
	for id, s := range cat.Spells {
		candidates[id] = s.Name
	}
	id, err := pick("spell", name, match(candidates, name))
	if err != nil {
		return nil, err
	}
	return cat.Spells[id], nil
}

// Targets resolves each name to an entity id in the environment. Duplicates
// are kept: naming a creature twice targets it twice.
func Targets(env *types.Environment, names []string) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		id, err := entity(env, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func entity(env *types.Environment, name string) (string, error) {
	// 1. Exact entity ID match.
	if _, ok := env.Entities[name]; ok {
		return name, nil
	}

	// 2. Search by name.
	candidates := make(map[string]string, len(env.Entities))
	for id, e := range env.Entities {
		candidates[id] = e.Name
	}
	return pick("creature", name, match(candidates, name))
}

// match returns the sorted ids whose name matches the query. Whole-name
// matches win over single-word matches, so "fireball" never collides with
// "Delayed Blast Fireball".
func match(names map[string]string, query string) []string {
	query = strings.ToLower(query)
	var exact, partial []string
	for id, display := range names {
		switch {
		case exactName(id, display, query):
			exact = append(exact, id)
		case wordMatch(display, query):
			partial = append(partial, id)
		}
	}
	if len(exact) == 0 {
		exact = partial
	}
	sort.Strings(exact)
	return exact
}

func pick(kind, name string, matches []string) (string, error) {
	switch len(matches) {
	case 0:
		return "", &NotFoundError{Kind: kind, Name: name}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguityError{Name: name, Candidates: matches}
	}
}

// exactName checks the display name and id against a lowercased query.
func exactName(id, display, query string) bool {
	if display != "" && strings.ToLower(display) == query {
		return true
	}
	idLower := strings.ToLower(id)
	if idLower == query {
		return true
	}
	// Underscore normalization: "magic missile" matches "magic_missile".
	return strings.ReplaceAll(query, " ", "_") == idLower
}

// wordMatch is the partial match: "goblin" matches "Goblin Boss".
func wordMatch(display, query string) bool {
	for _, word := range strings.Fields(strings.ToLower(display)) {
		if word == query {
			return true
		}
	}
	return false
}
