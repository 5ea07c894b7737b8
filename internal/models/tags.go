package models

import "sort"

// Semantic tags a node may carry. A node's tags are fixed at insertion and
// replace the process-wide role registries of older designs.
const (
	TagAction             = "action"
	TagMentalAction       = "mental-action"
	TagScene              = "scene"
	TagFeeling            = "feeling"
	TagSequence           = "sequence"
	TagState              = "state"
	TagVariable           = "variable"
	TagGrammar            = "grammar"
	TagGrammarSlot        = "grammar-slot"
	TagIfElse             = "ifelse"
	TagLoop               = "loop"
	TagVariableScene      = "variable-scene"
	TagLanguageGeneration = "language-generation"
	TagNoDecay            = "no-decay"
)

// TagSet is an immutable-after-construction set of tags.
type TagSet map[string]struct{}

// NewTagSet builds a set from the given tags, ignoring empty strings.
func NewTagSet(tags ...string) TagSet {
	s := make(TagSet, len(tags))
	for _, t := range tags {
		if t != "" {
			s[t] = struct{}{}
		}
	}
	return s
}

// Has reports membership. A nil set has no members.
func (s TagSet) Has(tag string) bool {
	_, ok := s[tag]
	return ok
}

// Slice returns the tags sorted.
func (s TagSet) Slice() []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
