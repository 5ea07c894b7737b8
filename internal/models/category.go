package models

// Link categories known to the propagation engine. Categories are data: a
// link may carry any category name, and names not listed here fall through to
// the engine's no-op dispatch record.
const (
	CategoryDesire           = "desire"
	CategoryPlan             = "plan"
	CategoryIntention        = "intention"
	CategorySubclass         = "subclass"
	CategoryMentalPlan       = "mental-plan"
	CategoryEmbodiedPlan     = "embodied-plan"
	CategorySequence         = "sequence"
	CategorySequenceHead     = "sequence-head"
	CategorySuccession       = "succession"
	CategoryContent          = "content"
	CategoryIsA              = "is-a"
	CategoryImplication      = "implication"
	CategoryGrammarSequence  = "grammar-sequence"
	CategoryContinuation     = "continuation"
	CategoryAssignment       = "assignment"
	CategoryWholeAssignment  = "whole-assignment"
	CategoryReturnAssignment = "return-assignment"
	CategorySatisfaction     = "satisfaction"
	CategoryElse             = "else"
	CategoryNowIsA           = "now-is-a"

	// Role categories connect a scene to the fillers of its semantic roles.
	CategoryAction  = "action"
	CategoryPatient = "patient"
	CategoryAgent   = "agent"
)

// IsSemanticLinking reports whether the category belongs to the semantic
// network chains that may run one hop past the depth bound.
func IsSemanticLinking(category string) bool {
	return category == CategoryIsA || category == CategoryImplication
}
