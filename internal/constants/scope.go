package constants

// Scope selects which .pamem directory an operation targets.
type Scope string

const (
	// ScopeLocal is the .pamem directory under the project root.
	ScopeLocal Scope = "local"

	// ScopeGlobal is ~/.pamem.
	ScopeGlobal Scope = "global"

	// ScopeBoth targets both directories.
	ScopeBoth Scope = "both"
)

// Valid returns true if the scope is a recognized value.
func (s Scope) Valid() bool {
	switch s {
	case ScopeLocal, ScopeGlobal, ScopeBoth:
		return true
	}
	return false
}

// String returns the string representation of the scope.
func (s Scope) String() string {
	return string(s)
}

// Includes reports whether s covers other. ScopeBoth covers everything.
func (s Scope) Includes(other Scope) bool {
	return s == other || s == ScopeBoth
}
