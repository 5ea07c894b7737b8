package constants

import "testing"

func TestScope_Valid(t *testing.T) {
	tests := []struct {
		name  string
		scope Scope
		want  bool
	}{
		{
			name:  "local is valid",
			scope: ScopeLocal,
			want:  true,
		},
		{
			name:  "global is valid",
			scope: ScopeGlobal,
			want:  true,
		},
		{
			name:  "both is valid",
			scope: ScopeBoth,
			want:  true,
		},
		{
			name:  "empty string is invalid",
			scope: Scope(""),
			want:  false,
		},
		{
			name:  "arbitrary string is invalid",
			scope: Scope("invalid"),
			want:  false,
		},
		{
			name:  "LOCAL uppercase is invalid",
			scope: Scope("LOCAL"),
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.scope.Valid(); got != tt.want {
				t.Errorf("Scope.Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScope_Includes(t *testing.T) {
	tests := []struct {
		scope, other Scope
		want         bool
	}{
		{ScopeLocal, ScopeLocal, true},
		{ScopeLocal, ScopeGlobal, false},
		{ScopeGlobal, ScopeLocal, false},
		{ScopeBoth, ScopeLocal, true},
		{ScopeBoth, ScopeGlobal, true},
	}
	for _, tt := range tests {
		if got := tt.scope.Includes(tt.other); got != tt.want {
			t.Errorf("%s.Includes(%s) = %v, want %v", tt.scope, tt.other, got, tt.want)
		}
	}
}
