package truth

import "testing"

func TestMerge_Table(t *testing.T) {
	// want[observedReal][prior]
	want := [2][NumStates]State{
		{0, 2, 2, 4, 4, 4},
		{3, 1, 5, 3, 5, 5},
	}

	for observed := State(0); observed < NumStates; observed++ {
		for prior := State(0); prior < NumStates; prior++ {
			got := Merge(observed, prior)
			if !got.Valid() {
				t.Fatalf("Merge(%d, %d) = %d, outside 0..5", observed, prior, got)
			}
			row := 0
			if observed.IsReal() {
				row = 1
			}
			if got != want[row][prior] {
				t.Errorf("Merge(%v, %v) = %v, want %v", observed, prior, got, want[row][prior])
			}
		}
	}
}

func TestMerge_InvalidPrior(t *testing.T) {
	for _, prior := range []State{-1, 6, 42} {
		if got := Merge(Real, prior); got != Virtual {
			t.Errorf("Merge(Real, %d) = %v, want Virtual", prior, got)
		}
	}
}

func TestState_IsReal(t *testing.T) {
	tests := []struct {
		s    State
		want bool
	}{
		{Virtual, false},
		{Real, true},
		{RealThenVirtual, false},
		{VirtualThenReal, true},
		{MultilayerVirtualTrailing, false},
		{MultilayerRealTrailing, true},
		{State(9), false},
	}
	for _, tt := range tests {
		if got := tt.s.IsReal(); got != tt.want {
			t.Errorf("%v.IsReal() = %v, want %v", tt.s, got, tt.want)
		}
	}
}

func TestCoreState(t *testing.T) {
	tests := []struct {
		name     string
		ev       Evidence
		cores    int
		prior    State
		hasPrior bool
		want     State
	}{
		{"one core, action real, no prior", Evidence{ActionReal: true}, 1, Virtual, false, Real},
		{"one core, nothing real, no prior", Evidence{}, 1, Virtual, false, Virtual},
		{"two cores, only action real", Evidence{ActionReal: true}, 2, Virtual, false, Virtual},
		{"two cores, both real", Evidence{ActionReal: true, PatientReal: true}, 2, Virtual, false, Real},
		{"three cores, agent missing", Evidence{ActionReal: true, PatientReal: true}, 3, Virtual, false, Virtual},
		{"three cores, all real", Evidence{ActionReal: true, PatientReal: true, AgentReal: true}, 3, Virtual, false, Real},
		{"one core real merged into real prior", Evidence{ActionReal: true}, 1, Real, true, Real},
		{"one core real merged into virtual prior", Evidence{ActionReal: true}, 1, Virtual, true, VirtualThenReal},
		{"two cores virtual merged into real prior", Evidence{ActionReal: true}, 2, Real, true, RealThenVirtual},
		{"zero cores treated as one", Evidence{ActionReal: true}, 0, Virtual, false, Real},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CoreState(tt.ev, tt.cores, tt.prior, tt.hasPrior)
			if got != tt.want {
				t.Errorf("CoreState() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestState_String(t *testing.T) {
	if got := VirtualThenReal.String(); got != "virtual-then-real" {
		t.Errorf("String() = %q", got)
	}
	if got := State(7).String(); got != "invalid(7)" {
		t.Errorf("String() = %q", got)
	}
}
