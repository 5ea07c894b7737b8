package world

import "testing"

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{"N", North, false},
		{"south", South, false},
		{"e", East, false},
		{"WEST", West, false},
		{"up", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDirection(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDirection(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseDirection(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSite(t *testing.T) {
	tests := []struct {
		name      string
		at        Cell
		facing    Direction
		predicted bool
		want      string
	}{
		{"plain object records agent cell", Cell{2, 2}, North, false, "2_2"},
		{"predicted north", Cell{2, 2}, North, true, "2_1"},
		{"predicted south", Cell{2, 2}, South, true, "2_3"},
		{"predicted east", Cell{2, 2}, East, true, "3_2"},
		{"predicted west", Cell{2, 2}, West, true, "1_2"},
		{"predicted off the top edge", Cell{0, 0}, North, true, "0_0"},
		{"predicted off the right edge", Cell{4, 1}, East, true, "4_1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGrid(5, 5)
			g.Place(tt.at, tt.facing)
			if got := Site(g, tt.predicted); got != tt.want {
				t.Errorf("Site() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGrid_Defaults(t *testing.T) {
	g := NewGrid(3, 3)
	if g.Facing() != North || g.AgentCell() != (Cell{}) {
		t.Errorf("new grid agent = %v facing %v", g.AgentCell(), g.Facing())
	}
	if g.InBounds(Cell{3, 0}) || !g.InBounds(Cell{2, 2}) {
		t.Error("InBounds() mismatch")
	}
	if North.String() != "N" {
		t.Errorf("String() = %q", North.String())
	}
}
