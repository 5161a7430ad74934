package viz

import (
	"strings"
	"testing"
)

func TestCanvasSet(t *testing.T) {
	tests := []struct {
		x, y int
		want rune
	}{
		{0, 0, 0x2801},
		{1, 0, 0x2808},
		{0, 3, 0x2840},
		{1, 3, 0x2880},
	}
	for _, tt := range tests {
		c := NewCanvas(1, 1)
		c.Set(tt.x, tt.y)
		if got := []rune(c.String())[0]; got != tt.want {
			t.Errorf("Set(%d,%d) = %U, want %U", tt.x, tt.y, got, tt.want)
		}
		if !c.Lit(tt.x, tt.y) {
			t.Errorf("Lit(%d,%d) = false", tt.x, tt.y)
		}
	}
}

func TestCanvasIgnoresOutOfRange(t *testing.T) {
	c := NewCanvas(2, 2)
	c.Set(-1, 0)
	c.Set(0, -1)
	c.Set(4, 0)
	c.Set(0, 8)
	blank := strings.Repeat(string(rune(brailleBlank)), 2)
	if got := c.String(); got != blank+"\n"+blank {
		t.Errorf("canvas = %q", got)
	}
	if c.Lit(100, 100) {
		t.Error("out of range dot reported lit")
	}
}

func TestCanvasLine(t *testing.T) {
	c := NewCanvas(4, 2)
	c.Line(0, 0, 7, 7)
	for i := 0; i <= 7; i++ {
		if !c.Lit(i, i) {
			t.Errorf("diagonal dot %d not lit", i)
		}
	}
	c.Clear()
	c.Line(5, 2, 0, 2)
	for x := 0; x <= 5; x++ {
		if !c.Lit(x, 2) {
			t.Errorf("dot (%d,2) not lit", x)
		}
	}
	if c.Lit(6, 2) {
		t.Error("line overshoots")
	}
}

func TestCanvasResize(t *testing.T) {
	c := NewCanvas(3, 2)
	c.Set(0, 0)
	c.Resize(5, 4)
	if w, h := c.Pixels(); w != 10 || h != 16 {
		t.Errorf("pixels = %dx%d", w, h)
	}
	if c.Lit(0, 0) {
		t.Error("resize kept old dots")
	}
	c.Resize(0, -1)
	if c.Cols() != 1 || c.Rows() != 1 {
		t.Errorf("size = %dx%d, want 1x1", c.Cols(), c.Rows())
	}
}
