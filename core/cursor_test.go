package core

import "testing"

func TestCursorStartsAtZero(t *testing.T) {
	var c Cursor
	if c.Position() != 0 {
		t.Errorf("position = %d, want 0", c.Position())
	}
	if c.Next() != 1 {
		t.Errorf("next = %d, want 1", c.Next())
	}
}

func TestCursorAdvanceIsMonotonic(t *testing.T) {
	var c Cursor
	steps := []struct {
		advance int64
		want    int64
	}{
		{5, 5},
		{3, 5},
		{5, 5},
		{9, 9},
		{0, 9},
		{-1, 9},
	}
	for _, s := range steps {
		c.Advance(s.advance)
		if c.Position() != s.want {
			t.Errorf("Advance(%d): position = %d, want %d", s.advance, c.Position(), s.want)
		}
		if c.Next() != s.want+1 {
			t.Errorf("Advance(%d): next = %d, want %d", s.advance, c.Next(), s.want+1)
		}
	}
}
