package vm

import (
	"errors"
	"testing"
)

func TestMemoryGetSetRoundTrip(t *testing.T) {
	m := NewMemory(16)
	if err := m.Set(4, []byte{1, 2, 3}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := m.Get(4, 3)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("Get = %v, want [1 2 3]", got)
	}
}

func TestMemoryOutOfBounds(t *testing.T) {
	m := NewMemory(8)
	tests := []struct {
		name   string
		fn     func() error
	}{
		{"get past end", func() error { _, err := m.Get(6, 4); return err }},
		{"get at size", func() error { _, err := m.Get(8, 1); return err }},
		{"set past end", func() error { return m.Set(7, []byte{1, 2}) }},
		{"fill past end", func() error { return m.Fill(9, 0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			if !errors.Is(err, ErrOutOfBounds) {
				t.Fatalf("got %v, want ErrOutOfBounds", err)
			}
		})
	}
}

func TestMemoryFill(t *testing.T) {
	m := NewMemory(4)
	if err := m.Fill(1, 0xAB); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	got, _ := m.Get(0, 4)
	want := []byte{0, 0xAB, 0xAB, 0xAB}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Get = %v, want %v", got, want)
		}
	}
}
