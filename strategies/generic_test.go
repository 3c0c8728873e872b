package strategies

import (
	"testing"
)

// TestAllStrategies_GenericContract ensures every registered strategy
// initializes, validates, and survives a bar feed without panicking.
func TestAllStrategies_GenericContract(t *testing.T) {
	for _, name := range AvailableStrategies() {
		t.Run(name, func(t *testing.T) {
			s, err := NewStrategyByName(name)
			if err != nil {
				t.Fatalf("NewStrategyByName(%q): %v", name, err)
			}
			if err := s.Init(nil); err != nil {
				t.Fatalf("Init: %v", err)
			}
			if err := s.Validate(); err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if s.Name() != name {
				t.Fatalf("Name() = %q, want %q", s.Name(), name)
			}
			if len(s.GetParameters()) == 0 {
				t.Fatalf("expected at least one declared parameter")
			}

			closes := []float64{10, 11, 12, 11, 10, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32, 33, 34, 35, 36, 37, 38, 39, 40}
			feed(s, "generic", closes)
		})
	}
}

func TestNewStrategyByName_UnknownNameFails(t *testing.T) {
	if _, err := NewStrategyByName("does_not_exist"); err == nil {
		t.Fatal("expected error for unknown strategy name")
	}
}
