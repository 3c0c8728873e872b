package strategies

import (
	"testing"
	"time"
)

func TestNYCCloseOpen_EntersAtMarketCloseAndClosesBeforeOpen(t *testing.T) {
	s := NewNYCCloseOpen()
	if err := s.Init(nil); err != nil {
		t.Fatalf("init: %v", err)
	}

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}

	// A Tuesday 16:00 ET bar.
	closeBar := barAt(100, time.Date(2026, 1, 6, 16, 0, 0, 0, loc))
	sig := s.OnBar("s1", closeBar)
	if sig == nil || sig.Kind() != "entry" {
		t.Fatal("expected an entry signal at 16:00 ET")
	}

	// The following 08:30 ET bar.
	openBar := barAt(101, time.Date(2026, 1, 7, 8, 30, 0, 0, loc))
	sig = s.OnBar("s1", openBar)
	if sig == nil || sig.Kind() != "close" {
		t.Fatal("expected a close signal at 08:30 ET")
	}
}

func TestNYCCloseOpen_IgnoresWeekends(t *testing.T) {
	s := NewNYCCloseOpen()
	if err := s.Init(nil); err != nil {
		t.Fatalf("init: %v", err)
	}
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}

	// A Saturday 16:00 ET bar should never trigger.
	saturdayBar := barAt(100, time.Date(2026, 1, 3, 16, 0, 0, 0, loc))
	if sig := s.OnBar("s1", saturdayBar); sig != nil {
		t.Fatalf("expected no signal on a weekend bar, got %s", sig.Kind())
	}
}
