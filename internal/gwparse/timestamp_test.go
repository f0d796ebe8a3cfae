package gwparse

import "testing"

func TestEpochMillis(t *testing.T) {
	t.Parallel()

	ms, err := EpochMillis("2024-05-05 00:00:21.525", DefaultSourceUTCOffsetHours)
	if err != nil {
		t.Fatalf("EpochMillis: %v", err)
	}
	if ms != 1714838421525 {
		t.Errorf("millis = %d, want 1714838421525", ms)
	}
}

func TestEpochMillis_ZeroOffset(t *testing.T) {
	t.Parallel()

	ms, err := EpochMillis("2024-05-05 00:00:21.525", 0)
	if err != nil {
		t.Fatalf("EpochMillis: %v", err)
	}
	if ms != 1714867221525 {
		t.Errorf("millis = %d, want 1714867221525", ms)
	}
}

func TestEpochMillis_InvalidCalendar(t *testing.T) {
	t.Parallel()

	ms, err := EpochMillis("2024-13-99 25:61:61.5", DefaultSourceUTCOffsetHours)
	if err == nil {
		t.Fatal("expected conversion error for month 13")
	}
	if ms != 0 {
		t.Errorf("millis = %d, want sentinel 0", ms)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()
	p := NewLineParser()

	ts, rest, err := p.ParseTimestamp("2024-05-05 00:00:21.525")
	if err != nil {
		t.Fatalf("ParseTimestamp: %v", err)
	}
	if ts.ConvErr != nil {
		t.Fatalf("unexpected conversion error: %v", ts.ConvErr)
	}
	if ts.Millis != 1714838421525 {
		t.Errorf("millis = %d, want 1714838421525", ts.Millis)
	}
	if rest != "" {
		t.Errorf("rest = %q, want empty", rest)
	}
}

func TestParseTimestamp_UnpaddedGroups(t *testing.T) {
	t.Parallel()
	p := NewLineParser()

	ts, _, err := p.ParseTimestamp("2024-5-5 0:0:21.525")
	if err != nil {
		t.Fatalf("ParseTimestamp: %v", err)
	}
	if ts.ConvErr != nil {
		t.Fatalf("unexpected conversion error: %v", ts.ConvErr)
	}
	if ts.Millis != 1714838421525 {
		t.Errorf("millis = %d, want 1714838421525", ts.Millis)
	}
}

func TestParseTimestamp_ConversionFailureIsSoft(t *testing.T) {
	t.Parallel()
	p := NewLineParser()

	// Grammar matches but the calendar value is nonsense; the sentinel 0 is
	// kept while ConvErr makes the failure observable.
	ts, _, err := p.ParseTimestamp("2024-13-99 25:61:61.5")
	if err != nil {
		t.Fatalf("token should match grammar, got %v", err)
	}
	if ts.ConvErr == nil {
		t.Fatal("expected ConvErr for unconvertible timestamp")
	}
	if ts.Millis != 0 {
		t.Errorf("millis = %d, want sentinel 0", ts.Millis)
	}
}

func TestParseTimestamp_GrammarMismatch(t *testing.T) {
	t.Parallel()
	p := NewLineParser()

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no digits", "abc"},
		{"missing fraction", "2024-05-05 00:00:21 rest"},
		{"missing time", "2024-05-05 "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, _, err := p.ParseTimestamp(tt.input); err == nil {
				t.Errorf("ParseTimestamp(%q) should fail", tt.input)
			}
		})
	}
}

func TestParseTimestamp_ConfigurableOffset(t *testing.T) {
	t.Parallel()
	p := NewLineParser(Config{SourceUTCOffsetHours: 0})

	ts, _, err := p.ParseTimestamp("2024-05-05 00:00:21.525")
	if err != nil {
		t.Fatalf("ParseTimestamp: %v", err)
	}
	if ts.Millis != 1714867221525 {
		t.Errorf("millis = %d, want 1714867221525 (no offset)", ts.Millis)
	}
}
