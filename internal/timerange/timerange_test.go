package timerange

import (
	"strings"
	"testing"
	"time"
)

func TestResolveRelative(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		offset time.Duration
	}{
		{name: "now", input: "now", offset: 0},
		{name: "five minutes", input: "now-5m", offset: 5 * time.Minute},
		{name: "two hours", input: "now-2h", offset: 2 * time.Hour},
		{name: "thirty seconds", input: "now-30s", offset: 30 * time.Second},
		{name: "one day", input: "now-1d", offset: 24 * time.Hour},
		{name: "one week", input: "now-1w", offset: 7 * 24 * time.Hour},
		{name: "uppercase NOW", input: "NOW", offset: 0},
	}

	const tolerance = 2 * time.Second
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Resolve(tt.input, "now")
			want := time.Now().Add(-tt.offset)
			if diff := want.Sub(got); diff < -tolerance || diff > tolerance {
				t.Errorf("Resolve(%q) = %v, want around %v", tt.input, got, want)
			}
		})
	}
}

func TestResolveAbsolute(t *testing.T) {
	from, _ := Resolve("2024-03-01T12:00:00Z", "now")
	want := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if !from.Equal(want) {
		t.Errorf("Resolve RFC3339 = %v, want %v", from, want)
	}

	day, _ := Resolve("2024-03-01", "now")
	if day.Year() != 2024 || day.Month() != 3 || day.Day() != 1 {
		t.Errorf("Resolve date-only = %v, want 2024-03-01", day)
	}
}

func TestResolveFallsBackToNow(t *testing.T) {
	const tolerance = 2 * time.Second
	for _, input := range []string{"", "garbage", "now-xyz", "now-5y"} {
		got, _ := Resolve(input, "now")
		if diff := time.Since(got); diff < -tolerance || diff > tolerance {
			t.Errorf("Resolve(%q) = %v, want current instant", input, got)
		}
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{input: "30s", expected: 30 * time.Second},
		{input: "5m", expected: 5 * time.Minute},
		{input: "2h", expected: 2 * time.Hour},
		{input: "1h30m", expected: 90 * time.Minute},
		{input: "7d", expected: 7 * 24 * time.Hour},
		{input: "2w", expected: 14 * 24 * time.Hour},
		{input: "5x", wantErr: true},
		{input: "", wantErr: true},
		{input: "m", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseDuration(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDuration(%q) expected error, got %v", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDuration(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestInterpolateSQL(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	sql := "SELECT * FROM metrics WHERE ts >= $__from AND ts <= $__to"
	got := InterpolateSQL(sql, from, to)

	if strings.Contains(got, "$__from") || strings.Contains(got, "$__to") {
		t.Fatalf("placeholders not substituted: %s", got)
	}
	if !strings.Contains(got, "'2024-03-01T00:00:00Z'") || !strings.Contains(got, "'2024-03-02T00:00:00Z'") {
		t.Errorf("unexpected interpolation: %s", got)
	}
}

func TestEpochSeconds(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	if got := EpochSeconds(ts); got != "1700000000" {
		t.Errorf("EpochSeconds = %q, want 1700000000", got)
	}
}
