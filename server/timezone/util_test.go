package timezone

import (
	"testing"
	"time"
)

func TestParseTimezone(t *testing.T) {
	tests := []struct {
		name    string
		tz      string
		wantErr bool
	}{
		{name: "UTC", tz: "UTC"},
		{name: "empty string defaults to UTC", tz: ""},
		{name: "Asia/Kolkata", tz: "Asia/Kolkata"},
		{name: "America/New_York", tz: "America/New_York"},
		{name: "invalid timezone", tz: "Invalid/Timezone", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := ParseTimezone(tt.tz)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseTimezone() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if loc == nil {
				t.Errorf("ParseTimezone() returned nil location")
			}
		})
	}
}

func TestIsValidTimezone(t *testing.T) {
	tests := []struct {
		name string
		tz   string
		want bool
	}{
		{"UTC", "UTC", true},
		{"empty", "", true},
		{"Pacific/Apia", "Pacific/Apia", true},
		{"Local is rejected", "Local", false},
		{"invalid", "Invalid/Timezone", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidTimezone(tt.tz); got != tt.want {
				t.Errorf("IsValidTimezone() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOffsetFormatting(t *testing.T) {
	tests := []struct {
		minutes   int
		wantISO   string
		wantLabel string
	}{
		{0, "+00:00", "UTC+0"},
		{600, "+10:00", "UTC+10"},
		{-300, "-05:00", "UTC-5"},
		{330, "+05:30", "UTC+5:30"},
		{-210, "-03:30", "UTC-3:30"},
		{345, "+05:45", "UTC+5:45"},
	}

	for _, tt := range tests {
		if got := FormatOffset(tt.minutes); got != tt.wantISO {
			t.Errorf("FormatOffset(%d) = %q, want %q", tt.minutes, got, tt.wantISO)
		}
		if got := OffsetLabel(tt.minutes); got != tt.wantLabel {
			t.Errorf("OffsetLabel(%d) = %q, want %q", tt.minutes, got, tt.wantLabel)
		}
	}
}

func TestWholeMinuteOffset(t *testing.T) {
	dublin := MustParseTimezone("Europe/Dublin")
	noon := time.Date(1900, time.June, 1, 12, 0, 0, 0, dublin)
	_, off := noon.Zone()
	if off != -(25*60 + 21) {
		t.Fatalf("Dublin 1900 offset = %ds, want -1521s", off)
	}
	if got := FormatOffsetSeconds(off); got != "-00:25:21" {
		t.Errorf("FormatOffsetSeconds(%d) = %q, want -00:25:21", off, got)
	}
	if got := OffsetMinutes(noon); got != -25 {
		t.Errorf("OffsetMinutes() = %d, want -25", got)
	}

	shown, ok := WholeMinuteOffset(noon)
	if !ok {
		t.Fatal("WholeMinuteOffset() reported a whole-minute offset for Dublin Mean Time")
	}
	if !shown.Equal(noon) {
		t.Errorf("WholeMinuteOffset() changed the instant: %v vs %v", shown, noon)
	}
	if got := shown.Format(time.RFC3339); got != "1900-06-01T12:00:21-00:25" {
		t.Errorf("shown = %q, want 1900-06-01T12:00:21-00:25", got)
	}

	modern := time.Date(2025, time.June, 1, 12, 0, 0, 0, dublin)
	if same, ok := WholeMinuteOffset(modern); ok || !same.Equal(modern) || same.Location() != dublin {
		t.Errorf("WholeMinuteOffset() changed a whole-minute offset: %v", same)
	}
	if got := FormatOffsetSeconds(3600); got != "+01:00" {
		t.Errorf("FormatOffsetSeconds(3600) = %q, want +01:00", got)
	}
}

func TestStartOfDay(t *testing.T) {
	ts := time.Date(2025, 3, 7, 20, 0, 0, 0, time.UTC)
	got := StartOfDay(ts, LocationAustraliaSydney)
	want := time.Date(2025, 3, 8, 0, 0, 0, 0, LocationAustraliaSydney)
	if !got.Equal(want) {
		t.Errorf("StartOfDay() = %v, want %v", got, want)
	}
}

func TestDaysIn(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2025, time.February, 28},
		{2024, time.February, 29},
		{1900, time.February, 28},
		{2000, time.February, 29},
		{2025, time.April, 30},
		{2025, time.December, 31},
	}
	for _, tt := range tests {
		if got := DaysIn(tt.year, tt.month); got != tt.want {
			t.Errorf("DaysIn(%d, %s) = %d, want %d", tt.year, tt.month, got, tt.want)
		}
		if tt.month == time.February && IsLeapYear(tt.year) != (tt.want == 29) {
			t.Errorf("IsLeapYear(%d) disagrees with DaysIn", tt.year)
		}
	}
}

func TestNormalizeAbbreviation(t *testing.T) {
	for in, want := range map[string]string{
		"est":    "EST",
		"E.S.T.": "EST",
		" cet ":  "CET",
	} {
		if got := NormalizeAbbreviation(in); got != want {
			t.Errorf("NormalizeAbbreviation(%q) = %q, want %q", in, got, want)
		}
	}
}
