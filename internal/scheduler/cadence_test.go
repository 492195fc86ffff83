package scheduler

import (
	"testing"
	"time"
)

func mustDailyAt(t *testing.T, at string) Cadence {
	t.Helper()
	c, err := DailyAt(at)
	if err != nil {
		t.Fatalf("DailyAt(%q): %v", at, err)
	}
	return c
}

func TestDailyNext(t *testing.T) {
	t.Parallel()

	c := mustDailyAt(t, "03:00")

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "after today's slot rolls to tomorrow",
			now:  time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC),
			want: time.Date(2024, 1, 16, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "before today's slot stays today",
			now:  time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC),
			want: time.Date(2024, 1, 15, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly at the slot rolls to tomorrow",
			now:  time.Date(2024, 1, 15, 3, 0, 0, 0, time.UTC),
			want: time.Date(2024, 1, 16, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "month boundary",
			now:  time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC),
			want: time.Date(2024, 2, 1, 3, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Next(tt.now)
			if !got.Equal(tt.want) {
				t.Errorf("Next(%v) = %v, want %v", tt.now, got, tt.want)
			}
			if !got.After(tt.now) {
				t.Errorf("Next(%v) = %v, not strictly after now", tt.now, got)
			}
		})
	}
}

func TestWeeklyNext(t *testing.T) {
	t.Parallel()

	c, err := WeeklyAt("sunday", "02:00")
	if err != nil {
		t.Fatalf("WeeklyAt: %v", err)
	}

	// Wednesday.
	now := time.Date(2024, 1, 17, 10, 0, 0, 0, time.UTC)
	got := c.Next(now)
	want := time.Date(2024, 1, 21, 2, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Next(%v) = %v, want %v", now, got, want)
	}
	if got.Weekday() != time.Sunday {
		t.Fatalf("Next landed on %v, want Sunday", got.Weekday())
	}

	// Sunday after the slot: must be next Sunday, not today.
	now = time.Date(2024, 1, 21, 5, 0, 0, 0, time.UTC)
	got = c.Next(now)
	want = time.Date(2024, 1, 28, 2, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Next(%v) = %v, want %v", now, got, want)
	}

	// Sunday before the slot: today still counts.
	now = time.Date(2024, 1, 21, 1, 0, 0, 0, time.UTC)
	got = c.Next(now)
	want = time.Date(2024, 1, 21, 2, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Next(%v) = %v, want %v", now, got, want)
	}
}

func TestMonthlyNext(t *testing.T) {
	t.Parallel()

	c, err := MonthlyAt("01:00")
	if err != nil {
		t.Fatalf("MonthlyAt: %v", err)
	}

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "mid-month rolls to the 1st of next month",
			now:  time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
			want: time.Date(2024, 4, 1, 1, 0, 0, 0, time.UTC),
		},
		{
			name: "on the 1st before the slot fires today",
			now:  time.Date(2024, 3, 1, 0, 30, 0, 0, time.UTC),
			want: time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC),
		},
		{
			name: "on the 1st after the slot rolls a full month",
			now:  time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC),
			want: time.Date(2024, 4, 1, 1, 0, 0, 0, time.UTC),
		},
		{
			name: "december rolls the year",
			now:  time.Date(2024, 12, 20, 12, 0, 0, 0, time.UTC),
			want: time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Next(tt.now)
			if !got.Equal(tt.want) {
				t.Errorf("Next(%v) = %v, want %v", tt.now, got, tt.want)
			}
			if got.Day() != 1 {
				t.Errorf("Next(%v) landed on day %d, want 1", tt.now, got.Day())
			}
		})
	}
}

func TestIntervalNext(t *testing.T) {
	t.Parallel()

	c, err := Interval(6 * time.Hour)
	if err != nil {
		t.Fatalf("Interval: %v", err)
	}
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	if got, want := c.Next(now), now.Add(6*time.Hour); !got.Equal(want) {
		t.Fatalf("Next = %v, want %v", got, want)
	}
}

func TestCronNext(t *testing.T) {
	t.Parallel()

	c, err := CronSpec("30 4 * * *")
	if err != nil {
		t.Fatalf("CronSpec: %v", err)
	}
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	got := c.Next(now)
	want := time.Date(2024, 1, 16, 4, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Next = %v, want %v", got, want)
	}
}

func TestCadenceValidation(t *testing.T) {
	t.Parallel()

	if _, err := Interval(0); err == nil {
		t.Error("Interval(0): want error")
	}
	if _, err := Interval(-time.Second); err == nil {
		t.Error("negative interval: want error")
	}
	if _, err := DailyAt("25:00"); err == nil {
		t.Error("hour 25: want error")
	}
	if _, err := DailyAt("03:75"); err == nil {
		t.Error("minute 75: want error")
	}
	if _, err := DailyAt("0300"); err == nil {
		t.Error("missing colon: want error")
	}
	if _, err := WeeklyAt("sundey", "02:00"); err == nil {
		t.Error("misspelled weekday: want error")
	}
	if _, err := CronSpec("not a cron spec"); err == nil {
		t.Error("garbage cron spec: want error")
	}
}

func TestParseWeekday(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    time.Weekday
		wantErr bool
	}{
		{in: "sunday", want: time.Sunday},
		{in: "Sunday", want: time.Sunday},
		{in: " MONDAY ", want: time.Monday},
		{in: "saturday", want: time.Saturday},
		{in: "sundey", wantErr: true},
		{in: "", wantErr: true},
		{in: "sun", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseWeekday(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseWeekday(%q): want error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseWeekday(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseWeekday(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCadenceString(t *testing.T) {
	t.Parallel()

	c := mustDailyAt(t, "03:05")
	if got, want := c.String(), "daily at 03:05"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	w, err := WeeklyAt("sunday", "02:00")
	if err != nil {
		t.Fatalf("WeeklyAt: %v", err)
	}
	if got, want := w.String(), "every Sunday at 02:00"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
