package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRelative(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		ago  time.Duration
		want string
	}{
		{"zero", 0, "0sec ago"},
		{"five seconds", 5 * time.Second, "5sec ago"},
		{"just below minute", 59 * time.Second, "59sec ago"},
		{"exact minute promotes", 60 * time.Second, "1min ago"},
		{"ninety seconds truncates", 90 * time.Second, "1min ago"},
		{"two minutes", 125 * time.Second, "2min ago"},
		{"two hours", 7300 * time.Second, "2hr ago"},
		{"just below day", 23*time.Hour + 59*time.Minute, "23hr ago"},
		{"days", 72 * time.Hour, "3d ago"},
		{"months", 45 * 24 * time.Hour, "1mo ago"},
		{"years", 400 * 24 * time.Hour, "1yr ago"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Relative(now.Add(-tc.ago), now))
		})
	}
}

func TestRelativeClampsFuture(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "0sec ago", Relative(now.Add(10*time.Second), now))
}

func TestRelativeISO(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "5sec ago", RelativeISO("2025-06-01T11:59:55Z", now))
	assert.Equal(t, "", RelativeISO("", now))
	assert.Equal(t, "", RelativeISO("not-a-timestamp", now))
}
