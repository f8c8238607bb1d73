package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintJSON(&buf, map[string]any{"code": 0, "response": []string{"a"}}))
	assert.Equal(t, "{\n  \"code\": 0,\n  \"response\": [\n    \"a\"\n  ]\n}\n", buf.String())
}

func TestQuietSpinnerWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	s := StartSpinner(&buf, "Waiting", true)
	s.Succeed("done")
	s.Stop()
	assert.Empty(t, buf.String())
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	s := StartSpinner(&buf, "Waiting", false)
	s.Fail("failed")
	s.Stop()
	s.Succeed("done")
	assert.Nil(t, s.s)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{d: -time.Second, want: "expired"},
		{d: 30 * time.Second, want: "< 1 minute"},
		{d: time.Minute, want: "1 minute"},
		{d: 45 * time.Minute, want: "45 minutes"},
		{d: time.Hour, want: "1 hour"},
		{d: 5 * time.Hour, want: "5 hours"},
		{d: 24 * time.Hour, want: "1 day"},
		{d: 30 * 24 * time.Hour, want: "30 days"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d), tt.d.String())
	}
}

func TestFormatExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "in 2 hours", FormatExpiry(now.Add(2*time.Hour+time.Minute), now))
	assert.Contains(t, FormatExpiry(now.Add(-3*time.Hour), now), "expired 3 hours ago")
}
