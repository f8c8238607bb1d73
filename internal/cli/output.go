package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
)

// PrintJSON writes v as indented JSON followed by a newline.
func PrintJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format response: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// Spinner is a progress indicator that can be disabled.
type Spinner struct {
	s *spinner.Spinner
}

// StartSpinner shows suffix next to a spinner on w. When quiet is set it
// returns a Spinner that does nothing.
func StartSpinner(w io.Writer, suffix string, quiet bool) *Spinner {
	if quiet {
		return &Spinner{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + suffix
	s.Start()
	return &Spinner{s: s}
}

// Succeed stops the spinner and prints msg in green.
func (s *Spinner) Succeed(msg string) {
	s.stop(text.FgGreen.Sprint(msg))
}

// Fail stops the spinner and prints msg in red.
func (s *Spinner) Fail(msg string) {
	s.stop(text.FgRed.Sprint(msg))
}

// Stop stops the spinner without a final message.
func (s *Spinner) Stop() {
	s.stop("")
}

func (s *Spinner) stop(final string) {
	if s.s == nil {
		return
	}
	if final != "" {
		s.s.FinalMSG = final + "\n"
	}
	s.s.Stop()
	s.s = nil
}

// FormatDuration renders d in coarse human units.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "expired"
	}
	if d < time.Minute {
		return "< 1 minute"
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// FormatExpiry formats a time as "in X" or "expired X ago".
func FormatExpiry(expiresAt, now time.Time) string {
	remaining := expiresAt.Sub(now)
	if remaining > 0 {
		return "in " + FormatDuration(remaining)
	}
	return text.FgYellow.Sprintf("expired %s ago", FormatDuration(-remaining))
}
