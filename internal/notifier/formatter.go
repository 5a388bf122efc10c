package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"EquityScreener/internal/model"
)

// maxListed caps how many matches a single report lists.
const maxListed = 30

// FormatScanReport formats a finished scan into a Telegram message.
func FormatScanReport(s model.ScanSummary, matches []model.SignalMatch, resultPath string) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Daily screen</b> | %s\n\n", s.TargetDate.Format(model.DateLayout)))
	b.WriteString(fmt.Sprintf("Tickers: %d | Matched: %d\n", s.Tickers, s.Matched))
	b.WriteString(fmt.Sprintf("Unavailable: %d | Insufficient: %d | Stale: %d\n", s.Unavailable, s.Insufficient, s.Stale))
	if s.Failed > 0 {
		b.WriteString(fmt.Sprintf("Failed: %d\n", s.Failed))
	}
	b.WriteString(fmt.Sprintf("Duration: %s\n", s.Duration().Round(time.Second)))

	if len(matches) > 0 {
		b.WriteString("\n📈 <b>Matches:</b>\n")
		for i, m := range matches {
			if i == maxListed {
				b.WriteString(fmt.Sprintf("  … and %d more\n", len(matches)-maxListed))
				break
			}
			b.WriteString(fmt.Sprintf("  %s %.2f (%s)", m.Ticker, m.Close, m.Kind))
			if len(m.Notes) > 0 {
				b.WriteString(" ⚠️ " + html.EscapeString(strings.Join(m.Notes, ", ")))
			}
			b.WriteString("\n")
		}
	}

	if resultPath != "" {
		b.WriteString(fmt.Sprintf("\nResults: %s\n", html.EscapeString(resultPath)))
	}
	return b.String()
}

// FormatLastRun formats the most recent recorded run, or a placeholder when none exists.
func FormatLastRun(summary *model.ScanSummary, matches []model.SignalMatch, resultPath string) string {
	if summary == nil {
		return "No scan has been recorded yet."
	}
	return FormatScanReport(*summary, matches, resultPath)
}

// HelpText lists the supported bot commands.
const HelpText = "Available commands:\n• /scan run a screen now\n• /last show the latest results"
