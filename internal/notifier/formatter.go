package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/nighthawk909/ChartSense-sub000/internal/journal"
)

// FormatReset formats a hard reset event into a Telegram message.
func FormatReset(evt *journal.ResetEvent) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⚠️ <b>Stale data reset</b> | %s\n\n", time.Now().Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Symbol: %s (%s bars)\n", evt.Symbol, evt.Interval))
	b.WriteString(fmt.Sprintf("Data age at reset: %s\n", evt.DataAge.Round(time.Second)))
	if evt.Outcome == "recovered" {
		b.WriteString("Outcome: recovered ✅")
	} else {
		b.WriteString(fmt.Sprintf("Outcome: %s ❌ (will retry on the next stale tick)", evt.Outcome))
	}
	return b.String()
}

// FormatFetchFailure formats a failed forced fetch into a Telegram message.
func FormatFetchFailure(evt *journal.FetchEvent) string {
	var b strings.Builder
	b.WriteString("❌ <b>Forced fetch failed</b>\n\n")
	b.WriteString(fmt.Sprintf("Query: %s %s/%s\n", evt.Symbol, evt.Period, evt.Interval))
	b.WriteString(fmt.Sprintf("Error: %s", evt.Err))
	return b.String()
}

// FormatStreamError formats a terminal push channel failure.
func FormatStreamError(evt *journal.StatusEvent) string {
	return fmt.Sprintf("🔌 <b>Push channel down</b>\n\nStatus: %s\nCharts continue on polling only.", evt.Status)
}
