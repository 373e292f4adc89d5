package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// FormatOpportunity renders an opportunity alert body. Channels apply their
// own bold/markup to the title; the body stays plain text.
func FormatOpportunity(opp domain.Opportunity) (title, message string) {
	title = "Arbitrage opportunity detected"

	var b strings.Builder
	fmt.Fprintf(&b, "Pair: %s\n", opp.Symbol)
	fmt.Fprintf(&b, "Detected: %s\n", opp.DetectedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Buy on %s at %s\n", strings.ToUpper(opp.BuyExchange), formatPrice(opp.BuyPrice))
	fmt.Fprintf(&b, "Sell on %s at %s\n", strings.ToUpper(opp.SellExchange), formatPrice(opp.SellPrice))
	fmt.Fprintf(&b, "Spread: %.2f%%\n", opp.SpreadPct)
	fmt.Fprintf(&b, "Profit per unit: %s", formatPrice(opp.ProfitAmount))
	return title, b.String()
}

// FormatStartup renders the service startup notification body.
func FormatStartup(pairs int, thresholdPct float64, interval time.Duration, now time.Time) (title, message string) {
	title = "Arbitrage scanner started"
	message = fmt.Sprintf(
		"Start time: %s\nMonitoring %d trading pairs every %s\nThreshold: %.2f%%",
		now.Format("2006-01-02 15:04:05"), pairs, interval, thresholdPct,
	)
	return title, message
}

// FormatShutdown renders the service shutdown notification body with final
// statistics.
func FormatShutdown(stats domain.ScanStats, now time.Time) (title, message string) {
	title = "Arbitrage scanner stopped"
	message = fmt.Sprintf(
		"Stop time: %s\nUptime: %s\nTotal scans: %d\nOpportunities found: %d\nNotifications sent: %d",
		now.Format("2006-01-02 15:04:05"),
		formatUptime(stats.Uptime(now)),
		stats.ScanCount,
		stats.OpportunitiesFound,
		stats.NotificationsSent,
	)
	return title, message
}

// formatPrice renders a price with thousands separators and two decimals,
// matching the alert format operators are used to.
func formatPrice(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	dot := strings.IndexByte(s, '.')
	intPart, frac := s[:dot], s[dot:]

	neg := false
	if strings.HasPrefix(intPart, "-") {
		neg = true
		intPart = intPart[1:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String() + frac
	}
	return b.String() + frac
}

// formatUptime renders a duration as "2h 3m 4s", dropping leading zero units.
func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
