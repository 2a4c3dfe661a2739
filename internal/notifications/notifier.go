package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/ducminhle1904/trend-breakout-bot/internal/position"
	"github.com/ducminhle1904/trend-breakout-bot/internal/strategy"
)

// Level selects the prefix of an alert
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelSignal  Level = "signal"
)

// Notifier delivers alerts to an external channel
type Notifier interface {
	SendAlert(ctx context.Context, level Level, message string) error
}

// Nop drops every alert
type Nop struct{}

func (Nop) SendAlert(context.Context, Level, string) error { return nil }

// FormatDecision renders an actionable decision, or "" for decisions that changed nothing
func FormatDecision(symbol string, d strategy.Decision, fill *position.Fill) string {
	var b strings.Builder
	switch d.Action {
	case strategy.ActionEnter:
		fmt.Fprintf(&b, "ENTER %s %s\n", strings.ToUpper(d.Direction.String()), symbol)
		fmt.Fprintf(&b, "price %.4f size %.8f\n", d.Price, d.Size)
		fmt.Fprintf(&b, "stop %.4f", d.StopLoss)
		if d.SecondaryStop != 0 {
			fmt.Fprintf(&b, " / %.4f", d.SecondaryStop)
		}
	case strategy.ActionExit:
		fmt.Fprintf(&b, "EXIT %s %s (%s)\n", strings.ToUpper(d.Direction.String()), symbol, d.Reason)
		fmt.Fprintf(&b, "price %.4f fraction %.0f%%", d.Price, d.Fraction*100)
		if fill != nil {
			fmt.Fprintf(&b, "\npnl %.4f", fill.PnL)
			if fill.Final {
				b.WriteString(", position closed")
			}
		}
	default:
		return ""
	}
	fmt.Fprintf(&b, "\ncandle %s", d.Timestamp.UTC().Format("2006-01-02 15:04"))
	return b.String()
}
