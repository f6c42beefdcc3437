// Package notify prints contestctl's leaderboard and contest-state
// reports to the console.
package notify

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/contestengine/internal/domain"
)

// Console writes human-facing reports for contestctl. Unlike the rest of
// the engine, which logs through log/slog, operator-facing report output
// goes straight to an io.Writer.
type Console struct {
	out io.Writer
}

func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// PrintLeaderboard renders the ranked entries as a table.
func (c *Console) PrintLeaderboard(entries []domain.LeaderboardEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(c.out, "no leaderboard entries yet")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Rank", "User", "Total Wealth", "Return %", "Cash", "Long MV", "Short Liab", "Realized", "Unrealized")

	for _, e := range entries {
		table.Append(
			fmt.Sprintf("%d", e.Rank),
			e.UserName,
			fmt.Sprintf("$%.2f", e.TotalWealth),
			fmt.Sprintf("%.2f%%", e.ReturnPercent),
			fmt.Sprintf("$%.2f", e.Cash),
			fmt.Sprintf("$%.2f", e.LongMarketValue),
			fmt.Sprintf("$%.2f", e.ShortLiability),
			fmt.Sprintf("$%.2f", e.RealizedPnL),
			fmt.Sprintf("$%.2f", e.UnrealizedPnL),
		)
	}
	table.Render()
}

// PrintContestState prints a one-shot summary of the contest lifecycle
// record, the way an operator would want to confirm start/stop/pause took.
func (c *Console) PrintContestState(s domain.ContestState) {
	fmt.Fprintf(c.out, "\ncontest %s, status: %s\n", s.ID, s.Status)
	if s.Status == domain.StatusIdle {
		fmt.Fprintf(c.out, "  symbols discovered: %d\n", len(s.Symbols))
		return
	}
	fmt.Fprintf(c.out, "  started:            %s\n", s.StartWallclock.Format(time.RFC3339))
	fmt.Fprintf(c.out, "  duration:           %s\n", s.Duration)
	fmt.Fprintf(c.out, "  symbols:            %d\n", len(s.Symbols))
	fmt.Fprintf(c.out, "  compression ratio:  %.2f\n", s.CompressionRatio)
}
