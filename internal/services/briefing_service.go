// Package services – BriefingService
//
// This file composes usage briefings: periodic or on-demand summaries of
// command activity over a trailing window. A briefing bundles the top
// commands, per-command failure totals, overall volume and success rate,
// and (for the longer cadences) a per-command trend recap. Composition
// only produces content; delivering the rendered text to a destination is
// the caller's concern.
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Cadence is the repeat-interval class of a standing briefing.
type Cadence string

// Supported briefing cadences.
const (
	CadenceDaily   Cadence = "daily"
	CadenceWeekly  Cadence = "weekly"
	CadenceMonthly Cadence = "monthly"
)

// ParseCadence validates a cadence string.
func ParseCadence(s string) (Cadence, error) {
	switch Cadence(strings.ToLower(strings.TrimSpace(s))) {
	case CadenceDaily:
		return CadenceDaily, nil
	case CadenceWeekly:
		return CadenceWeekly, nil
	case CadenceMonthly:
		return CadenceMonthly, nil
	default:
		return "", ErrInvalidCadence
	}
}

// Window returns the trailing aggregation window for the cadence, which is
// also its repeat interval: 24h, 7d, or 30d.
func (c Cadence) Window() time.Duration {
	switch c {
	case CadenceWeekly:
		return 7 * 24 * time.Hour
	case CadenceMonthly:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// TopN returns how many leading commands the cadence's briefing lists.
func (c Cadence) TopN() int {
	switch c {
	case CadenceWeekly:
		return 10
	case CadenceMonthly:
		return 15
	default:
		return 5
	}
}

// Title returns the briefing heading for the cadence.
func (c Cadence) Title() string {
	switch c {
	case CadenceWeekly:
		return "Weekly Command Usage Briefing"
	case CadenceMonthly:
		return "Monthly Command Usage Briefing"
	default:
		return "Daily Command Usage Briefing"
	}
}

// periodNoun is the phrase used in the trends section ("uses this week").
func (c Cadence) periodNoun() string {
	switch c {
	case CadenceWeekly:
		return "this week"
	case CadenceMonthly:
		return "this month"
	default:
		return "today"
	}
}

// TrendSummary is a per-command total across a briefing's window.
type TrendSummary struct {
	CommandName string `json:"command_name"`
	TotalUses   int64  `json:"total_uses"`
}

// TopCommandEntry pairs a command with the fields a briefing shows for it.
type TopCommandEntry struct {
	CommandName string  `json:"command_name"`
	TotalUses   int64   `json:"total_uses"`
	SuccessRate float64 `json:"success_rate"`
}

// Briefing is a composed usage summary, ready to render.
type Briefing struct {
	Title       string            `json:"title"`
	Window      time.Duration     `json:"-"`
	GeneratedAt time.Time         `json:"generated_at"`
	TopCommands []TopCommandEntry `json:"top_commands"`
	ErrorTotals []ErrorSummary    `json:"error_totals,omitempty"`
	TotalUses   int64             `json:"total_uses"`
	SuccessRate float64           `json:"success_rate"`
	Trends      []TrendSummary    `json:"trends,omitempty"`

	periodNoun string
	withTrends bool
}

// BriefingService composes briefings from windowed aggregates.
type BriefingService struct {
	Usage *UsageService
}

// NewBriefingService constructs a BriefingService over the given usage engine.
func NewBriefingService(usage *UsageService) *BriefingService {
	return &BriefingService{Usage: usage}
}

// Compose builds the briefing for a standing cadence: its window, top-N
// cap, and (for weekly/monthly) a trends section.
func (b *BriefingService) Compose(ctx context.Context, cadence Cadence) (*Briefing, error) {
	w := cadence.Window()
	return b.compose(ctx, w, cadence.TopN(), cadence.Title(), cadence.periodNoun(), cadence != CadenceDaily)
}

// ComposeWindow builds an ad-hoc briefing over an arbitrary caller-chosen
// window, with trends included.
func (b *BriefingService) ComposeWindow(ctx context.Context, window time.Duration, topN int, title string) (*Briefing, error) {
	if topN <= 0 {
		topN = 5
	}
	if title == "" {
		title = "Command Usage Briefing"
	}
	return b.compose(ctx, window, topN, title, "in this period", true)
}

func (b *BriefingService) compose(ctx context.Context, window time.Duration, topN int, title, noun string, withTrends bool) (*Briefing, error) {
	stats, err := b.Usage.CommandStats(ctx, &window)
	if err != nil {
		return nil, err
	}
	errStats, err := b.Usage.ErrorStats(ctx, &window)
	if err != nil {
		return nil, err
	}

	out := &Briefing{
		Title:       title,
		Window:      window,
		GeneratedAt: b.Usage.now(),
		TopCommands: []TopCommandEntry{},
		periodNoun:  noun,
		withTrends:  withTrends,
	}

	for i, st := range stats {
		out.TotalUses += st.TotalUses
		if i < topN {
			out.TopCommands = append(out.TopCommands, TopCommandEntry{
				CommandName: st.CommandName,
				TotalUses:   st.TotalUses,
				SuccessRate: st.SuccessRate,
			})
		}
	}
	var successful int64
	for _, st := range stats {
		successful += st.SuccessfulUses
	}
	if out.TotalUses > 0 {
		out.SuccessRate = float64(successful) / float64(out.TotalUses) * 100
	}

	// The error section is omitted entirely when nothing failed.
	if len(errStats) > 0 {
		out.ErrorTotals = TopErrorTotals(errStats)
	}

	if withTrends {
		trends, err := b.Usage.UsageTrends(ctx, window)
		if err != nil {
			return nil, err
		}
		out.Trends = foldTrends(trends)
	}
	return out, nil
}

// foldTrends collapses the hour-of-day histogram per command into window
// totals, ordered like command stats (uses desc, name asc).
func foldTrends(trends map[string]map[string]int64) []TrendSummary {
	out := make([]TrendSummary, 0, len(trends))
	for cmd, hours := range trends {
		var n int64
		for _, c := range hours {
			n += c
		}
		out = append(out, TrendSummary{CommandName: cmd, TotalUses: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalUses != out[j].TotalUses {
			return out[i].TotalUses > out[j].TotalUses
		}
		return out[i].CommandName < out[j].CommandName
	})
	return out
}

// english renders counts with thousands separators in briefing text.
var english = message.NewPrinter(language.English)

// Text renders the briefing in the chat-friendly layout used by the bots:
// bolded section headings, one line per command, rates to one decimal.
// A window with no activity produces an explicit no-data line rather than
// zero-filled statistics.
func (br *Briefing) Text() string {
	var sb strings.Builder
	sb.WriteString("**" + br.Title + "**\n\n")

	sb.WriteString("**Top Commands**\n")
	if len(br.TopCommands) == 0 {
		sb.WriteString("No commands were used in this period.\n")
	} else {
		for _, tc := range br.TopCommands {
			english.Fprintf(&sb, "**%s**: %d uses (%.1f%% success)\n", tc.CommandName, tc.TotalUses, tc.SuccessRate)
		}
	}

	if len(br.ErrorTotals) > 0 {
		sb.WriteString("\n**Command Errors**\n")
		for _, es := range br.ErrorTotals {
			english.Fprintf(&sb, "**%s**: %d %s\n", es.CommandName, es.Errors, plural(es.Errors, "error", "errors"))
		}
	}

	sb.WriteString("\n**Overall Statistics**\n")
	english.Fprintf(&sb, "Total Commands: %d\n", br.TotalUses)
	fmt.Fprintf(&sb, "Success Rate: %.1f%%\n", br.SuccessRate)

	if br.withTrends && len(br.Trends) > 0 {
		sb.WriteString("\n**Trends**\n")
		for _, tr := range br.Trends {
			english.Fprintf(&sb, "**%s**: %d uses %s\n", tr.CommandName, tr.TotalUses, br.periodNoun)
		}
	}
	return sb.String()
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
