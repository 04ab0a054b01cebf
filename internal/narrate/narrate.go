// Package narrate writes a short coach-style summary of a dashboard view,
// either through an LLM or from the computed insights alone.
package narrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/dustin/go-humanize"

	"github.com/TobiSchelling/fitdash/internal/dashboard"
	"github.com/TobiSchelling/fitdash/internal/insight"
)

// Narrative sources.
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

const narratePrompt = `You are a friendly fitness coach. Here are a user's stats for %s:

%s

Automatic observations:
%s

Write a two or three sentence summary of the month and up to three short, concrete tips.

Respond with ONLY this JSON:
{
    "summary": "Two or three sentences.",
    "tips": ["First tip", "Second tip"]
}`

// Narrative is a summary with optional tips. Summary is markdown.
type Narrative struct {
	Summary string   `json:"summary"`
	Tips    []string `json:"tips"`
	Source  string   `json:"source"`
}

// Markdown renders the narrative as a markdown block.
func (n Narrative) Markdown() string {
	var sb strings.Builder
	sb.WriteString(n.Summary)
	if len(n.Tips) > 0 {
		sb.WriteString("\n\n")
		for _, tip := range n.Tips {
			sb.WriteString("- " + tip + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Options tune the LLM calls.
type Options struct {
	Attempts  uint
	Delay     time.Duration
	MaxDelay  time.Duration
	MaxTokens int
}

// Narrator produces narratives. A nil provider always falls back.
type Narrator struct {
	provider Provider
	opts     Options
	logger   *slog.Logger
}

// New creates a Narrator.
func New(provider Provider, opts Options, logger *slog.Logger) *Narrator {
	if opts.Attempts == 0 {
		opts.Attempts = 3
	}
	if opts.Delay <= 0 {
		opts.Delay = time.Second
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 400
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Narrator{provider: provider, opts: opts, logger: logger}
}

// Narrate summarises v. It never fails: without a provider, or when the
// provider keeps erroring or replies with unusable JSON, the summary is
// built from the insights.
func (n *Narrator) Narrate(ctx context.Context, v *dashboard.View) Narrative {
	if n.provider == nil {
		return Fallback(v)
	}

	prompt := fmt.Sprintf(narratePrompt, v.MonthLabel, kpiLines(v), insightLines(v.Insights))
	var out Narrative
	err := retry.Do(
		func() error {
			text, err := n.provider.Generate(ctx, prompt, n.opts.MaxTokens)
			if err != nil {
				var se *StatusError
				if errors.As(err, &se) && !se.Retryable() {
					return retry.Unrecoverable(err)
				}
				return err
			}
			out = Narrative{}
			if err := ParseJSONResponse(text, &out); err != nil {
				return fmt.Errorf("parsing reply: %w", err)
			}
			if strings.TrimSpace(out.Summary) == "" {
				return errors.New("reply has no summary")
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(n.opts.Attempts),
		retry.Delay(n.opts.Delay),
		retry.MaxDelay(n.opts.MaxDelay),
		retry.DelayType(retry.FullJitterBackoffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			n.logger.Debug("retrying narrative", "attempt", attempt+1, "provider", n.provider.Name(), "error", err)
		}),
	)
	if err != nil {
		n.logger.Warn("narrative generation failed, using fallback", "provider", n.provider.Name(), "error", err)
		return Fallback(v)
	}

	out.Source = SourceLLM
	if len(out.Tips) > 3 {
		out.Tips = out.Tips[:3]
	}
	return out
}

// Fallback composes a narrative from the view alone.
func Fallback(v *dashboard.View) Narrative {
	var sb strings.Builder
	if v.Month == "" {
		sb.WriteString("No dated data to summarise yet.")
	} else {
		fmt.Fprintf(&sb, "In **%s** you logged %s over %d days",
			v.MonthLabel, pluralSteps(v.KPIs.TotalSteps), v.KPIs.Days)
		if !math.IsNaN(v.KPIs.AvgSleepHours) {
			fmt.Fprintf(&sb, " and slept %.1f hours a night on average", v.KPIs.AvgSleepHours)
		}
		sb.WriteString(".")
	}
	for _, in := range v.Insights {
		sb.WriteString(" ")
		sb.WriteString(in.Text)
	}
	return Narrative{Summary: sb.String(), Source: SourceFallback}
}

func pluralSteps(n float64) string {
	return humanize.Comma(int64(math.Round(n))) + " steps"
}

func kpiLines(v *dashboard.View) string {
	lines := []string{
		"- Total steps: " + humanize.Comma(int64(math.Round(v.KPIs.TotalSteps))),
		"- Total calories: " + humanize.Comma(int64(math.Round(v.KPIs.TotalCalories))),
		fmt.Sprintf("- Days recorded: %d", v.KPIs.Days),
	}
	if !math.IsNaN(v.KPIs.AvgSleepHours) {
		lines = append(lines, fmt.Sprintf("- Average sleep: %.1f hrs", v.KPIs.AvgSleepHours))
	}
	return strings.Join(lines, "\n")
}

func insightLines(ins []insight.Insight) string {
	if len(ins) == 0 {
		return "- none"
	}
	lines := make([]string, len(ins))
	for i, in := range ins {
		lines[i] = "- " + in.Text
	}
	return strings.Join(lines, "\n")
}
