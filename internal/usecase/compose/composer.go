// Package compose turns ranked products and conversation history into the
// assistant's natural-language reply.
package compose

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain/candidate"
	"github.com/kailas-cloud/shopsearch/internal/domain/conversation"
	"github.com/kailas-cloud/shopsearch/internal/metrics"
)

// Prompt shaping.
const (
	promptHistoryTurns = 3
	promptProducts     = 5
	promptSnippetLen   = 100
)

// Fallback reasons reported by metrics.ComposeFallbackTotal.
const (
	reasonDisabled = "disabled"
	reasonError    = "error"
	reasonEmpty    = "empty"
)

// Summarizer writes a reply from a prompt. Implementations wrap their
// failures with domain.ErrSummarization.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Input is everything a reply is built from.
type Input struct {
	Query    string
	Products []candidate.ScoredProduct
	History  []conversation.Turn
	Jewelry  bool
}

// Composer builds replies. A nil summarizer is valid and always yields
// the template reply.
type Composer struct {
	summarizer Summarizer
	timeout    time.Duration
	logger     *zap.Logger
}

// New creates a Composer.
func New(s Summarizer, timeout time.Duration, logger *zap.Logger) *Composer {
	return &Composer{summarizer: s, timeout: timeout, logger: logger}
}

// Compose returns the reply for in. It never fails.
func (c *Composer) Compose(ctx context.Context, in Input) string {
	if len(in.Products) == 0 {
		return EmptyMessage(in.Query)
	}
	if c.summarizer == nil {
		return c.fallback(in, reasonDisabled)
	}

	sctx, cancel := c.withTimeout(ctx)
	defer cancel()

	reply, err := c.summarizer.Summarize(sctx, BuildPrompt(in))
	if err != nil {
		c.logger.Warn("Summarizer failed, using template reply", zap.Error(err))
		return c.fallback(in, reasonError)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return c.fallback(in, reasonEmpty)
	}
	return reply
}

func (c *Composer) fallback(in Input, reason string) string {
	metrics.ComposeFallbackTotal.WithLabelValues(reason).Inc()
	return Template(in.Query, in.Products, in.Jewelry)
}

// BuildPrompt renders the summarizer prompt from the last few turns and
// the top products.
func BuildPrompt(in Input) string {
	var b strings.Builder
	b.WriteString("You are a helpful e-commerce assistant. Based on the user's query and the available products, ")
	b.WriteString("give a natural, conversational answer.\n\n")

	history := in.History
	if len(history) > promptHistoryTurns {
		history = history[len(history)-promptHistoryTurns:]
	}
	if len(history) > 0 {
		b.WriteString("Previous conversation:\n")
		for _, t := range history {
			fmt.Fprintf(&b, "%s: %s\n", t.Role, snippet(t.Text))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "User's current query: %s\n\n", in.Query)

	b.WriteString("Relevant products:\n")
	for i := 0; i < len(in.Products) && i < promptProducts; i++ {
		p := &in.Products[i].Product
		cat := p.Category()
		if cat == "" {
			cat = "General"
		}
		fmt.Fprintf(&b, "%d. %s - %s (%s)\n", i+1, p.Name(), money(p.Price()), cat)
		if d := p.Description(); d != "" {
			fmt.Fprintf(&b, "   %s\n", snippet(d))
		}
	}

	b.WriteString("\nAnswer the query directly and mention the relevant products. ")
	b.WriteString("For gift requests consider the occasion and recipient. ")
	b.WriteString("For price questions state prices clearly.")
	return b.String()
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) <= promptSnippetLen {
		return s
	}
	return string(r[:promptSnippetLen]) + "..."
}

func (c *Composer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
