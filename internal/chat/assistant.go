// Package chat implements the fund assistant: it detects the funds a question
// refers to, gathers their stored data and asks a language model to answer
// from that data only.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/model"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	topHoldingsInContext  = 10
	underlyingFundsToShow = 10
)

// MaxLoadsPerMessage caps how many unknown funds one message may load.
const MaxLoadsPerMessage = 3

const systemInstruction = `You are a fund-of-funds assistant with access to accurate, up-to-date fund data
taken from SEC NPORT-P filings. Base your answer exclusively on the reference data in the
user's message. Do not contradict it with general knowledge, and never claim to lack
information about a fund whose data is provided. When no reference data is provided, say
which fund tickers you could not find.`

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a question with its prior conversation. OverlapTickers are the
// funds selected for an @overlap question; when empty the detected tickers are used.
// AllowLoad permits loading unknown funds that are mentioned as @TICKER.
type Request struct {
	Message        string    `json:"message"`
	History        []Message `json:"history,omitempty"`
	OverlapTickers []string  `json:"overlapTickers,omitempty"`
	AllowLoad      bool      `json:"-"`
}

// Reply is the assistant's answer and the funds it was grounded on.
type Reply struct {
	Reply    string   `json:"reply"`
	Tickers  []string `json:"tickers"`
	Loaded   []string `json:"loaded,omitempty"`
	Grounded bool     `json:"grounded"`
}

// Source is the read side the assistant grounds its answers on.
type Source interface {
	GetFund(ctx context.Context, ticker string) (model.Fund, bool, error)
	LatestFilingHoldings(ctx context.Context, ticker string) (model.FilingHoldings, error)
	AllocationByCategory(ctx context.Context, ticker string) (model.Allocation, error)
	Overlap(ctx context.Context, tickers ...string) ([]model.OverlapPair, error)
}

// LoadFunc loads funds that are not stored yet and returns the tickers that
// are available afterwards.
type LoadFunc func(ctx context.Context, tickers []string) []string

// Assistant answers questions about stored funds.
type Assistant struct {
	source    Source
	generator Generator
	load      LoadFunc
	log       *logrus.Logger
}

// NewAssistant creates an Assistant.
func NewAssistant(source Source, generator Generator, logger *logrus.Logger) *Assistant {
	return &Assistant{source: source, generator: generator, log: logger}
}

// WithLoader lets the assistant fetch funds it does not know yet.
func (a *Assistant) WithLoader(load LoadFunc) *Assistant {
	a.load = load
	return a
}

// Ask answers req, grounding the prompt on every referenced fund that is stored.
func (a *Assistant) Ask(ctx context.Context, req Request) (Reply, error) {
	prompt, reply, err := a.BuildPrompt(ctx, req)
	if err != nil {
		return Reply{}, err
	}

	text, err := a.generator.Generate(ctx, systemInstruction, req.History, prompt)
	if err != nil {
		return Reply{}, err
	}
	reply.Reply = text
	return reply, nil
}

// BuildPrompt returns the prompt sent to the model for req. Without any
// stored fund referenced, the prompt is the question itself.
func (a *Assistant) BuildPrompt(ctx context.Context, req Request) (string, Reply, error) {
	reply := Reply{Tickers: []string{}}
	detected := DetectTickers(req.Message)
	overlap := MentionsOverlap(req.Message)

	known, missing, err := a.partition(ctx, detected)
	if err != nil {
		return "", reply, err
	}
	if toLoad := a.loadable(req, missing); len(toLoad) > 0 {
		a.log.WithField("tickers", toLoad).Info("loading funds mentioned in chat")
		reply.Loaded = a.load(ctx, toLoad)
		if known, _, err = a.partition(ctx, detected); err != nil {
			return "", reply, err
		}
	}
	reply.Tickers = known

	var sections []string
	for _, t := range known {
		section, err := a.fundSection(ctx, t)
		if err != nil {
			return "", reply, err
		}
		sections = append(sections, section)
	}

	if overlap {
		selected := normalize(req.OverlapTickers)
		if len(selected) == 0 {
			selected = known
		}
		if len(selected) >= 2 {
			section, err := a.overlapSection(ctx, selected)
			if err != nil {
				return "", reply, err
			}
			sections = append(sections, section)
		}
	}

	if len(sections) == 0 {
		return req.Message, reply, nil
	}
	reply.Grounded = true

	var b strings.Builder
	b.WriteString("===== REFERENCE DATA =====\n\n")
	b.WriteString(strings.Join(sections, "\n\n"))
	b.WriteString("\n\n===== USER QUESTION =====\n\n")
	b.WriteString(req.Message)
	b.WriteString("\n\n===== INSTRUCTIONS =====\n\n")
	b.WriteString("Answer using only the reference data above. For each fund, describe its composition, ")
	b.WriteString("its largest holdings and its asset allocation.\n")
	return b.String(), reply, nil
}

// loadable returns the missing funds that were mentioned explicitly, at most
// MaxLoadsPerMessage of them. Bare upper-case words are never loaded.
func (a *Assistant) loadable(req Request, missing []string) []string {
	if a.load == nil || !req.AllowLoad || len(missing) == 0 {
		return nil
	}
	mentions := MentionedTickers(req.Message)
	explicit := lo.Filter(missing, func(t string, _ int) bool { return lo.Contains(mentions, t) })
	if len(explicit) > MaxLoadsPerMessage {
		a.log.WithField("tickers", explicit[MaxLoadsPerMessage:]).Warn("too many funds mentioned, not loading the rest")
		explicit = explicit[:MaxLoadsPerMessage]
	}
	return explicit
}

func (a *Assistant) partition(ctx context.Context, tickers []string) (known, missing []string, err error) {
	known = []string{}
	for _, t := range tickers {
		_, found, err := a.source.GetFund(ctx, t)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to look up %s: %w", t, err)
		}
		if found {
			known = append(known, t)
		} else {
			missing = append(missing, t)
		}
	}
	return known, missing, nil
}

func (a *Assistant) fundSection(ctx context.Context, ticker string) (string, error) {
	latest, err := a.source.LatestFilingHoldings(ctx, ticker)
	if err != nil {
		return "", err
	}
	allocation, err := a.source.AllocationByCategory(ctx, ticker)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	f := latest.Fund
	fmt.Fprintf(&b, "## FUND: %s (%s)\n", f.Ticker, f.Name)
	fmt.Fprintf(&b, "- Fund type: %s\n", f.Type)
	if latest.Filing.ID == "" {
		b.WriteString("- No filing stored.\n")
		return b.String(), nil
	}
	fmt.Fprintf(&b, "- Total assets: $%.2f\n", latest.Filing.TotalAssets)
	fmt.Fprintf(&b, "- Period end: %s, filed %s\n",
		latest.Filing.PeriodEndDate.Format("2006-01-02"),
		latest.Filing.FilingDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "- Holdings: %d\n", len(latest.Holdings))

	if len(allocation.Categories) > 0 {
		b.WriteString("\nAsset allocation:\n")
		for _, c := range allocation.Categories {
			fmt.Fprintf(&b, "- %s: %.2f%%\n", c.AssetCategory, c.Percentage)
		}
		if !allocation.Complete {
			fmt.Fprintf(&b, "- (percentages sum to %.2f%%, the filing may be incomplete)\n", allocation.Total)
		}
	}

	top := latest.Holdings
	if len(top) > topHoldingsInContext {
		top = top[:topHoldingsInContext]
	}
	if len(top) > 0 {
		fmt.Fprintf(&b, "\nTop %d holdings:\n", len(top))
		writeHoldings(&b, top)
	}

	if f.Type == model.FundTypeFundOfFunds {
		shown := 0
		for _, h := range top {
			child := h.TickerOrEmpty()
			if child == "" || child == f.Ticker || shown == underlyingFundsToShow {
				continue
			}
			sub, err := a.source.LatestFilingHoldings(ctx, child)
			if err != nil {
				return "", err
			}
			if len(sub.Holdings) == 0 {
				continue
			}
			shown++
			limit := min(len(sub.Holdings), topHoldingsInContext)
			fmt.Fprintf(&b, "\nUnderlying securities of %s (top %d):\n", child, limit)
			writeHoldings(&b, sub.Holdings[:limit])
		}
	}
	return b.String(), nil
}

func (a *Assistant) overlapSection(ctx context.Context, tickers []string) (string, error) {
	pairs, err := a.source.Overlap(ctx, tickers...)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## OVERLAP: %s\n", strings.Join(tickers, ", "))
	for _, p := range pairs {
		fmt.Fprintf(&b, "\n%s and %s share %d holdings", p.FundA, p.FundB, len(p.Shared))
		if len(p.Shared) == 0 {
			b.WriteString(".\n")
			continue
		}
		b.WriteString(":\n")
		for _, s := range p.Shared {
			fmt.Fprintf(&b, "- %s (%s): %.2f%% of %s, %.2f%% of %s\n",
				s.Name, s.Key, s.PercentageA, p.FundA, s.PercentageB, p.FundB)
		}
	}
	return b.String(), nil
}

func writeHoldings(b *strings.Builder, holdings []model.Holding) {
	for i, h := range holdings {
		ticker := ""
		if t := h.TickerOrEmpty(); t != "" {
			ticker = " (" + t + ")"
		}
		fmt.Fprintf(b, "%d. %s%s: %.2f%% ($%.2f)\n", i+1, h.Name, ticker, h.Percentage, h.Value)
	}
}
