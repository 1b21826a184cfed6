package main

import (
	"context"
	"errors"
	"flag"
	"strings"

	"github.com/google/subcommands"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/apperrors"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/chat"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/scheduler"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/validation"
)

// askCmd asks the fund assistant a question.
type askCmd struct {
	overlap string
	load    bool
	prompt  bool
}

func (*askCmd) Name() string     { return "ask" }
func (*askCmd) Synopsis() string { return "ask the Gemini assistant about stored funds" }
func (*askCmd) Usage() string {
	return `fofctl ask [-overlap A,B] [-load] [-prompt] QUESTION...

  Mention funds as @TICKER and add @overlap to compare them. Requires
  GEMINI_API_KEY.
`
}

func (c *askCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.overlap, "overlap", "", "comma separated funds to compare")
	f.BoolVar(&c.load, "load", false, "load mentioned funds that are not stored yet")
	f.BoolVar(&c.prompt, "prompt", false, "print the grounded prompt instead of asking the model")
}

func (c *askCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	question := strings.TrimSpace(strings.Join(f.Args(), " "))
	if question == "" {
		fail("Error: a question is required")
		return subcommands.ExitUsageError
	}
	overlap := validation.SplitTickers(c.overlap)
	if len(overlap) > 0 {
		if err := validation.ValidateTickers(overlap); err != nil {
			fail("Error: %v", err)
			return subcommands.ExitUsageError
		}
	}

	a, err := openApp(ctx, c.load)
	if err != nil {
		fail("Error: %v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	var generator chat.Generator
	if !c.prompt {
		gemini, err := chat.NewGeminiGenerator(ctx, a.cfg.Chat)
		if errors.Is(err, apperrors.ErrChatDisabled) {
			fail("Error: GEMINI_API_KEY is not set")
			return subcommands.ExitFailure
		}
		if err != nil {
			fail("Error initializing Gemini client: %v", err)
			return subcommands.ExitFailure
		}
		generator = gemini
	}

	assistant := chat.NewAssistant(a.query, generator, a.log)
	if c.load {
		assistant.WithLoader(scheduler.NewRunner(a.loader, a.log).LoadTickers)
	}
	req := chat.Request{Message: question, OverlapTickers: overlap, AllowLoad: c.load}

	if c.prompt {
		prompt, _, err := assistant.BuildPrompt(ctx, req)
		if err != nil {
			fail("Error: %v", err)
			return subcommands.ExitFailure
		}
		printMarkdown(prompt)
		return subcommands.ExitSuccess
	}

	reply, err := assistant.Ask(ctx, req)
	if err != nil {
		fail("Error: %v", err)
		return subcommands.ExitFailure
	}
	printMarkdown(reply.Reply)
	return subcommands.ExitSuccess
}
