// Package commands turns CLI invocations into agent instructions, running the
// HIL dialogue first when the command line left required values out.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"scaffai/internal/domain"
	"scaffai/internal/hil"
)

// Chatter sends one instruction to the agent.
type Chatter interface {
	Chat(ctx context.Context, message string) string
}

// Prompter fills in parameters interactively.
type Prompter interface {
	AskProjectDetails(ctx context.Context, name string) (*domain.Params, error)
	AskSnippetDetails(ctx context.Context, template string) (*domain.Params, error)
	AskAnalysisDetails(ctx context.Context) (*domain.Params, error)
}

// Output shows agent replies and status lines.
type Output interface {
	Reply(text string)
	Println(a ...any)
}

type thinker interface {
	StartThinking()
	StopThinking()
}

type Config struct {
	Agent    Chatter
	Prompter Prompter
	Out      Output
	Logger   *slog.Logger
}

type Runner struct {
	agent    Chatter
	prompter Prompter
	out      Output
	logger   *slog.Logger
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		agent:    cfg.Agent,
		prompter: cfg.Prompter,
		out:      cfg.Out,
		logger:   cfg.Logger,
	}
}

// NewProject handles `new`. params holds name, template, output_dir,
// username and db as given on the command line.
func (r *Runner) NewProject(ctx context.Context, params *domain.Params, interactive bool) error {
	if interactive || hil.ShouldUseHIL("new", params) {
		asked, err := r.prompter.AskProjectDetails(ctx, params.Get("name"))
		if err != nil {
			return r.dialogueFailed(err)
		}
		params.Merge(asked)
	}
	r.send(ctx, NewProjectInstruction(params))
	return nil
}

// AddSnippet handles `add-snippet`.
func (r *Runner) AddSnippet(ctx context.Context, params *domain.Params, interactive bool) error {
	if interactive || hil.ShouldUseHIL("add_snippet", params) {
		asked, err := r.prompter.AskSnippetDetails(ctx, params.Get("template"))
		if err != nil {
			return r.dialogueFailed(err)
		}
		params.Merge(asked)
	}
	r.send(ctx, AddSnippetInstruction(params))
	return nil
}

// Analyze handles `analyze`.
func (r *Runner) Analyze(ctx context.Context, params *domain.Params, interactive bool) error {
	if interactive || hil.ShouldUseHIL("analyze", params) {
		asked, err := r.prompter.AskAnalysisDetails(ctx)
		if err != nil {
			return r.dialogueFailed(err)
		}
		params.Merge(asked)
	}
	r.send(ctx, AnalyzeInstruction(params))
	return nil
}

// Chat sends message to the agent unchanged.
func (r *Runner) Chat(ctx context.Context, message string) error {
	r.send(ctx, message)
	return nil
}

func (r *Runner) send(ctx context.Context, instruction string) {
	r.logger.Debug("sending instruction", "instruction", instruction)
	t, spin := r.out.(thinker)
	if spin {
		t.StartThinking()
	}
	reply := r.agent.Chat(ctx, instruction)
	if spin {
		t.StopThinking()
	}
	r.out.Reply(reply)
}

// dialogueFailed reports a HIL failure to the user. The command itself still
// succeeds; only usage and config errors end the process with a failure.
func (r *Runner) dialogueFailed(err error) error {
	if errors.Is(err, context.Canceled) {
		r.out.Println("Cancelled")
		return nil
	}
	if !errors.Is(err, hil.ErrAborted) {
		r.logger.Warn("dialogue failed", "err", err)
	}
	r.out.Println(fmt.Sprintf("Error: %s", err))
	return nil
}
