// Package hil runs the human-in-the-loop dialogue that fills in the
// parameters of a command the user did not fully specify.
package hil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"scaffai/internal/domain"
	"scaffai/internal/metrics"
)

// ErrAborted is returned once the user rejected the collected configuration
// on every allowed attempt.
var ErrAborted = errors.New("aborted")

const (
	defaultTemplate    = "python"
	defaultProjectDir  = "."
	defaultMaxAttempts = 3
)

// ShouldUseHIL reports whether params leave a required field of command
// empty.
func ShouldUseHIL(command string, params *domain.Params) bool {
	switch command {
	case "new":
		return !(params.Has("name") && params.Has("template"))
	case "add_snippet":
		return !(params.Has("snippet") && params.Has("template"))
	case "analyze":
		return !params.Has("project_dir")
	default:
		return true
	}
}

// Chatter is the agent side of the dialogue.
type Chatter interface {
	Chat(ctx context.Context, message string) string
}

// UI is the user side of the dialogue.
type UI interface {
	Ask(ctx context.Context, prompt, def string) (string, error)
	Confirm(ctx context.Context, prompt string) (bool, error)
	Panel(title, body string)
}

type thinker interface {
	StartThinking()
	StopThinking()
}

type Config struct {
	Agent       Chatter
	UI          UI
	Detector    Detector
	MaxAttempts int
	Logger      *slog.Logger
}

type Prompter struct {
	agent       Chatter
	ui          UI
	detector    Detector
	maxAttempts int
	logger      *slog.Logger
}

func New(cfg Config) *Prompter {
	if cfg.Detector == nil {
		cfg.Detector = KeywordDetector{}
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	return &Prompter{
		agent:       cfg.Agent,
		ui:          cfg.UI,
		detector:    cfg.Detector,
		maxAttempts: cfg.MaxAttempts,
		logger:      cfg.Logger,
	}
}

// AskProjectDetails collects name, template, username, db and output_dir for
// the new command. A non-empty name is used as given.
func (p *Prompter) AskProjectDetails(ctx context.Context, name string) (*domain.Params, error) {
	return p.attempts(ctx, "new", func(ctx context.Context) (*domain.Params, bool, error) {
		return p.projectRound(ctx, name)
	})
}

// AskSnippetDetails collects template, snippet and project_dir for the
// add_snippet command. A non-empty template is used as given.
func (p *Prompter) AskSnippetDetails(ctx context.Context, template string) (*domain.Params, error) {
	return p.attempts(ctx, "add_snippet", func(ctx context.Context) (*domain.Params, bool, error) {
		return p.snippetRound(ctx, template)
	})
}

// AskAnalysisDetails collects project_dir and the accepted focus_areas.
func (p *Prompter) AskAnalysisDetails(ctx context.Context) (*domain.Params, error) {
	metrics.HILAttempts.Inc()
	p.ui.Panel("Let me analyze your project! 🔍", "")

	params := domain.NewParams()
	dir, err := p.ui.Ask(ctx, "Where's your project located", defaultProjectDir)
	if err != nil {
		return nil, err
	}
	params.Set("project_dir", dir)

	aspects := p.consult(ctx, "Analysis Aspects", "What aspects should I analyze in the project?")
	var focus []string
	for _, line := range strings.Split(aspects, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ok, err := p.ui.Confirm(ctx, fmt.Sprintf("Should I analyze %s", line))
		if err != nil {
			return nil, err
		}
		if ok {
			focus = append(focus, line)
		}
	}
	if len(focus) > 0 {
		params.SetList("focus_areas", focus)
	}
	return params, nil
}

type round func(ctx context.Context) (*domain.Params, bool, error)

func (p *Prompter) attempts(ctx context.Context, command string, run round) (*domain.Params, error) {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		metrics.HILAttempts.Inc()
		params, accepted, err := run(ctx)
		if err != nil {
			return nil, err
		}
		if accepted {
			return params, nil
		}
		p.logger.Info("configuration rejected", "command", command, "attempt", attempt)
	}
	return nil, fmt.Errorf("%w after %d attempts", ErrAborted, p.maxAttempts)
}

func (p *Prompter) projectRound(ctx context.Context, name string) (*domain.Params, bool, error) {
	p.ui.Panel("Let me help you create a new project! 🚀", "")

	params := domain.NewParams()
	if name == "" {
		var err error
		if name, err = p.askRequired(ctx, "What's your project name"); err != nil {
			return nil, false, err
		}
	}
	params.Set("name", name)

	p.consult(ctx, "Available Templates", "List available project templates and give a brief description of each")
	template, err := p.ui.Ask(ctx, "Which template would you like to use", defaultTemplate)
	if err != nil {
		return nil, false, err
	}
	params.Set("template", template)

	requirements := p.consult(ctx, "Template Requirements",
		fmt.Sprintf("What additional information do I need for a %s project?", template))
	detector := p.detectorFor(template)

	if detector.Needs(requirements, "username") {
		username, err := p.ui.Ask(ctx, "What's your GitHub username", "")
		if err != nil {
			return nil, false, err
		}
		params.Set("username", username)
	}

	if detector.Needs(requirements, "database") {
		p.consult(ctx, "Database Options", fmt.Sprintf("What database options are available for %s?", template))
		want, err := p.ui.Confirm(ctx, "Would you like to add a database")
		if err != nil {
			return nil, false, err
		}
		if want {
			db, err := p.ui.Ask(ctx, "Which database would you like to use", "")
			if err != nil {
				return nil, false, err
			}
			params.Set("db", db)
		}
	}

	outputDir, err := p.ui.Ask(ctx, "Where should I create the project", defaultProjectDir)
	if err != nil {
		return nil, false, err
	}
	params.Set("output_dir", outputDir)

	p.consult(ctx, "Configuration Review",
		fmt.Sprintf("Validate this project configuration and suggest any improvements:\n%s", params))
	ok, err := p.ui.Confirm(ctx, "Would you like to proceed with this configuration")
	if err != nil {
		return nil, false, err
	}
	return params, ok, nil
}

func (p *Prompter) snippetRound(ctx context.Context, template string) (*domain.Params, bool, error) {
	p.ui.Panel("Let me help you add a snippet! 📝", "")

	params := domain.NewParams()
	if template == "" {
		var err error
		if template, err = p.ui.Ask(ctx, "Which template/language are you using", defaultTemplate); err != nil {
			return nil, false, err
		}
	}
	params.Set("template", template)

	p.consult(ctx, "Available Snippets", fmt.Sprintf("List available snippets for %s and describe each", template))
	snippet, err := p.askRequired(ctx, "Which snippet would you like to add")
	if err != nil {
		return nil, false, err
	}
	params.Set("snippet", snippet)

	dir, err := p.ui.Ask(ctx, "Where's your project located", defaultProjectDir)
	if err != nil {
		return nil, false, err
	}
	params.Set("project_dir", dir)

	p.consult(ctx, "Compatibility Check", fmt.Sprintf(
		"Check if the %s snippet is compatible with the project in %s and suggest any necessary preparations",
		snippet, dir))
	ok, err := p.ui.Confirm(ctx, "Would you like to proceed with adding this snippet")
	if err != nil {
		return nil, false, err
	}
	return params, ok, nil
}

// consult asks the agent question, shows the reply under title and returns it.
func (p *Prompter) consult(ctx context.Context, title, question string) string {
	p.logger.Debug("hil question", "title", title)
	t, spin := p.ui.(thinker)
	if spin {
		t.StartThinking()
	}
	reply := p.agent.Chat(ctx, question)
	if spin {
		t.StopThinking()
	}
	p.ui.Panel(title, reply)
	return reply
}

// askRequired repeats prompt until the answer is non-empty.
func (p *Prompter) askRequired(ctx context.Context, prompt string) (string, error) {
	for {
		v, err := p.ui.Ask(ctx, prompt, "")
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(v) != "" {
			return v, nil
		}
	}
}

func (p *Prompter) detectorFor(template string) Detector {
	if td, ok := p.detector.(templateDetector); ok {
		return td.ForTemplate(template)
	}
	return p.detector
}
