// Package console is the terminal surface of scaffai: line prompts, yes/no
// confirmations, titled panels and optional markdown rendering.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// ErrNoInput is returned when input ends before an answer was given.
var ErrNoInput = errors.New("no input")

type Console struct {
	in       *bufio.Reader
	out      io.Writer
	logger   *slog.Logger
	renderer *lipgloss.Renderer
	markdown *glamour.TermRenderer
	spinner  bool

	thinkMu   sync.Mutex
	thinkStop chan struct{}
	thinkDone chan struct{}
}

type Config struct {
	In       io.Reader
	Out      io.Writer
	Logger   *slog.Logger
	Markdown bool   // render agent replies as markdown
	Style    string // glamour style: auto | dark | light | notty
	Spinner  bool   // show a spinner while waiting on the agent
}

func New(cfg Config) *Console {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	c := &Console{
		in:       bufio.NewReader(cfg.In),
		out:      cfg.Out,
		logger:   cfg.Logger,
		renderer: lipgloss.NewRenderer(cfg.Out),
		spinner:  cfg.Spinner,
	}
	if cfg.Markdown {
		r, err := newMarkdownRenderer(cfg.Style)
		if err != nil {
			cfg.Logger.Warn("markdown rendering disabled", "err", err)
		} else {
			c.markdown = r
		}
	}
	return c
}

func newMarkdownRenderer(style string) (*glamour.TermRenderer, error) {
	opt := glamour.WithAutoStyle()
	if style != "" && style != "auto" {
		opt = glamour.WithStandardStyle(style)
	}
	return glamour.NewTermRenderer(opt, glamour.WithWordWrap(100))
}

// Ask shows prompt and returns the trimmed answer, or def when the answer is
// empty.
func (c *Console) Ask(ctx context.Context, prompt, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(c.out, "%s (%s): ", prompt, def)
	} else {
		fmt.Fprintf(c.out, "%s: ", prompt)
	}
	line, err := c.readLine(ctx)
	if err != nil {
		return "", err
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

// Confirm asks a yes/no question until it gets a recognisable answer.
func (c *Console) Confirm(ctx context.Context, prompt string) (bool, error) {
	for {
		fmt.Fprintf(c.out, "%s [y/n]: ", prompt)
		line, err := c.readLine(ctx)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(line) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(c.out, "Please enter Y or N")
	}
}

func (c *Console) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := c.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(c.out)
			return "", ErrNoInput
		}
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Panel prints body inside a rounded box headed by title.
func (c *Console) Panel(title, body string) {
	titleStyle := c.renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	box := c.renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Padding(0, 1)

	content := titleStyle.Render(title)
	if body = strings.TrimRight(body, "\n"); body != "" {
		content += "\n\n" + body
	}
	fmt.Fprintln(c.out, box.Render(content))
}

// Reply prints an agent reply, rendered as markdown when enabled.
func (c *Console) Reply(text string) {
	if c.markdown != nil {
		if rendered, err := c.markdown.Render(text); err == nil {
			fmt.Fprint(c.out, rendered)
			return
		}
	}
	fmt.Fprintln(c.out, text)
}

// Println writes plain text.
func (c *Console) Println(a ...any) {
	fmt.Fprintln(c.out, a...)
}

// StartThinking shows a spinner until StopThinking is called. It is a no-op
// unless the console was created with Spinner.
func (c *Console) StartThinking() {
	if !c.spinner {
		return
	}
	c.thinkMu.Lock()
	defer c.thinkMu.Unlock()
	if c.thinkStop != nil {
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	c.thinkStop, c.thinkDone = stop, done
	go func() {
		defer close(done)
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-stop:
				fmt.Fprint(c.out, "\r\033[K")
				return
			case <-ticker.C:
				fmt.Fprintf(c.out, "\r%s Thinking...", frames[i%len(frames)])
			}
		}
	}()
}

func (c *Console) StopThinking() {
	c.thinkMu.Lock()
	defer c.thinkMu.Unlock()
	if c.thinkStop == nil {
		return
	}
	close(c.thinkStop)
	<-c.thinkDone
	c.thinkStop, c.thinkDone = nil, nil
}

// AskSecret adapts Ask for API key prompts.
func (c *Console) AskSecret(prompt string) (string, error) {
	return c.Ask(context.Background(), prompt, "")
}

// ConfirmCommand adapts Confirm for the command policy.
func (c *Console) ConfirmCommand(ctx context.Context, question string) (bool, error) {
	return c.Confirm(ctx, question)
}
