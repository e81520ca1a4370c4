package commands

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scaffai/internal/domain"
	"scaffai/internal/hil"
	"scaffai/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type recordingAgent struct {
	messages []string
	reply    string
}

func (a *recordingAgent) Chat(ctx context.Context, message string) string {
	a.messages = append(a.messages, message)
	if a.reply != "" {
		return a.reply
	}
	return "done"
}

type captureOut struct {
	replies []string
	lines   []string
}

func (o *captureOut) Reply(text string) { o.replies = append(o.replies, text) }
func (o *captureOut) Println(a ...any)  { o.lines = append(o.lines, fmt.Sprint(a...)) }

// noUI fails every prompt, so any HIL dialogue shows up as an error.
type noUI struct{ asked int }

func (u *noUI) Ask(ctx context.Context, prompt, def string) (string, error) {
	u.asked++
	return "", fmt.Errorf("unexpected prompt %q", prompt)
}

func (u *noUI) Confirm(ctx context.Context, prompt string) (bool, error) {
	u.asked++
	return false, fmt.Errorf("unexpected confirm %q", prompt)
}

func (u *noUI) Panel(title, body string) {}

type stubPrompter struct {
	params *domain.Params
	err    error
	calls  int
}

func (p *stubPrompter) AskProjectDetails(ctx context.Context, name string) (*domain.Params, error) {
	p.calls++
	return p.params, p.err
}

func (p *stubPrompter) AskSnippetDetails(ctx context.Context, template string) (*domain.Params, error) {
	p.calls++
	return p.params, p.err
}

func (p *stubPrompter) AskAnalysisDetails(ctx context.Context) (*domain.Params, error) {
	p.calls++
	return p.params, p.err
}

func TestNewProject_EndToEndSkipsHIL(t *testing.T) {
	agent := &recordingAgent{reply: "Project 'demo' created successfully"}
	ui := &noUI{}
	out := &captureOut{}
	prompter := hil.New(hil.Config{Agent: agent, UI: ui, Logger: testLogger()})
	r := NewRunner(Config{Agent: agent, Prompter: prompter, Out: out, Logger: testLogger()})

	params := domain.ParamsFrom("name", "demo", "template", "python")
	require.NoError(t, r.NewProject(context.Background(), params, false))

	require.Len(t, agent.messages, 1)
	assert.Contains(t, agent.messages[0], "demo")
	assert.Contains(t, agent.messages[0], "python")
	assert.Equal(t, 0, ui.asked)
	assert.Equal(t, []string{"Project 'demo' created successfully"}, out.replies)
}

func TestNewProject_UsesHILWhenTemplateMissing(t *testing.T) {
	agent := &recordingAgent{}
	p := &stubPrompter{params: domain.ParamsFrom("name", "demo", "template", "golang", "output_dir", "out", "db", "sqlite")}
	r := NewRunner(Config{Agent: agent, Prompter: p, Out: &captureOut{}, Logger: testLogger()})

	require.NoError(t, r.NewProject(context.Background(), domain.ParamsFrom("name", "demo", "username", "octo"), false))

	assert.Equal(t, 1, p.calls)
	require.Len(t, agent.messages, 1)
	assert.Equal(t,
		"Create a new project named 'demo' using the golang template. Output directory: out, GitHub username: octo, database: sqlite",
		agent.messages[0])
}

func TestNewProject_InteractiveForcesHIL(t *testing.T) {
	p := &stubPrompter{params: domain.ParamsFrom("name", "x", "template", "python")}
	r := NewRunner(Config{Agent: &recordingAgent{}, Prompter: p, Out: &captureOut{}, Logger: testLogger()})
	require.NoError(t, r.NewProject(context.Background(), domain.ParamsFrom("name", "x", "template", "python"), true))
	assert.Equal(t, 1, p.calls)
}

func TestNewProject_Aborted(t *testing.T) {
	agent := &recordingAgent{}
	out := &captureOut{}
	p := &stubPrompter{err: fmt.Errorf("%w after 3 attempts", hil.ErrAborted)}
	r := NewRunner(Config{Agent: agent, Prompter: p, Out: out, Logger: testLogger()})

	require.NoError(t, r.NewProject(context.Background(), domain.NewParams(), false))
	assert.Empty(t, agent.messages)
	assert.Equal(t, []string{"Error: aborted after 3 attempts"}, out.lines)
}

func TestNewProject_Cancelled(t *testing.T) {
	out := &captureOut{}
	p := &stubPrompter{err: context.Canceled}
	r := NewRunner(Config{Agent: &recordingAgent{}, Prompter: p, Out: out, Logger: testLogger()})
	require.NoError(t, r.NewProject(context.Background(), domain.NewParams(), false))
	assert.Equal(t, []string{"Cancelled"}, out.lines)
}

func TestAddSnippet(t *testing.T) {
	agent := &recordingAgent{}
	p := &stubPrompter{}
	r := NewRunner(Config{Agent: agent, Prompter: p, Out: &captureOut{}, Logger: testLogger()})

	params := domain.ParamsFrom("snippet", "api/client", "template", "golang", "project_dir", "./svc")
	require.NoError(t, r.AddSnippet(context.Background(), params, false))
	assert.Equal(t, 0, p.calls)
	assert.Equal(t, []string{"Add the api/client snippet for golang to the project in ./svc"}, agent.messages)
}

func TestAnalyze_WithFocusFromHIL(t *testing.T) {
	agent := &recordingAgent{}
	asked := domain.ParamsFrom("project_dir", "src")
	asked.SetList("focus_areas", []string{"tests", "structure"})
	p := &stubPrompter{params: asked}
	r := NewRunner(Config{Agent: agent, Prompter: p, Out: &captureOut{}, Logger: testLogger()})

	require.NoError(t, r.Analyze(context.Background(), domain.NewParams(), false))
	assert.Equal(t, []string{"Analyze the project in src focusing on: tests, structure and suggest improvements"}, agent.messages)
}

func TestChat_Verbatim(t *testing.T) {
	agent := &recordingAgent{}
	r := NewRunner(Config{Agent: agent, Prompter: &stubPrompter{}, Out: &captureOut{}, Logger: testLogger()})
	require.NoError(t, r.Chat(context.Background(), "  what rules exist?  "))
	assert.Equal(t, []string{"  what rules exist?  "}, agent.messages)
}

func TestInstructions(t *testing.T) {
	assert.Equal(t,
		"Create a new project named 'demo' using the python template. Output directory: .",
		NewProjectInstruction(domain.ParamsFrom("name", "demo", "template", "python")))
	assert.Equal(t,
		"Add the db snippet for python to the project in .",
		AddSnippetInstruction(domain.ParamsFrom("snippet", "db", "template", "python")))
	assert.Equal(t,
		"Analyze the project in . and suggest improvements",
		AnalyzeInstruction(domain.NewParams()))
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestPrintRulesAndSnippets(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "rules", "python.txt"), "py rules")
	writeFile(t, filepath.Join(root, "rules", "golang.txt"), "go rules")
	writeFile(t, filepath.Join(root, "rules", "golang.yaml"), "description: Go service\nrequires: [username]\n")
	writeFile(t, filepath.Join(root, "snippets", "golang", "db", "conn.txt"), "x")
	writeFile(t, filepath.Join(root, "snippets", "golang", "api", "client.txt"), "x")

	s := store.New(root, testLogger())

	var buf bytes.Buffer
	require.NoError(t, PrintRules(&buf, s))
	assert.Equal(t, "golang: Go service (requires username)\npython\n", buf.String())

	buf.Reset()
	require.NoError(t, PrintSnippets(&buf, s, "golang"))
	assert.Equal(t, "api: client\ndb: conn\n", buf.String())

	buf.Reset()
	require.NoError(t, PrintSnippets(&buf, s, "rust"))
	assert.Equal(t, "No snippets found for rust\n", buf.String())
}

func TestPrintRules_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintRules(&buf, store.New(t.TempDir(), testLogger())))
	assert.Equal(t, "No rules found\n", buf.String())
}
