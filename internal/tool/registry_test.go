package tool

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"scaffai/internal/domain"
)

// stubTool is a minimal tool for testing the registry.
type stubTool struct {
	name   string
	result domain.ToolResult
	panics bool
	got    string
}

func (s *stubTool) Name() string               { return s.name }
func (s *stubTool) Description() string        { return "stub: " + s.name }
func (s *stubTool) Parameters() map[string]any { return InputParameters("anything", true) }
func (s *stubTool) Execute(ctx context.Context, input string) domain.ToolResult {
	s.got = input
	if s.panics {
		panic("boom")
	}
	return s.result
}

var _ domain.Tool = (*stubTool)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry(testLogger())
	if err := reg.Register(&stubTool{name: "test_tool"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	got := reg.Get("test_tool")
	if got == nil {
		t.Fatal("expected to find registered tool")
	}
	if got.Name() != "test_tool" {
		t.Fatalf("expected 'test_tool', got %q", got.Name())
	}
	if reg.Get("nonexistent") != nil {
		t.Fatal("expected nil for unknown tool")
	}
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	reg := NewRegistry(testLogger())
	if err := reg.Register(&stubTool{name: "dup"}); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(&stubTool{name: "dup"}); err == nil {
		t.Fatal("expected error on duplicate name")
	}
	if len(reg.Names()) != 1 {
		t.Fatalf("expected 1 tool, got %v", reg.Names())
	}
}

func TestRegistry_DispatchPassesInput(t *testing.T) {
	reg := NewRegistry(testLogger())
	st := &stubTool{name: "echo", result: domain.OK("hello")}
	reg.Register(st)

	if got := reg.Dispatch(context.Background(), "echo", "payload"); got != "hello" {
		t.Fatalf("expected 'hello', got %q", got)
	}
	if st.got != "payload" {
		t.Fatalf("tool received %q", st.got)
	}
}

func TestRegistry_DispatchFailureIsText(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.Register(&stubTool{name: "miss", result: domain.Fail(domain.ResultNotFound, "Rule 'x' not found", nil)})

	if got := reg.Dispatch(context.Background(), "miss", "x"); got != "Rule 'x' not found" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestRegistry_DispatchUnknown(t *testing.T) {
	reg := NewRegistry(testLogger())
	res := reg.Execute(context.Background(), "missing", "")
	if res.Kind != domain.ResultNotFound {
		t.Fatalf("expected not_found, got %s", res.Kind)
	}
	if res.Text != "Unknown tool 'missing'" {
		t.Fatalf("unexpected text %q", res.Text)
	}
}

func TestRegistry_DispatchRecoversPanic(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.Register(&stubTool{name: "explode", panics: true})

	res := reg.Execute(context.Background(), "explode", "")
	if res.Kind != domain.ResultInternal {
		t.Fatalf("expected internal, got %s", res.Kind)
	}
	if res.Text != "Tool 'explode' failed: boom" {
		t.Fatalf("unexpected text %q", res.Text)
	}
}

func TestRegistry_DefinitionsInOrder(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.Register(&stubTool{name: "tool2"})
	reg.Register(&stubTool{name: "tool1"})

	defs := reg.Definitions()
	if len(defs) != 2 || defs[0].Name != "tool2" || defs[1].Name != "tool1" {
		t.Fatalf("unexpected definitions %+v", defs)
	}
}

func TestRegistry_FilterHidesAndRefuses(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.Register(&stubTool{name: "run_command", result: domain.OK("ran")})
	reg.Register(&stubTool{name: "list_rules", result: domain.OK("rules")})
	reg.SetFilter(NewFilter(nil, []string{"run_command"}))

	defs := reg.Definitions()
	if len(defs) != 1 || defs[0].Name != "list_rules" {
		t.Fatalf("filtered definitions wrong: %+v", defs)
	}
	if got := reg.Dispatch(context.Background(), "run_command", "ls"); got != "Unknown tool 'run_command'" {
		t.Fatalf("denied tool should not run, got %q", got)
	}
}

// --- ToolParameters ---

func TestToolParameters_WithRequired(t *testing.T) {
	params := ToolParameters(
		map[string]Param{
			"name": {Type: "string", Description: "The name"},
			"age":  {Type: "number", Description: "The age in years"},
		},
		[]string{"name"},
	)

	if params["type"] != "object" {
		t.Fatal("expected type=object")
	}
	props := params["properties"].(map[string]any)
	if len(props) != 2 {
		t.Fatalf("expected 2 properties, got %d", len(props))
	}
	required := params["required"].([]string)
	if len(required) != 1 || required[0] != "name" {
		t.Fatalf("unexpected required: %v", required)
	}
}

func TestInputParameters_Optional(t *testing.T) {
	params := InputParameters("ignored", false)
	if _, ok := params["required"]; ok {
		t.Fatal("should not have 'required' key for optional input")
	}
	props := params["properties"].(map[string]any)
	if _, ok := props["input"]; !ok {
		t.Fatal("expected an 'input' property")
	}
}

func TestRegistry_EmptyFilterDropped(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.SetFilter(NewFilter(nil, nil))
	if reg.filter != nil {
		t.Fatal("an empty filter should not be installed")
	}
	reg.SetFilter(NewFilter(nil, []string{"run_command"}))
	if reg.filter == nil {
		t.Fatal("a filter with rules should be installed")
	}
}
