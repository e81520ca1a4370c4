package tool

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/*.schema.json
var schemaFS embed.FS

var (
	schemaMu sync.Mutex
	schemas  = map[string]*jsonschema.Schema{}
	printer  = message.NewPrinter(language.English)
)

// compileSchema compiles an embedded schema once and caches it.
func compileSchema(name string) (*jsonschema.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if s, ok := schemas[name]; ok {
		return s, nil
	}

	data, err := schemaFS.ReadFile("schema/" + name)
	if err != nil {
		return nil, fmt.Errorf("reading schema %s: %w", name, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshaling schema %s: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		return nil, fmt.Errorf("adding schema resource: %w", err)
	}
	s, err := c.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", name, err)
	}
	schemas[name] = s
	return s, nil
}

// validateJSON parses input and checks it against the named schema. The
// returned error reads as a short human sentence naming the problem.
func validateJSON(schemaName, input string) error {
	s, err := compileSchema(schemaName)
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(input))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := s.Validate(inst); err != nil {
		ve, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return err
		}
		return fmt.Errorf("%s", strings.Join(leafMessages(ve), "; "))
	}
	return nil
}

func leafMessages(ve *jsonschema.ValidationError) []string {
	if len(ve.Causes) == 0 {
		var msgs []string
		switch k := ve.ErrorKind.(type) {
		case *kind.Required:
			for _, field := range k.Missing {
				msgs = append(msgs, printer.Sprintf("missing required field %q", field))
			}
		case nil:
			msgs = []string{ve.Error()}
		default:
			msgs = []string{k.LocalizedString(printer)}
		}
		if len(ve.InstanceLocation) > 0 {
			prefix := strings.Join(ve.InstanceLocation, "/") + ": "
			for i := range msgs {
				msgs[i] = prefix + msgs[i]
			}
		}
		return msgs
	}
	var out []string
	for _, c := range ve.Causes {
		out = append(out, leafMessages(c)...)
	}
	return out
}
