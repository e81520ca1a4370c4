package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"scaffai/internal/store"
)

// Catalog is the store view used by the rules and snippets commands.
type Catalog interface {
	ListRules() ([]string, error)
	ListSnippets(language string) ([]store.Category, error)
	RuleMeta(name string) (*store.RuleMeta, error)
}

// PrintRules lists the rules with their description and declared
// requirements when a metadata file exists.
func PrintRules(w io.Writer, c Catalog) error {
	names, err := c.ListRules()
	if err != nil {
		return fmt.Errorf("list rules: %w", err)
	}
	if len(names) == 0 {
		fmt.Fprintln(w, "No rules found")
		return nil
	}
	for _, name := range names {
		meta, err := c.RuleMeta(name)
		if err != nil || meta == nil {
			fmt.Fprintln(w, name)
			continue
		}
		line := name
		if meta.Description != "" {
			line += ": " + meta.Description
		}
		if len(meta.Requires) > 0 {
			line += fmt.Sprintf(" (requires %s)", strings.Join(meta.Requires, ", "))
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// PrintSnippets lists the snippet categories of language.
func PrintSnippets(w io.Writer, c Catalog, language string) error {
	cats, err := c.ListSnippets(language)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fmt.Fprintf(w, "No snippets found for %s\n", language)
			return nil
		}
		return fmt.Errorf("list snippets: %w", err)
	}
	for _, cat := range cats {
		fmt.Fprintf(w, "%s: %s\n", cat.Name, strings.Join(cat.Snippets, ", "))
	}
	return nil
}
