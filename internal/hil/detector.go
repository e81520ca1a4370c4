package hil

import (
	"errors"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"scaffai/internal/store"
)

// Detector decides from an agent reply whether a follow-up question about
// field has to be asked.
type Detector interface {
	Needs(reply, field string) bool
}

// templateDetector is implemented by detectors that know more once the
// chosen template is known.
type templateDetector interface {
	ForTemplate(template string) Detector
}

// KeywordDetector reports a field as needed when the reply mentions it,
// ignoring case.
type KeywordDetector struct{}

func (KeywordDetector) Needs(reply, field string) bool {
	fold := cases.Fold()
	return strings.Contains(fold.String(reply), fold.String(field))
}

// MetaSource looks up rule metadata by template name.
type MetaSource interface {
	RuleMeta(name string) (*store.RuleMeta, error)
}

// RuleDetector answers from rules/<template>.yaml when the template declares
// its requirements, and falls back to keywords otherwise.
type RuleDetector struct {
	src    MetaSource
	logger *slog.Logger
}

func NewRuleDetector(src MetaSource, logger *slog.Logger) *RuleDetector {
	return &RuleDetector{src: src, logger: logger}
}

// Needs without a template has nothing to look up.
func (d *RuleDetector) Needs(reply, field string) bool {
	return KeywordDetector{}.Needs(reply, field)
}

func (d *RuleDetector) ForTemplate(template string) Detector {
	meta, err := d.src.RuleMeta(template)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			d.logger.Warn("rule metadata unreadable, using keywords", "template", template, "err", err)
		}
		return KeywordDetector{}
	}
	if len(meta.Requires) == 0 {
		return KeywordDetector{}
	}
	lower := cases.Lower(language.Und)
	req := make([]string, 0, len(meta.Requires))
	for _, r := range meta.Requires {
		req = append(req, lower.String(strings.TrimSpace(r)))
	}
	return declared(req)
}

// declared is the requirement list of one template.
type declared []string

func (d declared) Needs(_, field string) bool {
	return slices.Contains(d, cases.Lower(language.Und).String(field))
}

// NewDetector picks the detector named by hil.detector.
func NewDetector(kind string, src MetaSource, logger *slog.Logger) Detector {
	if kind == "rules" && src != nil {
		return NewRuleDetector(src, logger)
	}
	return KeywordDetector{}
}
