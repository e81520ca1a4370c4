package security

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"scaffai/internal/config"
	"scaffai/internal/domain"
	"scaffai/internal/metrics"
)

// ConfirmFunc asks the user a yes/no question.
type ConfirmFunc func(ctx context.Context, question string) (bool, error)

// AuditLogger is the interface for writing audit entries.
type AuditLogger interface {
	LogAudit(ctx context.Context, entry domain.AuditEntry) error
}

// Engine guards run_command with blacklist and confirm pattern matching.
// Anything not matched is allowed.
type Engine struct {
	cfg         config.SecurityConfig
	confirmFn   ConfirmFunc
	auditLogger AuditLogger
	logger      *slog.Logger

	blacklistRe []*regexp.Regexp
	confirmRe   []*regexp.Regexp
}

var _ domain.CommandGuard = (*Engine)(nil)

func NewEngine(cfg config.SecurityConfig, confirmFn ConfirmFunc, auditLogger AuditLogger, logger *slog.Logger) (*Engine, error) {
	e := &Engine{
		cfg:         cfg,
		confirmFn:   confirmFn,
		auditLogger: auditLogger,
		logger:      logger,
	}

	var err error
	e.blacklistRe, err = compilePatterns(cfg.Blacklist)
	if err != nil {
		return nil, fmt.Errorf("invalid blacklist pattern: %w", err)
	}

	e.confirmRe, err = compilePatterns(cfg.ConfirmPatterns)
	if err != nil {
		return nil, fmt.Errorf("invalid confirm pattern: %w", err)
	}

	return e, nil
}

func (e *Engine) Check(ctx context.Context, toolName string, command string) (domain.SecurityAction, error) {
	cmd := strings.TrimSpace(command)

	if !e.cfg.Enabled {
		e.logAction(ctx, "tool_exec", toolName, cmd, "allowed", "security disabled")
		return domain.ActionAllow, nil
	}

	for _, re := range e.blacklistRe {
		if re.MatchString(cmd) {
			e.logger.Warn("command BLOCKED by blacklist",
				"tool", toolName,
				"command", cmd,
				"pattern", re.String(),
			)
			metrics.SecurityBlocks.Inc()
			e.logAction(ctx, "command_blocked", toolName, cmd, "blocked", "blacklist match: "+re.String())
			return domain.ActionBlock, nil
		}
	}

	for _, re := range e.confirmRe {
		if re.MatchString(cmd) {
			e.logger.Info("command requires confirmation",
				"tool", toolName,
				"command", cmd,
			)
			return domain.ActionConfirm, nil
		}
	}

	e.logAction(ctx, "tool_exec", toolName, cmd, "allowed", "no pattern matched")
	return domain.ActionAllow, nil
}

func (e *Engine) RequestConfirmation(ctx context.Context, toolName string, command string) (bool, error) {
	if e.confirmFn == nil {
		// Nobody to ask.
		e.logAction(ctx, "confirm_no", toolName, command, "denied", "no confirmation handler")
		return false, nil
	}

	question := fmt.Sprintf("🔒 The agent wants to run: %s\nAllow this command", command)
	confirmed, err := e.confirmFn(ctx, question)
	if err != nil {
		e.logAction(ctx, "confirm_no", toolName, command, "denied", "confirmation error: "+err.Error())
		return false, err
	}

	if confirmed {
		e.logAction(ctx, "confirm_yes", toolName, command, "confirmed", "user confirmed")
	} else {
		e.logAction(ctx, "confirm_no", toolName, command, "denied", "user denied")
	}

	return confirmed, nil
}

func (e *Engine) logAction(ctx context.Context, action, toolName, command, result, details string) {
	if !e.cfg.AuditLog || e.auditLogger == nil {
		return
	}
	err := e.auditLogger.LogAudit(ctx, domain.AuditEntry{
		Action:   action,
		ToolName: toolName,
		Command:  command,
		Result:   result,
		Details:  details,
	})
	if err != nil {
		e.logger.Warn("audit write failed", "action", action, "err", err)
	}
}

// Simple strings are converted to case-insensitive substring patterns.
func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		var re *regexp.Regexp
		var err error
		if isRegex(p) {
			re, err = regexp.Compile(p)
		} else {
			re, err = regexp.Compile(`(?i)` + regexp.QuoteMeta(p))
		}
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func isRegex(s string) bool {
	for _, c := range s {
		switch c {
		case '(', ')', '[', ']', '{', '}', '|', '^', '$', '*', '+', '?', '\\':
			return true
		}
	}
	return false
}
