package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/giantswarm/mcp-kubectl/internal/logging"
)

// ToolInvocation captures one MCP tool call for audit logging. The
// command line is stored with credential values already masked.
type ToolInvocation struct {
	Tool        string
	KubeContext string

	// Command is the command line with credential flags masked.
	Command string
	Verb    string
	SubVerb string

	// Decision is "allowed" or "denied" when the read-only policy was
	// consulted, empty otherwise.
	Decision string

	// ExitCode is only meaningful when Executed is true.
	ExitCode int
	Executed bool

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation starts timing a tool invocation.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithKubeContext records the context the call targeted.
func (ti *ToolInvocation) WithKubeContext(name string) *ToolInvocation {
	ti.KubeContext = name
	return ti
}

// WithCommand records the command tokens, masking credentials.
func (ti *ToolInvocation) WithCommand(tokens []string) *ToolInvocation {
	ti.Command = logging.RedactCommand(tokens)
	return ti
}

// WithVerb records the kubectl verb and sub-verb.
func (ti *ToolInvocation) WithVerb(verb, subVerb string) *ToolInvocation {
	ti.Verb = verb
	ti.SubVerb = subVerb
	return ti
}

// WithDecision records the read-only policy decision.
func (ti *ToolInvocation) WithDecision(allowed bool) *ToolInvocation {
	if allowed {
		ti.Decision = DecisionAllowed
	} else {
		ti.Decision = DecisionDenied
	}
	return ti
}

// WithExitCode records the kubectl exit code.
func (ti *ToolInvocation) WithExitCode(code int) *ToolInvocation {
	ti.ExitCode = code
	ti.Executed = true
	return ti
}

// WithSpanContext copies trace and span IDs from ctx.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	ti.TraceID, ti.SpanID = spanIDs(ctx)
	return ti
}

// CompleteSuccess marks the invocation as successful.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	return ti.Complete(true, nil)
}

// CompleteWithError marks the invocation as failed.
func (ti *ToolInvocation) CompleteWithError(err error) *ToolInvocation {
	return ti.Complete(false, err)
}

// Complete stops the timer and records the outcome.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// Status returns the metric status label for the invocation.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// ClusterType returns the classified type of the targeted context.
func (ti *ToolInvocation) ClusterType() string {
	return ClassifyClusterName(ti.KubeContext)
}

// LogAuditAttrs returns the audit record. Optional fields are left out
// when they were never recorded.
func (ti *ToolInvocation) LogAuditAttrs() []slog.Attr {
	attrs := []slog.Attr{
		logging.Tool(ti.Tool),
		logging.KubeContext(ti.KubeContext),
		slog.String("cluster_type", ti.ClusterType()),
		logging.Duration(ti.Duration),
		slog.Bool("success", ti.Success),
	}
	optional := func(key, value string) {
		if value != "" {
			attrs = append(attrs, slog.String(key, value))
		}
	}
	optional(logging.KeyCommand, ti.Command)
	optional(logging.KeyVerb, ti.Verb)
	optional(logging.KeySubVerb, ti.SubVerb)
	optional(logging.KeyDecision, ti.Decision)
	if ti.Executed {
		attrs = append(attrs, logging.ExitCode(ti.ExitCode))
	}
	optional(logging.KeyError, ti.Error)
	optional("trace_id", ti.TraceID)
	optional("span_id", ti.SpanID)
	return attrs
}

// AuditLogger writes tool invocation audit records.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger returns an AuditLogger writing to logger, or to
// slog.Default() when logger is nil.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger}
}

// LogToolInvocation writes one audit record for ti.
func (al *AuditLogger) LogToolInvocation(ctx context.Context, ti *ToolInvocation) {
	level := slog.LevelInfo
	if !ti.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "tool_invocation",
		append([]slog.Attr{slog.Bool("audit", true)}, ti.LogAuditAttrs()...)...)
}
