package instrumentation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

// auditRecord renders ti through an AuditLogger and decodes the JSON line.
func auditRecord(t *testing.T, ti *ToolInvocation) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil))).LogToolInvocation(context.Background(), ti)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("audit record is not JSON: %v\n%s", err, buf.String())
	}
	return record
}

func TestToolInvocation_Outcome(t *testing.T) {
	tests := []struct {
		name        string
		complete    func(*ToolInvocation)
		wantSuccess bool
		wantStatus  string
		wantError   string
	}{
		{
			name:        "success",
			complete:    func(ti *ToolInvocation) { ti.CompleteSuccess() },
			wantSuccess: true,
			wantStatus:  StatusSuccess,
		},
		{
			name:       "error",
			complete:   func(ti *ToolInvocation) { ti.CompleteWithError(errors.New("kubectl not found")) },
			wantStatus: StatusError,
			wantError:  "kubectl not found",
		},
		{
			name:       "failure without error value",
			complete:   func(ti *ToolInvocation) { ti.Complete(false, nil) },
			wantStatus: StatusError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ti := NewToolInvocation("run_kubectl_command")
			if ti.StartTime.IsZero() {
				t.Fatal("StartTime not set")
			}
			tt.complete(ti)

			if ti.Success != tt.wantSuccess {
				t.Errorf("Success = %v, want %v", ti.Success, tt.wantSuccess)
			}
			if ti.Status() != tt.wantStatus {
				t.Errorf("Status() = %q, want %q", ti.Status(), tt.wantStatus)
			}
			if ti.Error != tt.wantError {
				t.Errorf("Error = %q, want %q", ti.Error, tt.wantError)
			}
			if ti.Duration < 0 {
				t.Errorf("Duration = %v", ti.Duration)
			}
		})
	}
}

func TestToolInvocation_Recorders(t *testing.T) {
	ti := NewToolInvocation("run_kubectl_command_ro").
		WithKubeContext("staging-eu").
		WithCommand([]string{"kubectl", "--token=s3cret", "get", "pods"}).
		WithVerb("get", "").
		WithDecision(true)

	if strings.Contains(ti.Command, "s3cret") {
		t.Errorf("Command leaks token: %q", ti.Command)
	}
	if ti.Decision != DecisionAllowed {
		t.Errorf("Decision = %q", ti.Decision)
	}
	if ti.ClusterType() != string(ClusterTypeStaging) {
		t.Errorf("ClusterType() = %q", ti.ClusterType())
	}
	if ti.Executed {
		t.Error("Executed set before an exit code was recorded")
	}

	ti.WithDecision(false).WithExitCode(0)
	if ti.Decision != DecisionDenied || !ti.Executed {
		t.Errorf("got decision %q executed %v", ti.Decision, ti.Executed)
	}
}

func TestAuditLogger_SuccessRecord(t *testing.T) {
	ti := NewToolInvocation("run_kubectl_command").
		WithKubeContext("prod-wc-01").
		WithCommand([]string{"kubectl", "config", "view"}).
		WithVerb("config", "view").
		WithExitCode(0).
		CompleteSuccess()
	ti.TraceID, ti.SpanID = "abc123def456", "span789"

	record := auditRecord(t, ti)

	want := map[string]any{
		"level":        "INFO",
		"msg":          "tool_invocation",
		"audit":        true,
		"tool":         "run_kubectl_command",
		"kube_context": "prod-wc-01",
		"cluster_type": "production",
		"command":      "kubectl config view",
		"verb":         "config",
		"sub_verb":     "view",
		"exit_code":    float64(0),
		"success":      true,
		"trace_id":     "abc123def456",
		"span_id":      "span789",
	}
	for key, value := range want {
		if record[key] != value {
			t.Errorf("%s = %v, want %v", key, record[key], value)
		}
	}
	for _, absent := range []string{"decision", "error"} {
		if _, ok := record[absent]; ok {
			t.Errorf("%s should be absent, got %v", absent, record[absent])
		}
	}
}

func TestAuditLogger_DeniedRecord(t *testing.T) {
	ti := NewToolInvocation("run_kubectl_command_ro").
		WithKubeContext("dev-cluster").
		WithDecision(false).
		CompleteWithError(errors.New("Delete operation denied"))

	record := auditRecord(t, ti)

	if record["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", record["level"])
	}
	if record["decision"] != DecisionDenied {
		t.Errorf("decision = %v", record["decision"])
	}
	if record["error"] != "Delete operation denied" {
		t.Errorf("error = %v", record["error"])
	}
	if _, ok := record["exit_code"]; ok {
		t.Error("exit_code should be absent when kubectl never ran")
	}
}

func TestNewAuditLogger_NilUsesDefault(t *testing.T) {
	if NewAuditLogger(nil).logger != slog.Default() {
		t.Error("nil logger should fall back to slog.Default()")
	}
}

func TestToolInvocation_WithSpanContext(t *testing.T) {
	ti := NewToolInvocation("list_clusters").WithSpanContext(context.Background())
	if ti.TraceID != "" || ti.SpanID != "" {
		t.Errorf("expected no IDs without a span, got %q/%q", ti.TraceID, ti.SpanID)
	}

	ctx, span, _ := createTestSpanContext()
	defer span.End()

	ti = NewToolInvocation("list_clusters").WithSpanContext(ctx)
	if ti.TraceID != span.SpanContext().TraceID().String() || ti.SpanID == "" {
		t.Errorf("got trace %q span %q", ti.TraceID, ti.SpanID)
	}
}
