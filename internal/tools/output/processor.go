package output

import "log/slog"

// Result is processed kubectl output.
type Result struct {
	// Text is the output to return to the caller, including any notice.
	Text string
	// Truncation is set when the output was cut.
	Truncation *TruncationWarning
	// SecretsMasked reports whether Secret data was redacted.
	SecretsMasked bool
}

// Processor masks and caps kubectl stdout.
type Processor struct {
	config Config
	logger *slog.Logger
}

// NewProcessor returns a Processor using config with out-of-range caps
// fixed up. A nil logger means slog.Default().
func NewProcessor(config Config, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{config: config.normalized(), logger: logger}
}

func (p *Processor) Config() Config { return p.config }

// Process masks Secrets (when enabled) and applies the size cap to the
// stdout of a kubectl command run with args. Masking happens first so a
// truncated document never leaks data the mask would have removed.
func (p *Processor) Process(stdout string, args []string) *Result {
	result := &Result{Text: stdout}

	if p.config.MaskSecrets {
		masked, changed, err := MaskDocument(stdout, DetectFormat(args))
		if err != nil {
			// kubectl printed something else, such as a warning preamble.
			p.logger.Debug("output not masked", slog.String("error", err.Error()))
		} else {
			result.Text = masked
			result.SecretsMasked = changed
		}
	}

	text, warning := TruncateText(result.Text, p.config.MaxBytes)
	if warning != nil {
		result.Text = text + "\n[" + warning.Message + "]"
		result.Truncation = warning
	}

	return result
}
