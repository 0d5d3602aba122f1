package output

// Output size limits. kubectl output is returned to the model verbatim, so
// these bound how much of a context window one call can consume.
const (
	DefaultMaxBytes  = 1 << 20
	AbsoluteMaxBytes = 16 << 20
)

// Config controls how a Processor treats kubectl stdout. The zero value
// disables both the cap and masking.
type Config struct {
	// MaxBytes limits the stdout returned to the caller. Zero disables the cap.
	MaxBytes int
	// MaskSecrets replaces the data of Secret objects in JSON and YAML output
	// with RedactedValue.
	MaskSecrets bool
}

// DefaultConfig caps output at DefaultMaxBytes and leaves Secrets visible.
func DefaultConfig() Config {
	return Config{MaxBytes: DefaultMaxBytes}
}

// normalized maps a negative cap to the default and clamps the cap to
// AbsoluteMaxBytes.
func (c Config) normalized() Config {
	switch {
	case c.MaxBytes < 0:
		c.MaxBytes = DefaultMaxBytes
	case c.MaxBytes > AbsoluteMaxBytes:
		c.MaxBytes = AbsoluteMaxBytes
	}
	return c
}
