package output

import "strings"

// Format is the kubectl output format selected by -o/--output.
type Format string

// Output formats that matter for post-processing. Everything else is Text.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DetectFormat returns the output format selected in kubectl arguments.
// The last -o/--output flag wins, as in kubectl. Arguments after "--" are
// not inspected.
func DetectFormat(args []string) Format {
	format := FormatText
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}

		var value string
		switch {
		case arg == "-o" || arg == "--output":
			if i+1 < len(args) {
				i++
				value = args[i]
			}
		case strings.HasPrefix(arg, "--output="):
			value = strings.TrimPrefix(arg, "--output=")
		case strings.HasPrefix(arg, "-o="):
			value = strings.TrimPrefix(arg, "-o=")
		case strings.HasPrefix(arg, "-o") && len(arg) > 2:
			value = arg[2:]
		default:
			continue
		}

		switch value {
		case "json":
			format = FormatJSON
		case "yaml":
			format = FormatYAML
		default:
			format = FormatText
		}
	}
	return format
}
