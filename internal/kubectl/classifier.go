package kubectl

import (
	"fmt"
	"strings"
)

// Decision is the outcome of classifying a command against the read-only policy.
// The zero value is a denial. Reason is only set for denials.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Verb    string `json:"verb,omitempty"`
	SubVerb string `json:"sub_verb,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// readOnlyVerbs lists the top-level verbs allowed without further inspection.
var readOnlyVerbs = []string{
	"get",
	"describe",
	"explain",
	"version",
	"api-resources",
	"cluster-info",
}

// readOnlyConfigSubVerbs lists the "kubectl config" sub-verbs that only read.
var readOnlyConfigSubVerbs = []string{
	"view",
	"get-contexts",
}

// ReadOnlyVerbs returns the allowed read-only verbs, with the allowed
// "config" sub-commands spelled out.
func ReadOnlyVerbs() []string {
	verbs := make([]string, 0, len(readOnlyVerbs)+len(readOnlyConfigSubVerbs))
	verbs = append(verbs, readOnlyVerbs...)
	for _, sub := range readOnlyConfigSubVerbs {
		verbs = append(verbs, "config "+sub)
	}
	return verbs
}

// Classify decides whether command is an allowed read-only kubectl invocation.
// Anything that cannot be parsed is denied.
func Classify(command string) Decision {
	cmd, err := Parse(command)
	if err != nil {
		return Decision{Reason: err.Error()}
	}
	return ClassifyCommand(cmd)
}

// ClassifyCommand applies the read-only policy to an already parsed command.
func ClassifyCommand(cmd Command) Decision {
	if len(cmd.Tokens) == 0 || cmd.Tokens[0] != Program {
		return Decision{Reason: fmt.Sprintf("command must start with %q", Program)}
	}

	verb := cmd.Verb()
	d := Decision{Verb: verb}

	switch verb {
	case "":
		d.Reason = "no kubectl verb given"
	case "get", "describe", "explain", "version", "api-resources", "cluster-info":
		d.Allowed = true
	case "config":
		d.SubVerb = cmd.SubVerb()
		switch d.SubVerb {
		case "view", "get-contexts":
			d.Allowed = true
		case "":
			d.Reason = "config requires a sub-command; allowed: " + strings.Join(readOnlyConfigSubVerbs, ", ")
		default:
			d.Reason = fmt.Sprintf("config sub-command %q is not allowed in read-only mode", d.SubVerb)
		}
	default:
		d.Reason = fmt.Sprintf("verb %q is not allowed in read-only mode", verb)
	}

	return d
}
