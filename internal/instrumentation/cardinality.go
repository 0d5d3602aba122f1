package instrumentation

import (
	"slices"
	"strings"
)

// Label values derived from user input go through the helpers below, so a
// client cannot grow metric series by inventing context names or verbs.

// ClusterType is the bounded label value recorded instead of a context name.
type ClusterType string

const (
	ClusterTypeProduction  ClusterType = "production"
	ClusterTypeStaging     ClusterType = "staging"
	ClusterTypeDevelopment ClusterType = "development"
	ClusterTypeCICD        ClusterType = "cicd"
	ClusterTypeOperations  ClusterType = "operations"
	ClusterTypeNone        ClusterType = "none"
	ClusterTypeOther       ClusterType = "other"
)

// clusterTypeRules are checked in order against the lower-cased name split
// on '-', '_', '.' and ':'. CI/CD and operations come first because their
// names often also carry "prod" or "dev".
var clusterTypeRules = []struct {
	clusterType ClusterType
	words       []string
	// substrings match anywhere in the name, e.g. "cicdprod".
	substrings []string
}{
	{ClusterTypeCICD, []string{"ci", "cicd"}, []string{"cicd"}},
	{ClusterTypeOperations, []string{"ops", "operations", "infra"}, []string{"operations"}},
	{ClusterTypeProduction, []string{"prod", "prd", "production", "live"}, []string{"production"}},
	{ClusterTypeStaging, []string{"staging", "stg", "stage", "uat"}, []string{"staging"}},
	{ClusterTypeDevelopment, []string{"dev", "development", "test", "demo", "sandbox", "kind", "minikube"}, []string{"development"}},
}

// ClassifyClusterName maps a kubeconfig context name onto a ClusterType.
//
//	ClassifyClusterName("")                   // "none"
//	ClassifyClusterName("prod-wc-01")         // "production"
//	ClassifyClusterName("gke_acme_eu_stg")    // "staging"
//	ClassifyClusterName("cicdprod")           // "cicd"
//	ClassifyClusterName("kind-kind")          // "development"
//	ClassifyClusterName("us-east-1-cluster")  // "other"
func ClassifyClusterName(name string) string {
	if name == "" {
		return string(ClusterTypeNone)
	}

	lower := strings.ToLower(name)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return r == '-' || r == '_' || r == '.' || r == ':' || r == '/'
	})

	for _, rule := range clusterTypeRules {
		for _, sub := range rule.substrings {
			if strings.Contains(lower, sub) {
				return string(rule.clusterType)
			}
		}
		for _, w := range words {
			if slices.Contains(rule.words, w) {
				return string(rule.clusterType)
			}
		}
	}
	return string(ClusterTypeOther)
}

// knownVerbs lists the kubectl top-level commands used as metric label values.
var knownVerbs = map[string]bool{
	"annotate": true, "api-resources": true, "api-versions": true, "apply": true,
	"attach": true, "auth": true, "autoscale": true, "certificate": true,
	"cluster-info": true, "completion": true, "config": true, "cordon": true,
	"cp": true, "create": true, "debug": true, "delete": true, "describe": true,
	"diff": true, "drain": true, "edit": true, "events": true, "exec": true,
	"explain": true, "expose": true, "get": true, "kustomize": true,
	"label": true, "logs": true, "patch": true, "plugin": true,
	"port-forward": true, "proxy": true, "replace": true, "rollout": true,
	"run": true, "scale": true, "set": true, "taint": true, "top": true,
	"uncordon": true, "version": true, "wait": true,
}

// VerbNone and VerbOther are the label values for missing and unknown verbs.
const (
	VerbNone  = "none"
	VerbOther = "other"
)

// NormalizeVerb maps a user-supplied kubectl verb onto a bounded set of label
// values: known kubectl commands pass through, everything else becomes "other".
//
// Example:
//
//	NormalizeVerb("get")            // "get"
//	NormalizeVerb("")               // "none"
//	NormalizeVerb("--context=prod") // "other"
//	NormalizeVerb("GET")            // "other"
func NormalizeVerb(verb string) string {
	if verb == "" {
		return VerbNone
	}
	if knownVerbs[verb] {
		return verb
	}
	return VerbOther
}
