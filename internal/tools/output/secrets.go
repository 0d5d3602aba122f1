package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// RedactedValue is the placeholder used for masked secret data.
const RedactedValue = "***REDACTED***"

// sensitiveAnnotations lists annotations that contain sensitive data.
var sensitiveAnnotations = map[string]bool{
	"kubernetes.io/service-account.uid":   true,
	"kubernetes.io/service-account.name":  true,
	"kubernetes.io/service-account-token": true,
	// kubectl apply stores the full manifest, including data, here.
	"kubectl.kubernetes.io/last-applied-configuration": true,
}

// MaskSecrets redacts Secret data in obj, descending into the items of List
// objects. It modifies obj in place and reports whether anything was masked.
func MaskSecrets(obj map[string]interface{}) bool {
	if obj == nil {
		return false
	}

	masked := false
	if IsSecretResource(obj) {
		maskSecretData(obj)
		masked = true
	}

	if items, ok := obj["items"].([]interface{}); ok {
		for _, item := range items {
			if m, ok := item.(map[string]interface{}); ok && MaskSecrets(m) {
				masked = true
			}
		}
	}

	return masked
}

// IsSecretResource checks if a resource is a Kubernetes Secret.
func IsSecretResource(obj map[string]interface{}) bool {
	if obj == nil {
		return false
	}

	kind, _ := obj["kind"].(string)
	return strings.EqualFold(kind, "Secret")
}

// maskSecretData masks the data and stringData fields of a Secret.
func maskSecretData(secret map[string]interface{}) {
	for _, field := range []string{"data", "stringData"} {
		data, ok := secret[field].(map[string]interface{})
		if !ok {
			continue
		}
		for key := range data {
			data[key] = RedactedValue
		}
	}

	// type stays visible (e.g. kubernetes.io/tls)
	maskSensitiveAnnotations(secret)
}

// maskSensitiveAnnotations masks known sensitive annotations.
func maskSensitiveAnnotations(obj map[string]interface{}) {
	metadata, ok := obj["metadata"].(map[string]interface{})
	if !ok {
		return
	}

	annotations, ok := metadata["annotations"].(map[string]interface{})
	if !ok {
		return
	}

	for key := range annotations {
		if sensitiveAnnotations[key] {
			annotations[key] = RedactedValue
		}
	}
}

// MaskDocument redacts Secret data in kubectl output of the given format.
// Output without Secrets is returned unchanged; text output is never touched.
func MaskDocument(text string, format Format) (string, bool, error) {
	switch format {
	case FormatJSON:
		return maskJSON(text)
	case FormatYAML:
		return maskYAML(text)
	default:
		return text, false, nil
	}
}

func maskJSON(text string) (string, bool, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return text, false, fmt.Errorf("decoding JSON output: %w", err)
	}
	if !MaskSecrets(obj) {
		return text, false, nil
	}

	// kubectl indents JSON with four spaces.
	out, err := json.MarshalIndent(obj, "", "    ")
	if err != nil {
		return text, false, fmt.Errorf("encoding JSON output: %w", err)
	}
	return string(out) + "\n", true, nil
}

func maskYAML(text string) (string, bool, error) {
	decoder := yaml.NewDecoder(strings.NewReader(text))

	var docs []map[string]interface{}
	masked := false
	for {
		var obj map[string]interface{}
		err := decoder.Decode(&obj)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return text, false, fmt.Errorf("decoding YAML output: %w", err)
		}
		if MaskSecrets(obj) {
			masked = true
		}
		docs = append(docs, obj)
	}
	if !masked {
		return text, false, nil
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	for _, doc := range docs {
		if err := encoder.Encode(doc); err != nil {
			return text, false, fmt.Errorf("encoding YAML output: %w", err)
		}
	}
	if err := encoder.Close(); err != nil {
		return text, false, fmt.Errorf("encoding YAML output: %w", err)
	}
	return buf.String(), true, nil
}
