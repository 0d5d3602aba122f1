package kubectl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr error
	}{
		{name: "simple", input: "kubectl get pods", want: []string{"kubectl", "get", "pods"}},
		{name: "extra whitespace", input: "  kubectl \t get\npods  ", want: []string{"kubectl", "get", "pods"}},
		{name: "empty", input: "", want: nil},
		{name: "double quoted token", input: `kubectl get pods -l "app=my app"`, want: []string{"kubectl", "get", "pods", "-l", "app=my app"}},
		{name: "single quoted token", input: `kubectl get pods -o 'jsonpath={.items[*].metadata.name}'`, want: []string{"kubectl", "get", "pods", "-o", "jsonpath={.items[*].metadata.name}"}},
		{name: "quote inside token concatenates", input: `kubectl get pods -o='wide'`, want: []string{"kubectl", "get", "pods", "-o=wide"}},
		{name: "other quote kind is literal", input: `kubectl get "it's"`, want: []string{"kubectl", "get", "it's"}},
		{name: "empty quoted token", input: `kubectl get ''`, want: []string{"kubectl", "get", ""}},
		{name: "shell metacharacters are literal", input: "kubectl get pods; rm -rf /", want: []string{"kubectl", "get", "pods;", "rm", "-rf", "/"}},
		{name: "pipe is literal", input: "kubectl get pods|sh", want: []string{"kubectl", "get", "pods|sh"}},
		{name: "unterminated double quote", input: `kubectl get "pods`, wantErr: ErrUnterminatedQuote},
		{name: "unterminated single quote", input: `kubectl get 'pods`, wantErr: ErrUnterminatedQuote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tokenize(tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse(t *testing.T) {
	t.Run("valid command", func(t *testing.T) {
		cmd, err := Parse("  kubectl config view  ")
		require.NoError(t, err)
		assert.Equal(t, "  kubectl config view  ", cmd.Raw)
		assert.Equal(t, []string{"kubectl", "config", "view"}, cmd.Tokens)
		assert.Equal(t, []string{"config", "view"}, cmd.Args())
		assert.Equal(t, "config", cmd.Verb())
		assert.Equal(t, "view", cmd.SubVerb())
	})

	t.Run("program only", func(t *testing.T) {
		cmd, err := Parse("kubectl")
		require.NoError(t, err)
		assert.Empty(t, cmd.Args())
		assert.Equal(t, "", cmd.Verb())
		assert.Equal(t, "", cmd.SubVerb())
	})

	malformed := map[string]string{
		"empty":             "",
		"whitespace only":   "   ",
		"other program":     "ls -la",
		"prefix match only": "kubectl-foo get pods",
		"quoted program":    `"kubectl get" pods`,
		"unterminated":      `kubectl get "pods`,
		"uppercase program": "KUBECTL get pods",
	}
	for name, input := range malformed {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(input)
			assert.ErrorIs(t, err, ErrMalformedCommand)
		})
	}
}

func TestCommand_ArgsIsCopy(t *testing.T) {
	cmd, err := Parse("kubectl get pods")
	require.NoError(t, err)

	args := cmd.Args()
	args[0] = "delete"

	assert.Equal(t, "get", cmd.Verb())
}

func TestCommand_HasContextFlag(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"kubectl get pods", false},
		{"kubectl get pods --context prod", true},
		{"kubectl --context=prod get pods", true},
		{"kubectl get pods --contexts=prod", false},
		{"kubectl exec pod -- kubectl --context=prod get pods", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cmd, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cmd.HasContextFlag())
		})
	}
}
