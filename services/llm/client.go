package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
)

// Chat roles understood by every backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient defines the standard interface for any LLM backend.
type LLMClient interface {
	Chat(ctx context.Context, messages []datatypes.ChatMessage, params GenerationParams) (string, error)
}

// NewClient builds an LLMClient for the given backend type. Supported
// values are "openai", "claude"/"anthropic", and "ollama". An empty
// backendType defaults to "ollama".
func NewClient(backendType string) (LLMClient, error) {
	switch strings.ToLower(strings.TrimSpace(backendType)) {
	case "openai":
		return NewOpenAIClient()
	case "claude", "anthropic":
		return NewAnthropicClient()
	case "ollama", "":
		return NewOllamaClient()
	default:
		return nil, fmt.Errorf("unknown LLM backend type: %q", backendType)
	}
}

// readSecret loads a credential from env, falling back to a mounted
// container secret file.
func readSecret(envVar, secretPath string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	if content, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(content))
	}
	return ""
}
