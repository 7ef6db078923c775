// recovery-companion-system/services/llm_client.go
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// ChatMessage is one ordered, role-tagged message in a reflection conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "companion"
	Content string `json:"content"`
}

// ReflectionReply is the text continuation returned to the caller. Fallback is
// true when the backend failed and the static reply was served instead.
type ReflectionReply struct {
	Content          string `json:"content"`
	Fallback         bool   `json:"fallback"`
	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
}

// LLMClient talks to an Ollama-compatible text-completion backend. The decision
// core never depends on it — risk and recommendation messages are static
// templates; this client only serves the free-form reflection surface.
type LLMClient struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

const reflectionSystemPrompt = `You are a compassionate companion for recovery-focused interactive journaling.

Your role:
- Provide empathetic, non-judgmental support
- Encourage self-reflection and exploration
- Keep responses concise (1-3 sentences)
- Use warm, supportive language

Guidelines:
- Never give medical advice
- Encourage professional help when needed
- If the user expresses self-harm or severe distress, point to crisis resources immediately.`

// FallbackReply is served whenever the backend is unreachable, slow or broken.
const FallbackReply = "I'm here with you. Take a moment to breathe — your words are saved, and we can continue whenever you're ready."

func NewLLMClient(baseURL, model string) *LLMClient {
	return &LLMClient{
		BaseURL: baseURL,
		Model:   model,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IsAvailable pings the backend's model listing endpoint.
func (c *LLMClient) IsAvailable() bool {
	resp, err := c.Client.Get(fmt.Sprintf("%s/api/tags", c.BaseURL))
	if err != nil {
		log.Printf("[LLM] backend not available: %v", err)
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// GenerateReply produces one short text continuation for the conversation.
// It never returns an error: any failure yields the static fallback reply.
func (c *LLMClient) GenerateReply(messages []ChatMessage, context string) ReflectionReply {
	url := fmt.Sprintf("%s/api/generate", c.BaseURL)

	reqBody := map[string]interface{}{
		"model":  c.Model,
		"prompt": buildPrompt(messages, context),
		"stream": false,
	}
	jsonData, _ := json.Marshal(reqBody)

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return ReflectionReply{Content: FallbackReply, Fallback: true}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		log.Printf("[LLM] generate request failed: %v", err)
		return ReflectionReply{Content: FallbackReply, Fallback: true}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Printf("[LLM] backend returned %d: %s", resp.StatusCode, string(body))
		return ReflectionReply{Content: FallbackReply, Fallback: true}
	}

	var out struct {
		Response        string `json:"response"`
		PromptEvalCount int    `json:"prompt_eval_count"`
		EvalCount       int    `json:"eval_count"`
	}
	if err := json.Unmarshal(body, &out); err != nil || strings.TrimSpace(out.Response) == "" {
		log.Printf("[LLM] unusable backend response: %v", err)
		return ReflectionReply{Content: FallbackReply, Fallback: true}
	}

	return ReflectionReply{
		Content:          strings.TrimSpace(out.Response),
		PromptTokens:     out.PromptEvalCount,
		CompletionTokens: out.EvalCount,
	}
}

func buildPrompt(messages []ChatMessage, context string) string {
	var b strings.Builder
	b.WriteString(reflectionSystemPrompt)
	b.WriteString("\n\n")

	if context != "" {
		fmt.Fprintf(&b, "Context: %s\n\n", context)
	}

	b.WriteString("Conversation History:\n")
	for _, m := range messages {
		role := "Companion"
		if m.Role == "user" {
			role = "User"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, m.Content)
	}
	b.WriteString("\nCompanion:")
	return b.String()
}
