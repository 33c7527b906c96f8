// Package assistant classifies user messages with an OpenAI-compatible chat
// completions API.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tazhate/remindbot/internal/domain"
)

const (
	DefaultBaseURL = "https://api.vsegpt.ru/v1"
	DefaultModel   = "openai/gpt-4o-mini"

	historyUsers    = 1000
	historyMessages = 20
	temperature     = 0.7
	maxTokens       = 3000
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one user message to classify.
type Request struct {
	UserID int64
	Text   string
	// Now is the current time in the user's zone.
	Now        time.Time
	Addressing string
	Tone       string
}

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client

	// mu serializes read-modify-write of a user's history.
	mu      sync.Mutex
	history *lru.Cache[int64, []Message]
}

func NewClient(baseURL, apiKey, model string) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	history, err := lru.New[int64, []Message](historyUsers)
	if err != nil {
		return nil, fmt.Errorf("create history cache: %w", err)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		history:    history,
	}, nil
}

// Classify sends the message with the user's recent history and parses the
// reply into an intent.
func (c *Client) Classify(ctx context.Context, req Request) (*Intent, error) {
	reply, err := c.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	return ParseIntent(reply), nil
}

// Complete returns the raw model reply and records the exchange in history.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	user := Message{Role: "user", Content: req.Text}
	past, _ := c.history.Get(req.UserID)

	messages := make([]Message, 0, len(past)+2)
	messages = append(messages, Message{Role: "system", Content: buildSystemPrompt(req.Now, req.Addressing, req.Tone)})
	messages = append(messages, past...)
	messages = append(messages, user)

	reply, err := c.chat(ctx, messages)
	if err != nil {
		return "", err
	}

	c.remember(req.UserID, user, Message{Role: "assistant", Content: reply})
	return reply, nil
}

func (c *Client) remember(userID int64, msgs ...Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	past, _ := c.history.Get(userID)
	next := append(append([]Message(nil), past...), msgs...)
	if len(next) > historyMessages {
		next = next[len(next)-historyMessages:]
	}
	c.history.Add(userID, next)
}

// Reset forgets the user's conversation.
func (c *Client) Reset(userID int64) {
	c.history.Remove(userID)
}

func (c *Client) chat(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": temperature,
		"max_tokens":  maxTokens,
		"n":           1,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat completion: %v: %w", err, domain.ErrUpstream)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %v: %w", err, domain.ErrUpstream)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("chat completion: status %d: %s: %w", resp.StatusCode, truncate(string(respBody), 200), domain.ErrUpstream)
	}

	var out struct {
		Choices []struct {
			Message Message `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("decode response: %v: %w", err, domain.ErrUpstream)
	}
	if out.Error != nil {
		return "", fmt.Errorf("chat completion: %s: %w", out.Error.Message, domain.ErrUpstream)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("chat completion: empty reply: %w", domain.ErrUpstream)
	}
	return out.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
