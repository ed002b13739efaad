package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lataonhehe/data-contract-hackathon/config"
	"github.com/lataonhehe/data-contract-hackathon/pkg/apperr"
)

// systemPrompt instructs the model to answer with a single YAML data contract.
const systemPrompt = `You are an expert data architect specializing in machine-readable Data Contracts aligned with Data Mesh principles.

Given a user request describing a data-sharing agreement, generate a complete and valid YAML-formatted Data Contract containing at minimum:

- contract_id: a short identifier for the contract
- description: human-readable business context
- fields: a list of fields, each with name, type and description
- constraints: a list of rules, each with field and rule
- security: a block with encryption, access_control and retention_policy

Where useful, also include data quality rules (freshness, completeness, validity_checks), SLAs (availability, update_cadence, support) and versioning (version in MAJOR.MINOR.PATCH format, deprecation_policy, change_type).

Instructions:
- Only return valid YAML.
- Do not include explanations or comments.
- If any value is unknown, use the placeholder "<TBD>".`

// GenChunk is one unit of a streamed generation. Exactly one of the terminal
// states is set: Done with the full assembled text, or Err.
type GenChunk struct {
	Text        string
	Done        bool
	FullContent string
	Err         error
}

// Generator is the boundary to the external text-generation model.
type Generator interface {
	Invoke(ctx context.Context, request string) (string, error)
	InvokeStream(ctx context.Context, request string) (<-chan GenChunk, error)
}

// ModelClient calls an Anthropic-style messages API.
type ModelClient struct {
	config     *config.ModelConfig
	httpClient *http.Client
}

func NewModelClient(cfg *config.ModelConfig) *ModelClient {
	return &ModelClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // long timeout for model generation
		},
	}
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system"`
	Messages    []message `json:"messages"`
	Stream      bool      `json:"stream,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Type    string `json:"type"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// streamEvent is the union of the SSE payloads we care about.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *ModelClient) newRequest(ctx context.Context, request string, stream bool) (*http.Request, error) {
	body := messagesRequest{
		Model:       c.config.Model,
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
		System:      systemPrompt,
		Messages: []message{
			{Role: "user", Content: "User request: " + request},
		},
		Stream: stream,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.APIURL+"/v1/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-api-key", c.config.APIKey)
	req.Header.Set("anthropic-version", c.config.Version)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// Invoke issues one blocking generation call and returns the raw model text.
// No retry is performed; any transport or model-side error surfaces as a
// generation error.
func (c *ModelClient) Invoke(ctx context.Context, request string) (string, error) {
	req, err := c.newRequest(ctx, request, false)
	if err != nil {
		return "", apperr.Wrap(apperr.KindGeneration, err, "failed to build model request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.KindGeneration, err, "model call failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Wrap(apperr.KindGeneration, err, "failed to read model response")
	}

	// Check the status before decoding: error pages from intermediaries are
	// not guaranteed to be JSON.
	if resp.StatusCode != http.StatusOK {
		var result messagesResponse
		msg := fmt.Sprintf("model API returned status %d", resp.StatusCode)
		if json.Unmarshal(respBody, &result) == nil && result.Error.Message != "" {
			msg = result.Error.Message
		}
		return "", apperr.New(apperr.KindGeneration, "model API error: %s", msg)
	}

	var result messagesResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", apperr.Wrap(apperr.KindGeneration, err, "failed to parse model response")
	}
	if result.Type == "error" {
		return "", apperr.New(apperr.KindGeneration, "model API error: %s", result.Error.Message)
	}

	var sb strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", apperr.New(apperr.KindGeneration, "model returned empty response")
	}
	return sb.String(), nil
}

// InvokeStream issues a streaming generation call. Text deltas arrive on the
// returned channel as the model produces them; the terminal chunk carries the
// full assembled text or an error. Cancelling ctx abandons the stream.
func (c *ModelClient) InvokeStream(ctx context.Context, request string) (<-chan GenChunk, error) {
	req, err := c.newRequest(ctx, request, true)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGeneration, err, "failed to build model request")
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGeneration, err, "model call failed")
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		var result messagesResponse
		msg := fmt.Sprintf("model API returned status %d", resp.StatusCode)
		if json.Unmarshal(respBody, &result) == nil && result.Error.Message != "" {
			msg = result.Error.Message
		}
		return nil, apperr.New(apperr.KindGeneration, "model API error: %s", msg)
	}

	out := make(chan GenChunk)
	go c.consumeStream(ctx, resp.Body, out)
	return out, nil
}

func (c *ModelClient) consumeStream(ctx context.Context, body io.ReadCloser, out chan<- GenChunk) {
	defer close(out)
	defer body.Close()

	var full strings.Builder
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var ev streamEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			continue // skip unparseable keep-alive or unknown events
		}

		switch ev.Type {
		case "content_block_delta":
			if ev.Delta.Text == "" {
				continue
			}
			full.WriteString(ev.Delta.Text)
			select {
			case out <- GenChunk{Text: ev.Delta.Text}:
			case <-ctx.Done():
				return
			}
		case "message_stop":
			select {
			case out <- GenChunk{Done: true, FullContent: full.String()}:
			case <-ctx.Done():
			}
			return
		case "error":
			select {
			case out <- GenChunk{Err: apperr.New(apperr.KindGeneration, "model API error: %s", ev.Error.Message)}:
			case <-ctx.Done():
			}
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		select {
		case out <- GenChunk{Err: apperr.Wrap(apperr.KindGeneration, err, "model stream interrupted")}:
		case <-ctx.Done():
		}
		return
	}

	// Stream ended without an explicit message_stop; deliver what we have.
	if ctx.Err() == nil {
		select {
		case out <- GenChunk{Done: true, FullContent: full.String()}:
		case <-ctx.Done():
		}
	}
}
