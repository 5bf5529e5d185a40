package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrCancelled is returned when Complete aborts because Options.Cancelled
// reported true.
var ErrCancelled = errors.New("Operation cancelled by user")

// Client performs chat/completions calls against a Descriptor's endpoint.
type Client struct {
	HTTP *http.Client
}

// NewClient returns a Client using http.DefaultClient.
func NewClient() *Client {
	return &Client{HTTP: http.DefaultClient}
}

// Complete sends prompt as a single user message to d's endpoint and
// returns the concatenated Content chunks. Reasoning chunks are delivered
// to opts.OnChunk but never appended to the returned string.
func (c *Client) Complete(ctx context.Context, d Descriptor, prompt string, opts Options) (string, error) {
	if d.APIKey == "" {
		return "", errors.New("no API key configured for this model")
	}
	if !strings.Contains(d.Endpoint, "/chat/completions") {
		return "", fmt.Errorf("endpoint %q does not look like a chat/completions endpoint", d.Endpoint)
	}

	body := map[string]any{
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	if d.Model != "" {
		body["model"] = d.Model
	}
	for k, v := range d.Params {
		body[k] = v
	}

	stream, _ := body["stream"].(bool)

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.APIKey)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ErrCancelled
		}
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		if msg, ok := extractErrorMessage(data); ok {
			return "", errors.New(msg)
		}
		return "", fmt.Errorf("API error (HTTP %d): %s", resp.StatusCode, string(data))
	}

	if stream {
		return completeStreaming(resp.Body, opts)
	}
	return completeNonStreaming(resp.Body, opts)
}

type apiError struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func extractErrorMessage(data []byte) (string, bool) {
	var e apiError
	if err := json.Unmarshal(data, &e); err != nil {
		return "", false
	}
	if e.Error != nil && e.Error.Message != "" {
		return e.Error.Message, true
	}
	return "", false
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content          string `json:"content"`
			Reasoning        string `json:"reasoning"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func completeNonStreaming(body io.Reader, opts Options) (string, error) {
	if opts.Cancelled != nil && opts.Cancelled() {
		return "", ErrCancelled
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != nil && resp.Error.Message != "" {
		return "", errors.New(resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("No content received from streaming API")
	}

	if opts.Cancelled != nil && opts.Cancelled() {
		return "", ErrCancelled
	}
	msg := resp.Choices[0].Message
	if opts.OnChunk != nil && msg.Content != "" {
		opts.OnChunk(msg.Content, Content)
	}
	reasoning := msg.Reasoning
	if reasoning == "" {
		reasoning = msg.ReasoningContent
	}
	if opts.OnChunk != nil && reasoning != "" {
		opts.OnChunk(reasoning, Reasoning)
	}
	return msg.Content, nil
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			Reasoning        string `json:"reasoning"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// completeStreaming implements the line-buffer SSE state machine: for each
// "\n"-terminated line, strip "\r", detect the "data: " prefix, the
// "[DONE]" sentinel, and per-chunk delta.content / delta.reasoning fields.
func completeStreaming(body io.Reader, opts Options) (string, error) {
	var response strings.Builder
	reader := newLineReader(body)
	doneSeen := false

	for {
		if opts.Cancelled != nil && opts.Cancelled() {
			return "", ErrCancelled
		}

		line, atEOF, err := reader.readLine()
		if err != nil {
			return "", fmt.Errorf("read SSE stream: %w", err)
		}

		if line != "" {
			payload, ok := strings.CutPrefix(line, "data: ")
			if ok {
				if payload == "[DONE]" {
					doneSeen = true
					break
				}
				var chunk streamChunk
				if jerr := json.Unmarshal([]byte(payload), &chunk); jerr == nil {
					if chunk.Error != nil && chunk.Error.Message != "" {
						return "", errors.New(chunk.Error.Message)
					}
					if len(chunk.Choices) > 0 {
						delta := chunk.Choices[0].Delta
						if delta.Content != "" {
							response.WriteString(delta.Content)
							if opts.Cancelled != nil && opts.Cancelled() {
								return "", ErrCancelled
							}
							if opts.OnChunk != nil {
								opts.OnChunk(delta.Content, Content)
							}
						}
						reasoning := delta.Reasoning
						if reasoning == "" {
							reasoning = delta.ReasoningContent
						}
						if reasoning != "" {
							if opts.Cancelled != nil && opts.Cancelled() {
								return "", ErrCancelled
							}
							if opts.OnChunk != nil {
								opts.OnChunk(reasoning, Reasoning)
							}
						}
					}
				}
			}
		}

		if atEOF {
			if !doneSeen {
				if line != "" {
					if msg, ok := extractErrorMessage([]byte(line)); ok {
						return "", errors.New(msg)
					}
				}
				return "", errors.New("Incomplete SSE data received")
			}
			break
		}
	}

	if response.Len() == 0 {
		return "", errors.New("No content received from streaming API")
	}
	return response.String(), nil
}
