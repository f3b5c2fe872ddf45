package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/socgate/socgate/internal/inference"
)

// DefaultBaseURL is the Hugging Face router, which speaks the OpenAI chat API.
const DefaultBaseURL = "https://router.huggingface.co/v1"

// openAIProvider implements Provider for OpenAI-compatible Chat Completions endpoints.
type openAIProvider struct {
	baseURL          string
	timeout          time.Duration
	client           *http.Client
	maxResponseBytes int64
}

// NewOpenAI creates a provider for an OpenAI-compatible endpoint.
// timeout applies to requests that do not carry their own.
func NewOpenAI(baseURL string, timeout time.Duration, maxResponseBytes int64) Provider {
	return NewOpenAIWithClient(baseURL, timeout, maxResponseBytes, &http.Client{})
}

// NewOpenAIWithClient is NewOpenAI with a caller-supplied HTTP client.
func NewOpenAIWithClient(baseURL string, timeout time.Duration, maxResponseBytes int64, client *http.Client) Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxResponseBytes <= 0 {
		maxResponseBytes = 4 * 1024 * 1024
	}
	if client == nil {
		client = &http.Client{}
	}

	return &openAIProvider{
		baseURL:          strings.TrimSuffix(baseURL, "/"),
		timeout:          timeout,
		maxResponseBytes: maxResponseBytes,
		client:           client,
	}
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens"`
	Stream      bool                `json:"stream"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []openAIChatChoice `json:"choices"`
	Usage   openAIChatUsage    `json:"usage"`
}

type openAIChatChoice struct {
	Message *struct {
		Role    string  `json:"role"`
		Content *string `json:"content"`
	} `json:"message"`
}

type openAIChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (p *openAIProvider) ChatCompletion(ctx context.Context, req *inference.Request) (*inference.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil inference request")
	}

	oaiReq := openAIChatRequest{
		Model:       req.Model,
		Messages:    make([]openAIChatMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      false,
	}
	for _, m := range req.Messages {
		oaiReq.Messages = append(oaiReq.Messages, openAIChatMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	body, err := json.Marshal(oaiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = p.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		p.baseURL+"/chat/completions",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.Credential)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, ErrorBodyLimit+1))
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Body:       truncate(string(respBody), ErrorBodyLimit),
		}
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, p.maxResponseBytes+1))
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	if int64(len(respBody)) > p.maxResponseBytes {
		return fallbackResponse(respBody[:p.maxResponseBytes]), nil
	}

	var oaiResp openAIChatResponse
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		return fallbackResponse(respBody), nil
	}
	if len(oaiResp.Choices) == 0 || oaiResp.Choices[0].Message == nil || oaiResp.Choices[0].Message.Content == nil {
		return fallbackResponse(respBody), nil
	}

	first := oaiResp.Choices[0].Message
	role := first.Role
	if role == "" {
		role = inference.RoleAssistant
	}

	return &inference.Response{
		Message: inference.Message{
			Role:    role,
			Content: *first.Content,
		},
		Usage: inference.Usage{
			PromptTokens:     oaiResp.Usage.PromptTokens,
			CompletionTokens: oaiResp.Usage.CompletionTokens,
			TotalTokens:      oaiResp.Usage.TotalTokens,
		},
	}, nil
}

// fallbackResponse wraps an unexpected 2xx payload as displayable text.
func fallbackResponse(raw []byte) *inference.Response {
	text := string(raw)
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err == nil {
		text = compact.String()
	}
	text = truncate(text, FallbackLimit)
	if strings.TrimSpace(text) == "" {
		text = "(empty upstream response)"
	}
	return &inference.Response{
		Message: inference.Message{
			Role:    inference.RoleAssistant,
			Content: text,
		},
		Fallback: true,
	}
}
