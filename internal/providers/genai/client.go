// Package genai is a thin client for the Gemini generateContent API, scoped
// to single-image editing: one inline image part plus one instruction text
// part in, the first inline image part of the first candidate out.
package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"headshot/internal/domain"
)

// DefaultBaseURL is the public Gemini API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// DefaultModel is the image-editing model used when none is configured.
const DefaultModel = "gemini-2.5-flash-image-preview"

// Options controls how the client is configured. Callers may leave HTTPClient
// nil; a reusable one with the transport's own timeout is created. The core
// enforces no timeout of its own.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// Client talks to one Gemini model. Construct it per attempt (see
// headshot.Service); a missing API key then fails only that attempt.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client. An absent API key is reported here,
// before any network attempt, as domain.ErrMissingCredential.
func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY is not set", domain.ErrMissingCredential)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := opts.Model
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// EditImage sends src with the given instruction and returns the generated
// image. The request carries exactly two parts: the inline image bytes and
// the instruction text. The response is consulted order-dependently: the
// first inline image part of the first candidate wins, any text parts and
// further candidates are ignored. A well-formed response without a usable
// image is domain.ErrNoImageProduced; transport and service failures are
// domain.ErrProviderFailure with the message passed through.
func (c *Client) EditImage(ctx context.Context, src *domain.EncodedImage, instruction string) (*domain.EncodedImage, error) {
	if src == nil || len(src.Data) == 0 {
		return nil, domain.ErrNoSourceImage
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{
			{
				Role: "user",
				Parts: []geminiPart{
					{InlineData: &geminiInlineData{
						MimeType: src.MIME,
						Data:     base64.StdEncoding.EncodeToString(src.Data),
					}},
					{Text: instruction},
				},
			},
		},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}

	var response geminiGenerateContentResponse
	if err := c.invoke(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.model)), payload, &response); err != nil {
		return nil, err
	}

	if len(response.Candidates) == 0 {
		return nil, fmt.Errorf("%w: response has no candidates", domain.ErrNoImageProduced)
	}
	for _, part := range response.Candidates[0].Content.Parts {
		if part.InlineData == nil || part.InlineData.Data == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: decode inline data: %v", domain.ErrProviderFailure, err)
		}
		mime := part.InlineData.MimeType
		if mime == "" {
			mime = "image/png"
		}
		return &domain.EncodedImage{Data: data, MIME: mime}, nil
	}
	return nil, fmt.Errorf("%w: candidate contains no inline image", domain.ErrNoImageProduced)
}

func (c *Client) invoke(ctx context.Context, path string, payload any, out any) error {
	endpoint := c.baseURL + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr geminiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("%w: gemini status %d: %s", domain.ErrProviderFailure, resp.StatusCode, apiErr.Error.Message)
		}
		data, _ := io.ReadAll(resp.Body)
		if len(data) > 0 {
			return fmt.Errorf("%w: gemini status %d: %s", domain.ErrProviderFailure, resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("%w: gemini status %d", domain.ErrProviderFailure, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode gemini response: %v", domain.ErrProviderFailure, err)
	}
	return nil
}
