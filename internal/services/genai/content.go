package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/invopop/jsonschema"

	"storyreel/internal/services"
)

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMimeType   string             `json:"responseMimeType,omitempty"`
	ResponseJSONSchema *jsonschema.Schema `json:"responseJsonSchema,omitempty"`
	ResponseModalities []string           `json:"responseModalities,omitempty"`
	ImageConfig        *imageConfig       `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	ImageSize   string `json:"imageSize,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func (r generateContentResponse) parts() []part {
	if len(r.Candidates) == 0 {
		return nil
	}
	return r.Candidates[0].Content.Parts
}

func (r generateContentResponse) describeEmpty() string {
	if r.PromptFeedback != nil && r.PromptFeedback.BlockReason != "" {
		return "blocked: " + r.PromptFeedback.BlockReason
	}
	if len(r.Candidates) > 0 && r.Candidates[0].FinishReason != "" {
		return "finish_reason=" + r.Candidates[0].FinishReason
	}
	return "empty candidates"
}

// Image is a generated still image.
type Image struct {
	Data     []byte
	MIMEType string
}

// ImageRequest describes a single still-image generation.
type ImageRequest struct {
	Model       string
	Prompt      string
	AspectRatio string
	Size        string
}

// SchemaFor derives the response JSON schema for the Go type of v.
func SchemaFor(v any) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(v)
	schema.Version = ""
	schema.ID = ""
	return schema
}

// GenerateJSON requests a structured completion and decodes it into target.
// The response schema is derived from target's type.
func (c *Client) GenerateJSON(ctx context.Context, model, prompt string, target any) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return services.Wrap(services.ErrValidation, "provider", "generate json", "prompt required", nil)
	}
	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMimeType:   "application/json",
			ResponseJSONSchema: SchemaFor(target),
		},
	}
	text, err := withRetry(ctx, c, "text", func(ctx context.Context) (string, error) {
		body, err := c.send(ctx, http.MethodPost, c.modelEndpoint(model, "generateContent"), "generate json", payload)
		if err != nil {
			return "", err
		}
		var resp generateContentResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", services.Wrap(services.ErrPermanent, "provider", "generate json", "decode response", err)
		}
		var builder strings.Builder
		for _, p := range resp.parts() {
			builder.WriteString(p.Text)
		}
		if strings.TrimSpace(builder.String()) == "" {
			return "", services.Wrap(services.ErrNoContent, "provider", "generate json", resp.describeEmpty(), nil)
		}
		return builder.String(), nil
	})
	if err != nil {
		return err
	}
	if err := DecodeJSON(text, target); err != nil {
		return services.Wrap(services.ErrPermanent, "provider", "generate json", "parse payload", err)
	}
	return nil
}

// GenerateImage requests exactly one image. A response without inline image
// data fails with ErrNoContent.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (Image, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return Image{}, services.Wrap(services.ErrValidation, "provider", "generate image", "prompt required", nil)
	}
	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.Prompt}}}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"IMAGE"},
			ImageConfig: &imageConfig{
				AspectRatio: req.AspectRatio,
				ImageSize:   req.Size,
			},
		},
	}
	return withRetry(ctx, c, "image", func(ctx context.Context) (Image, error) {
		body, err := c.send(ctx, http.MethodPost, c.modelEndpoint(req.Model, "generateContent"), "generate image", payload)
		if err != nil {
			return Image{}, err
		}
		var resp generateContentResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return Image{}, services.Wrap(services.ErrPermanent, "provider", "generate image", "decode response", err)
		}
		for _, p := range resp.parts() {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return Image{}, services.Wrap(services.ErrPermanent, "provider", "generate image", "decode image data", err)
			}
			mime := p.InlineData.MimeType
			if mime == "" {
				mime = "image/png"
			}
			return Image{Data: data, MIMEType: mime}, nil
		}
		return Image{}, services.Wrap(services.ErrNoContent, "provider", "generate image", "no image data ("+resp.describeEmpty()+")", nil)
	})
}

// DecodeJSON decodes a model response, tolerating code fences and stray prose
// around the JSON document.
func DecodeJSON(text string, target any) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return errors.New("empty payload")
	}
	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}
	sanitized := sanitizeJSONPayload(trimmed)
	if sanitized == "" || sanitized == trimmed {
		return fmt.Errorf("%w (payload snippet: %s)", directErr, summarizePayloadSnippet(trimmed))
	}
	if err := json.Unmarshal([]byte(sanitized), target); err != nil {
		return fmt.Errorf("%w (sanitized payload snippet: %s)", err, summarizePayloadSnippet(sanitized))
	}
	return nil
}

func sanitizeJSONPayload(text string) string {
	trimmed := strings.TrimSpace(stripCodeFence(text))
	if trimmed == "" {
		return ""
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return trimmed
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return trimmed
}

func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimLeft(trimmed[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}
