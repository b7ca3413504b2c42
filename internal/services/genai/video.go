package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"storyreel/internal/services"
)

// VideoRequest describes an image-to-video generation. Both frames are optional.
type VideoRequest struct {
	Model       string
	Prompt      string
	AspectRatio string
	FirstFrame  *Image
	LastFrame   *Image
}

// Operation is a snapshot of a long-running video operation.
type Operation struct {
	Name     string
	Done     bool
	Error    string
	VideoURI string
}

type predictRequest struct {
	Instances  []videoInstance `json:"instances"`
	Parameters videoParameters `json:"parameters"`
}

type videoInstance struct {
	Prompt    string      `json:"prompt"`
	Image     *videoImage `json:"image,omitempty"`
	LastFrame *videoImage `json:"lastFrame,omitempty"`
}

type videoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type videoParameters struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type operationResponse struct {
	Name  string `json:"name"`
	Done  bool   `json:"done"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response"`
}

func (r operationResponse) snapshot() Operation {
	op := Operation{Name: r.Name, Done: r.Done}
	if r.Error != nil {
		op.Error = strings.TrimSpace(r.Error.Message)
		if op.Error == "" {
			op.Error = "operation failed"
		}
	}
	if r.Response != nil {
		for _, sample := range r.Response.GenerateVideoResponse.GeneratedSamples {
			if uri := strings.TrimSpace(sample.Video.URI); uri != "" {
				op.VideoURI = uri
				break
			}
		}
	}
	return op
}

func toVideoImage(img *Image) *videoImage {
	if img == nil || len(img.Data) == 0 {
		return nil
	}
	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return &videoImage{BytesBase64Encoded: base64.StdEncoding.EncodeToString(img.Data), MimeType: mime}
}

// SubmitVideo starts a long-running video generation and returns its handle.
func (c *Client) SubmitVideo(ctx context.Context, req VideoRequest) (Operation, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return Operation{}, services.Wrap(services.ErrValidation, "provider", "submit video", "prompt required", nil)
	}
	payload := predictRequest{
		Instances: []videoInstance{{
			Prompt:    req.Prompt,
			Image:     toVideoImage(req.FirstFrame),
			LastFrame: toVideoImage(req.LastFrame),
		}},
		Parameters: videoParameters{AspectRatio: req.AspectRatio},
	}
	return withRetry(ctx, c, "video_submit", func(ctx context.Context) (Operation, error) {
		body, err := c.send(ctx, http.MethodPost, c.modelEndpoint(req.Model, "predictLongRunning"), "submit video", payload)
		if err != nil {
			return Operation{}, err
		}
		var resp operationResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return Operation{}, services.Wrap(services.ErrPermanent, "provider", "submit video", "decode response", err)
		}
		if strings.TrimSpace(resp.Name) == "" {
			return Operation{}, services.Wrap(services.ErrNoContent, "provider", "submit video", "missing operation name", nil)
		}
		return resp.snapshot(), nil
	})
}

// GetOperation fetches the current state of a long-running operation.
func (c *Client) GetOperation(ctx context.Context, name string) (Operation, error) {
	name = strings.Trim(strings.TrimSpace(name), "/")
	if name == "" {
		return Operation{}, services.Wrap(services.ErrValidation, "provider", "poll video", "operation name required", nil)
	}
	return withRetry(ctx, c, "video_poll", func(ctx context.Context) (Operation, error) {
		body, err := c.send(ctx, http.MethodGet, c.cfg.BaseURL+"/"+name, "poll video", nil)
		if err != nil {
			return Operation{}, err
		}
		var resp operationResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return Operation{}, services.Wrap(services.ErrPermanent, "provider", "poll video", "decode response", err)
		}
		if resp.Name == "" {
			resp.Name = name
		}
		return resp.snapshot(), nil
	})
}

// Download fetches generated media. The provider URI requires the API key as
// a query parameter.
func (c *Client) Download(ctx context.Context, uri string) ([]byte, error) {
	parsed, err := url.Parse(strings.TrimSpace(uri))
	if err != nil || parsed.Scheme == "" {
		return nil, services.Wrap(services.ErrPermanent, "provider", "download video", "invalid uri "+uri, err)
	}
	query := parsed.Query()
	query.Set("key", c.cfg.APIKey)
	parsed.RawQuery = query.Encode()
	endpoint := parsed.String()

	data, err := withRetry(ctx, c, "video_download", func(ctx context.Context) ([]byte, error) {
		return c.send(ctx, http.MethodGet, endpoint, "download video", nil)
	})
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, services.Wrap(services.ErrNoContent, "provider", "download video", "empty body", nil)
	}
	return data, nil
}
