package testsupport

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// PNG is the image payload returned by FakeProvider.
var PNG = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// MP4 is the video payload served by FakeProvider downloads.
var MP4 = []byte("fake-mp4-payload")

// FakeProvider is an httptest server speaking the subset of the Gemini REST
// API storyreel uses. Text responses are chosen by prompt substring.
type FakeProvider struct {
	Server *httptest.Server

	mu              sync.Mutex
	textResponses   []textResponse
	prompts         []string
	imageCalls      int
	videoSubmits    int
	polls           int
	pollsBeforeDone int
	operationError  string
	lastVideoBody   map[string]any
}

type textResponse struct {
	marker string
	body   string
}

// NewFakeProvider starts a fake provider and registers cleanup.
func NewFakeProvider(t testing.TB) *FakeProvider {
	t.Helper()

	fp := &FakeProvider{pollsBeforeDone: 1}
	fp.Server = httptest.NewServer(http.HandlerFunc(fp.handle))
	t.Cleanup(fp.Server.Close)
	return fp
}

// URL returns the base URL to configure as provider.base_url.
func (fp *FakeProvider) URL() string {
	return fp.Server.URL
}

// RespondText registers the JSON body returned when a text prompt contains marker.
func (fp *FakeProvider) RespondText(marker, body string) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.textResponses = append(fp.textResponses, textResponse{marker: marker, body: body})
}

// FailVideoOperations makes finished video operations carry an error.
func (fp *FakeProvider) FailVideoOperations(message string) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.operationError = message
}

// SetPollsBeforeDone controls how many polls report the operation pending.
func (fp *FakeProvider) SetPollsBeforeDone(n int) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.pollsBeforeDone = n
}

// Prompts returns every text and image prompt received.
func (fp *FakeProvider) Prompts() []string {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return append([]string(nil), fp.prompts...)
}

// ImageCalls returns the number of image generations served.
func (fp *FakeProvider) ImageCalls() int {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.imageCalls
}

// VideoSubmits returns the number of video operations started.
func (fp *FakeProvider) VideoSubmits() int {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.videoSubmits
}

// LastVideoRequest returns the decoded body of the most recent video submit.
func (fp *FakeProvider) LastVideoRequest() map[string]any {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.lastVideoBody
}

func (fp *FakeProvider) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, ":generateContent"):
		fp.handleGenerate(w, r)
	case strings.HasSuffix(r.URL.Path, ":predictLongRunning"):
		fp.handleSubmit(w, r)
	case strings.Contains(r.URL.Path, "/operations/"):
		fp.handlePoll(w, r)
	case strings.HasPrefix(r.URL.Path, "/files/"):
		_, _ = w.Write(MP4)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/models/"):
		writeFakeJSON(w, map[string]any{"name": strings.TrimPrefix(r.URL.Path, "/")})
	default:
		http.NotFound(w, r)
	}
}

func (fp *FakeProvider) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Contents []struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
		GenerationConfig struct {
			ResponseModalities []string `json:"responseModalities"`
		} `json:"generationConfig"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var prompt string
	if len(body.Contents) > 0 && len(body.Contents[0].Parts) > 0 {
		prompt = body.Contents[0].Parts[0].Text
	}

	fp.mu.Lock()
	fp.prompts = append(fp.prompts, prompt)
	isImage := len(body.GenerationConfig.ResponseModalities) > 0
	if isImage {
		fp.imageCalls++
	}
	var text string
	for _, resp := range fp.textResponses {
		if strings.Contains(prompt, resp.marker) {
			text = resp.body
			break
		}
	}
	fp.mu.Unlock()

	var part map[string]any
	if isImage {
		part = map[string]any{"inlineData": map[string]any{"mimeType": "image/png", "data": base64.StdEncoding.EncodeToString(PNG)}}
	} else {
		if text == "" {
			http.Error(w, `{"error":{"message":"no canned response"}}`, http.StatusBadRequest)
			return
		}
		part = map[string]any{"text": text}
	}
	writeFakeJSON(w, map[string]any{
		"candidates": []any{map[string]any{"content": map[string]any{"parts": []any{part}}}},
	})
}

func (fp *FakeProvider) handleSubmit(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)

	fp.mu.Lock()
	fp.videoSubmits++
	fp.lastVideoBody = decoded
	fp.polls = 0
	fp.mu.Unlock()

	writeFakeJSON(w, map[string]any{"name": "models/veo/operations/op-1"})
}

func (fp *FakeProvider) handlePoll(w http.ResponseWriter, r *http.Request) {
	fp.mu.Lock()
	fp.polls++
	done := fp.polls > fp.pollsBeforeDone
	opErr := fp.operationError
	fp.mu.Unlock()

	resp := map[string]any{"name": strings.TrimPrefix(r.URL.Path, "/"), "done": done}
	if done {
		if opErr != "" {
			resp["error"] = map[string]any{"code": 3, "message": opErr}
		} else {
			resp["response"] = map[string]any{"generateVideoResponse": map[string]any{"generatedSamples": []any{
				map[string]any{"video": map[string]any{"uri": fp.Server.URL + "/files/video-1:download?alt=media"}},
			}}}
		}
	}
	writeFakeJSON(w, resp)
}

func writeFakeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
