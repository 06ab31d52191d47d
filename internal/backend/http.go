package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"assetgen/internal/workspec"
)

const (
	defaultHTTPTimeout = 5 * time.Minute
	// DefaultMaxResponseBytes caps one response body, base64 included.
	DefaultMaxResponseBytes int64 = 256 << 20
)

// HTTPConfig captures the settings for a remote generation service.
type HTTPConfig struct {
	BaseURL      string
	APIKey       string
	ImageModel   string
	AudioModel   string
	Timeout      time.Duration
	ImageWidth   int
	ImageHeight  int
	DefaultStyle string
	DefaultVoice string
	// MaxResponseBytes bounds a response body. Zero means
	// DefaultMaxResponseBytes.
	MaxResponseBytes int64
}

// HTTP posts one JSON request per item to <base_url>/images or
// <base_url>/audio. The response is either raw artifact bytes or a JSON
// object carrying base64 data.
type HTTP struct {
	cfg HTTPConfig

	once      sync.Once
	initErr   error
	client    *http.Client
	endpoints map[workspec.Kind]string
}

// HTTPOption customizes the HTTP backend.
type HTTPOption func(*HTTP)

// WithHTTPClient overrides the lazily built client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(h *HTTP) {
		if client != nil {
			h.client = client
		}
	}
}

// NewHTTP constructs the backend. No connection is made until Generate.
func NewHTTP(cfg HTTPConfig, opts ...HTTPOption) *HTTP {
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.ImageWidth <= 0 {
		cfg.ImageWidth = DefaultDimension
	}
	if cfg.ImageHeight <= 0 {
		cfg.ImageHeight = DefaultDimension
	}
	if cfg.DefaultStyle == "" {
		cfg.DefaultStyle = DefaultStyle
	}
	if cfg.DefaultVoice == "" {
		cfg.DefaultVoice = DefaultVoice
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = DefaultMaxResponseBytes
	}
	h := &HTTP{cfg: cfg}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HTTP) init() error {
	h.once.Do(func() {
		if h.cfg.BaseURL == "" {
			h.initErr = errors.New("http backend: base_url required")
			return
		}
		if _, err := url.Parse(h.cfg.BaseURL); err != nil {
			h.initErr = fmt.Errorf("http backend: parse base_url: %w", err)
			return
		}
		images, err := url.JoinPath(h.cfg.BaseURL, "images")
		if err != nil {
			h.initErr = fmt.Errorf("http backend: build url: %w", err)
			return
		}
		audio, err := url.JoinPath(h.cfg.BaseURL, "audio")
		if err != nil {
			h.initErr = fmt.Errorf("http backend: build url: %w", err)
			return
		}
		h.endpoints = map[workspec.Kind]string{workspec.KindImage: images, workspec.KindAudio: audio}
		if h.client == nil {
			timeout := h.cfg.Timeout
			if timeout <= 0 {
				timeout = defaultHTTPTimeout
			}
			h.client = &http.Client{Timeout: timeout}
		}
	})
	return h.initErr
}

type generateRequest struct {
	AssetID    string            `json:"asset_id"`
	Filename   string            `json:"filename"`
	Model      string            `json:"model,omitempty"`
	Prompt     string            `json:"prompt,omitempty"`
	Width      int               `json:"width,omitempty"`
	Height     int               `json:"height,omitempty"`
	Text       string            `json:"text,omitempty"`
	Voice      string            `json:"voice,omitempty"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

type generateResponse struct {
	Data     string  `json:"data"`
	B64JSON  string  `json:"b64_json"`
	Duration float64 `json:"duration"`
	Error    string  `json:"error"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http backend: http %d: %s", e.StatusCode, e.Body)
}

func (h *HTTP) buildRequest(req Request) (generateRequest, error) {
	body := generateRequest{AssetID: req.AssetID, Filename: req.Filename, Parameters: req.Payload}
	switch req.Kind {
	case workspec.KindImage:
		description := req.Value("description", "")
		if description == "" {
			return body, errors.New("description is required for image assets")
		}
		body.Model = h.cfg.ImageModel
		body.Prompt = ImagePrompt(description, req.Value("style", h.cfg.DefaultStyle))
		body.Width = Dimension(req, "width", h.cfg.ImageWidth)
		body.Height = Dimension(req, "height", h.cfg.ImageHeight)
	case workspec.KindAudio:
		text := AudioText(req)
		if text == "" {
			return body, errors.New("text is required for audio assets")
		}
		body.Model = h.cfg.AudioModel
		body.Text = text
		body.Voice = req.Value("voice", h.cfg.DefaultVoice)
	default:
		return body, fmt.Errorf("unsupported kind %q", req.Kind)
	}
	return body, nil
}

func (h *HTTP) Generate(ctx context.Context, req Request) (Artifact, error) {
	if err := h.init(); err != nil {
		return Artifact{}, err
	}
	payload, err := h.buildRequest(req)
	if err != nil {
		return Artifact{}, err
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Artifact{}, fmt.Errorf("http backend: encode body: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoints[req.Kind], bytes.NewReader(encoded))
	if err != nil {
		return Artifact{}, fmt.Errorf("http backend: new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if h.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return Artifact{}, fmt.Errorf("http backend: request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, h.cfg.MaxResponseBytes+1))
	if err != nil {
		return Artifact{}, fmt.Errorf("http backend: read body: %w", err)
	}
	if int64(len(body)) > h.cfg.MaxResponseBytes {
		return Artifact{}, fmt.Errorf("http backend: response exceeds %d bytes", h.cfg.MaxResponseBytes)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return Artifact{}, &httpStatusError{StatusCode: resp.StatusCode, Body: summarize(body)}
	}
	return decodeArtifact(resp.Header.Get("Content-Type"), body)
}

func decodeArtifact(contentType string, body []byte) (Artifact, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType != "application/json" {
		if len(body) == 0 {
			return Artifact{}, errors.New("http backend: empty response body")
		}
		return Artifact{Data: body, ContentType: mediaType}, nil
	}
	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Artifact{}, fmt.Errorf("http backend: decode response: %w", err)
	}
	if msg := strings.TrimSpace(parsed.Error); msg != "" {
		return Artifact{}, errors.New(msg)
	}
	encoded := parsed.Data
	if encoded == "" {
		encoded = parsed.B64JSON
	}
	if encoded == "" {
		return Artifact{}, errors.New("http backend: response carried no data")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Artifact{}, fmt.Errorf("http backend: decode data: %w", err)
	}
	return Artifact{Data: data, Duration: parsed.Duration}, nil
}

func summarize(body []byte) string {
	const limit = 512
	text := strings.TrimSpace(string(body))
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}

// Close drops idle connections held by the client.
func (h *HTTP) Close() error {
	if h.client != nil {
		h.client.CloseIdleConnections()
	}
	return nil
}
