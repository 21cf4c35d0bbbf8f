// Package translate provides the text translation backends used by TRANSLATE and GETMSG.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vovakirdan/flowchat/internal/proto"
)

var (
	ErrEmptyLanguage = errors.New("translate: target language is empty")
	ErrBackend       = errors.New("translate: backend error")
)

// Translator translates text between wire language codes.
// source may be proto.LangUnknown to request detection.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Passthrough returns text unchanged.
type Passthrough struct{}

// Translate implements Translator.
func (Passthrough) Translate(_ context.Context, text, _, target string) (string, error) {
	if target == "" {
		return "", ErrEmptyLanguage
	}
	return text, nil
}

// Libre talks to a LibreTranslate compatible HTTP endpoint.
type Libre struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewLibre creates a client for baseURL. timeout bounds each request.
func NewLibre(baseURL, apiKey string, timeout time.Duration) *Libre {
	return &Libre{
		endpoint: strings.TrimRight(baseURL, "/") + "/translate",
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error"`
}

// Translate implements Translator.
func (l *Libre) Translate(ctx context.Context, text, source, target string) (string, error) {
	if target == "" {
		return "", ErrEmptyLanguage
	}
	if source == target || strings.TrimSpace(text) == "" {
		return text, nil
	}
	if source == "" || source == proto.LangUnknown {
		source = "auto"
	}

	body, err := json.Marshal(libreRequest{Q: text, Source: source, Target: target, Format: "text", APIKey: l.apiKey})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	var out libreResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: status %d: decode response: %v", ErrBackend, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrBackend, resp.StatusCode, out.Error)
	}
	return out.TranslatedText, nil
}

// New picks Libre when baseURL is set and Passthrough otherwise.
func New(baseURL, apiKey string, timeout time.Duration) Translator {
	if strings.TrimSpace(baseURL) == "" {
		return Passthrough{}
	}
	return NewLibre(baseURL, apiKey, timeout)
}
