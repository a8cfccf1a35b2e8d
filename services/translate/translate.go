package translate

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"sjsage522/listingsync/helpers"
	apperrors "sjsage522/listingsync/pkg/errors"
)

// Translator translates bounded text into a target language
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// GoogleTranslator calls the public gtx endpoint of Google Translate
type GoogleTranslator struct {
	endpoint string
	timeout  time.Duration
}

// NewGoogleTranslator creates a translator for endpoint
func NewGoogleTranslator(endpoint string, timeout time.Duration) *GoogleTranslator {
	return &GoogleTranslator{
		endpoint: endpoint,
		timeout:  timeout,
	}
}

// Translate returns the translation of text. Source language is auto-detected.
func (g *GoogleTranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	query := url.Values{}
	query.Set("client", "gtx")
	query.Set("sl", "auto")
	query.Set("tl", targetLang)
	query.Set("dt", "t")
	query.Set("q", text)

	body, err := helpers.FetchSimply(ctx, g.endpoint+"?"+query.Encode())
	if err != nil {
		return "", apperrors.NewTranslation("request failed", err)
	}

	translated, err := parseGTX(body)
	if err != nil {
		return "", apperrors.NewTranslation("unexpected response", err)
	}
	return translated, nil
}

// parseGTX reads the nested array response:
// [[["translated","original",null,null,10], ...], null, "en", ...]
func parseGTX(body []byte) (string, error) {
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	if len(payload) == 0 {
		return "", apperrors.NewValidation("gtx", "empty response")
	}

	var segments [][]interface{}
	if err := json.Unmarshal(payload[0], &segments); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if s, ok := seg[0].(string); ok {
			sb.WriteString(s)
		}
	}

	translated := strings.TrimSpace(sb.String())
	if translated == "" {
		return "", apperrors.NewValidation("gtx", "no translated segments")
	}
	return translated, nil
}

// NoopTranslator returns its input unchanged
type NoopTranslator struct{}

// Translate implements Translator
func (NoopTranslator) Translate(_ context.Context, text, _ string) (string, error) {
	return text, nil
}
