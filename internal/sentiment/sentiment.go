// Package sentiment scores customer utterances. The production scorer calls
// the Azure Text Analytics v2 sentiment endpoint; the handoff core only sees
// the Scorer interface.
package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-handoff-backend/internal/config"
	"github.com/tbourn/go-handoff-backend/internal/observability"
)

// documentID is the id of the single document sent per request.
const documentID = "bot-analytics"

// HeaderSubscriptionKey carries the Text Analytics API key.
const HeaderSubscriptionKey = "Ocp-Apim-Subscription-Key"

var (
	// ErrUnavailable wraps transport and non-2xx failures.
	ErrUnavailable = errors.New("sentiment service unavailable")
	// ErrNoScore is returned when the response carries no score for the document.
	ErrNoScore = errors.New("sentiment score missing")
)

// Scorer returns a sentiment score in [0,1] for text. A nil score with a nil
// error means the text was not scored.
type Scorer interface {
	Score(ctx context.Context, text string) (*float64, error)
}

type document struct {
	Language string `json:"language,omitempty"`
	ID       string `json:"id"`
	Text     string `json:"text,omitempty"`
}

type request struct {
	Documents []document `json:"documents"`
}

type response struct {
	Documents []struct {
		ID    string   `json:"id"`
		Score *float64 `json:"score"`
	} `json:"documents"`
	Errors []struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	} `json:"errors"`
}

// TextAnalytics is a Scorer backed by the Text Analytics REST API.
// It is safe for concurrent use.
type TextAnalytics struct {
	key      string
	url      string
	language string
	client   *http.Client
	limiter  *rate.Limiter
	log      zerolog.Logger
}

// Option customizes a TextAnalytics scorer.
type Option func(*TextAnalytics)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option { return func(t *TextAnalytics) { t.client = c } }

// WithLogger sets the logger used for failed calls.
func WithLogger(l zerolog.Logger) Option { return func(t *TextAnalytics) { t.log = l } }

// New returns a scorer for cfg, or nil when sentiment is not configured.
func New(cfg config.SentimentConfig, opts ...Option) Scorer {
	if !cfg.Enabled() {
		return nil
	}
	return NewTextAnalytics(cfg, opts...)
}

// NewTextAnalytics builds a TextAnalytics scorer. A positive cfg.RPS caps the
// outbound call rate.
func NewTextAnalytics(cfg config.SentimentConfig, opts ...Option) *TextAnalytics {
	t := &TextAnalytics{
		key:      cfg.Key,
		url:      cfg.URL,
		language: cfg.Language.String(),
		client:   newHTTPClient(cfg.Timeout),
		log:      zerolog.Nop(),
	}
	if cfg.RPS > 0 {
		burst := int(cfg.RPS)
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// newHTTPClient returns a pooled client whose overall timeout bounds each call.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// Score implements Scorer. Blank text is not sent.
func (t *TextAnalytics) Score(ctx context.Context, text string) (*float64, error) {
	if strings.TrimSpace(text) == "" {
		observability.RecordSentiment(observability.OutcomeSkipped)
		return nil, nil
	}
	score, err := t.score(ctx, text)
	switch {
	case err != nil:
		observability.RecordSentiment(observability.OutcomeError)
		t.log.Warn().Err(err).Msg("sentiment scoring failed")
	default:
		observability.RecordSentiment(observability.OutcomeOK)
	}
	return score, err
}

func (t *TextAnalytics) score(ctx context.Context, text string) (*float64, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	body, err := json.Marshal(request{Documents: []document{{Language: t.language, ID: documentID, Text: text}}})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSubscriptionKey, t.key)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	for _, d := range out.Documents {
		if d.ID == documentID && d.Score != nil {
			s := *d.Score
			return &s, nil
		}
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoScore, out.Errors[0].Message)
	}
	return nil, ErrNoScore
}
