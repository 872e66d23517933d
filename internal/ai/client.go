package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"adpilot/internal/config"

	"go.uber.org/zap"
)

// Classifier answers a strict yes/no product-relevance question.
// *Client implements it; tests substitute fakes.
type Classifier interface {
	ClassifyRelevance(ctx context.Context, product Product, query string) (bool, error)
	RotateCredential()
}

// Product is the advertised item's catalog copy fed into the prompt.
type Product struct {
	Title   string
	Bullets []string
}

type Client struct {
	endpoint string
	http     *http.Client
	logger   *zap.Logger

	mu   sync.Mutex
	keys []string
	idx  int
}

func NewClient(cfg *config.Config, logger *zap.Logger) Classifier {
	return &Client{
		endpoint: cfg.AIEndpoint,
		http:     &http.Client{Timeout: 60 * time.Second},
		logger:   logger,
		keys:     cfg.AIKeys,
	}
}

// currentKey returns the credential in use. Retries within a batch reuse
// the same credential; rotation happens between batches.
func (c *Client) currentKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.keys) == 0 {
		return ""
	}
	return c.keys[c.idx%len(c.keys)]
}

// RotateCredential advances the round-robin pool so load spreads and a
// single disabled key cannot halt a rule.
func (c *Client) RotateCredential() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.keys) > 0 {
		c.idx = (c.idx + 1) % len(c.keys)
	}
}

// overloadError marks provider overload/rate-limit responses, the only
// class of failure worth retrying.
type overloadError struct {
	status int
}

func (e *overloadError) Error() string {
	return fmt.Sprintf("ai provider overloaded (status %d)", e.status)
}

// IsOverload reports whether err is a transient provider overload.
func IsOverload(err error) bool {
	var oe *overloadError
	return errors.As(err, &oe)
}

// ClassifyRelevance asks whether a shopper query is relevant to the
// advertised product. The reply is matched by substring only; anything
// that is not a clear "no" counts as relevant.
func (c *Client) ClassifyRelevance(ctx context.Context, product Product, query string) (bool, error) {
	key := c.currentKey()
	if key == "" {
		return false, fmt.Errorf("no ai credentials configured")
	}

	prompt := buildPrompt(product, query)

	body := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]interface{}{
			"temperature":     0,
			"maxOutputTokens": 8,
		},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?key="+key, bytes.NewReader(raw))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("ai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		return false, &overloadError{status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("ai request failed (%d): %s", resp.StatusCode, string(payload))
	}

	var reply struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return false, fmt.Errorf("decode ai response: %w", err)
	}
	if len(reply.Candidates) == 0 || len(reply.Candidates[0].Content.Parts) == 0 {
		return false, fmt.Errorf("empty ai response")
	}

	answer := strings.ToLower(strings.TrimSpace(reply.Candidates[0].Content.Parts[0].Text))
	return !strings.Contains(answer, "no"), nil
}

func buildPrompt(product Product, query string) string {
	var b strings.Builder
	b.WriteString("You are judging advertising relevance.\n")
	b.WriteString("Product title: " + product.Title + "\n")
	for _, bullet := range product.Bullets {
		b.WriteString("- " + bullet + "\n")
	}
	b.WriteString("Shopper search: \"" + query + "\"\n")
	b.WriteString("Is this search relevant to the product? Answer strictly yes or no.")
	return b.String()
}
