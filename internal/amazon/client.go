package amazon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"adpilot/internal/config"

	"go.uber.org/zap"
)

// ErrDuplicate marks platform rejections caused by an existing resource
// with the same identity (e.g. campaign name collision). Callers treat it
// as a benign skip, not a failure.
var ErrDuplicate = errors.New("duplicate resource")

// IsDuplicate reports whether err stems from a duplicate-resource rejection.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// API is the surface of the advertising platform the engine consumes.
// *Client implements it; tests substitute fakes.
type API interface {
	ListCampaigns(ctx context.Context, campaignIDs []string, states []string) ([]Campaign, error)
	ListAdGroups(ctx context.Context, campaignIDs []string) ([]AdGroup, error)
	ListKeywords(ctx context.Context, campaignIDs []string, states []string) ([]Keyword, error)
	ListTargets(ctx context.Context, campaignIDs []string, states []string) ([]Target, error)

	UpdateKeywordBids(ctx context.Context, updates []BidUpdate) (BatchResult, error)
	UpdateTargetBids(ctx context.Context, updates []BidUpdate) (BatchResult, error)
	UpdateCampaignBudgets(ctx context.Context, updates []BudgetUpdate) (BatchResult, error)
	CreateNegativeKeywords(ctx context.Context, negatives []NegativeKeyword) (BatchResult, error)
	CreateNegativeTargets(ctx context.Context, negatives []NegativeTarget) (BatchResult, error)

	CreateCampaign(ctx context.Context, campaign Campaign) (string, error)
	CreateAdGroup(ctx context.Context, adGroup AdGroup) (string, error)
	CreateProductAd(ctx context.Context, ad ProductAd) (string, error)
	CreateKeyword(ctx context.Context, keyword Keyword) (string, error)
	CreateTarget(ctx context.Context, target Target) (string, error)

	GetCatalogItem(ctx context.Context, asin string) (*CatalogItem, error)
}

type Client struct {
	cfg    *config.Config
	http   *http.Client
	logger *zap.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(cfg *config.Config, logger *zap.Logger) API {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// ensureToken refreshes the LWA access token when missing or within a
// minute of expiry.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.accessToken, nil
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {c.cfg.AdsRefreshToken},
		"client_id":     {c.cfg.AdsClientID},
		"client_secret": {c.cfg.AdsClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.LWAEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token refresh: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token refresh failed (%d): %s", resp.StatusCode, string(body))
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", err
	}

	c.accessToken = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.AdsEndpoint+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Amazon-Advertising-API-ClientId", c.cfg.AdsClientID)
	req.Header.Set("Amazon-Advertising-API-Scope", c.cfg.AdsProfileID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ads api %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusConflict || bytes.Contains(raw, []byte("DUPLICATE_VALUE")) {
			return fmt.Errorf("%s %s: %w", method, path, ErrDuplicate)
		}
		return fmt.Errorf("ads api %s %s returned %d: %s", method, path, resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return nil
}

type listRequest struct {
	CampaignIDFilter []string `json:"campaignIdFilter,omitempty"`
	StateFilter      []string `json:"stateFilter,omitempty"`
	NextToken        string   `json:"nextToken,omitempty"`
	MaxResults       int      `json:"maxResults"`
}

// ListCampaigns pages through the campaign list endpoint via
// continuation tokens until exhausted.
func (c *Client) ListCampaigns(ctx context.Context, campaignIDs []string, states []string) ([]Campaign, error) {
	var all []Campaign
	next := ""
	for {
		var page struct {
			Campaigns []Campaign `json:"campaigns"`
			NextToken string     `json:"nextToken"`
		}
		req := listRequest{CampaignIDFilter: campaignIDs, StateFilter: states, NextToken: next, MaxResults: 500}
		if err := c.do(ctx, http.MethodPost, "/sp/campaigns/list", req, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Campaigns...)
		if page.NextToken == "" {
			return all, nil
		}
		next = page.NextToken
	}
}

func (c *Client) ListAdGroups(ctx context.Context, campaignIDs []string) ([]AdGroup, error) {
	var all []AdGroup
	next := ""
	for {
		var page struct {
			AdGroups  []AdGroup `json:"adGroups"`
			NextToken string    `json:"nextToken"`
		}
		req := listRequest{CampaignIDFilter: campaignIDs, NextToken: next, MaxResults: 500}
		if err := c.do(ctx, http.MethodPost, "/sp/adGroups/list", req, &page); err != nil {
			return nil, err
		}
		all = append(all, page.AdGroups...)
		if page.NextToken == "" {
			return all, nil
		}
		next = page.NextToken
	}
}

func (c *Client) ListKeywords(ctx context.Context, campaignIDs []string, states []string) ([]Keyword, error) {
	var all []Keyword
	next := ""
	for {
		var page struct {
			Keywords  []Keyword `json:"keywords"`
			NextToken string    `json:"nextToken"`
		}
		req := listRequest{CampaignIDFilter: campaignIDs, StateFilter: states, NextToken: next, MaxResults: 1000}
		if err := c.do(ctx, http.MethodPost, "/sp/keywords/list", req, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Keywords...)
		if page.NextToken == "" {
			return all, nil
		}
		next = page.NextToken
	}
}

func (c *Client) ListTargets(ctx context.Context, campaignIDs []string, states []string) ([]Target, error) {
	var all []Target
	next := ""
	for {
		var page struct {
			Targets   []Target `json:"targetingClauses"`
			NextToken string   `json:"nextToken"`
		}
		req := listRequest{CampaignIDFilter: campaignIDs, StateFilter: states, NextToken: next, MaxResults: 1000}
		if err := c.do(ctx, http.MethodPost, "/sp/targets/list", req, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Targets...)
		if page.NextToken == "" {
			return all, nil
		}
		next = page.NextToken
	}
}

func (c *Client) GetCatalogItem(ctx context.Context, asin string) (*CatalogItem, error) {
	var item CatalogItem
	if err := c.do(ctx, http.MethodGet, "/catalog/items/"+asin, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}
