package amazon

import (
	"context"
	"fmt"
	"net/http"
)

// batchResponse is the platform's per-item result shape. Every mutation
// endpoint answers with parallel success/error arrays that the caller
// must partition; nothing is all-or-nothing.
type batchResponse struct {
	Success []struct {
		ID    string `json:"id"`
		Index int    `json:"index"`
	} `json:"success"`
	Error []struct {
		ID          string `json:"id"`
		Index       int    `json:"index"`
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (b batchResponse) toResult() BatchResult {
	res := BatchResult{}
	for _, s := range b.Success {
		res.Success = append(res.Success, s.ID)
	}
	for _, e := range b.Error {
		res.Failures = append(res.Failures, BatchError{ID: e.ID, Index: e.Index, Code: e.Code, Description: e.Description})
	}
	return res
}

func (c *Client) batchMutate(ctx context.Context, path string, payload interface{}) (BatchResult, error) {
	var resp batchResponse
	if err := c.do(ctx, http.MethodPut, path, payload, &resp); err != nil {
		return BatchResult{}, err
	}
	return resp.toResult(), nil
}

func (c *Client) UpdateKeywordBids(ctx context.Context, updates []BidUpdate) (BatchResult, error) {
	type kw struct {
		KeywordID string  `json:"keywordId"`
		Bid       float64 `json:"bid"`
	}
	body := struct {
		Keywords []kw `json:"keywords"`
	}{}
	for _, u := range updates {
		body.Keywords = append(body.Keywords, kw{KeywordID: u.EntityID, Bid: u.Bid})
	}
	return c.batchMutate(ctx, "/sp/keywords", body)
}

func (c *Client) UpdateTargetBids(ctx context.Context, updates []BidUpdate) (BatchResult, error) {
	type tgt struct {
		TargetID string  `json:"targetId"`
		Bid      float64 `json:"bid"`
	}
	body := struct {
		Targets []tgt `json:"targetingClauses"`
	}{}
	for _, u := range updates {
		body.Targets = append(body.Targets, tgt{TargetID: u.EntityID, Bid: u.Bid})
	}
	return c.batchMutate(ctx, "/sp/targets", body)
}

func (c *Client) UpdateCampaignBudgets(ctx context.Context, updates []BudgetUpdate) (BatchResult, error) {
	body := struct {
		Campaigns []BudgetUpdate `json:"campaigns"`
	}{Campaigns: updates}
	return c.batchMutate(ctx, "/sp/campaigns", body)
}

func (c *Client) CreateNegativeKeywords(ctx context.Context, negatives []NegativeKeyword) (BatchResult, error) {
	var resp batchResponse
	body := struct {
		NegativeKeywords []NegativeKeyword `json:"negativeKeywords"`
	}{NegativeKeywords: negatives}
	if err := c.do(ctx, http.MethodPost, "/sp/negativeKeywords", body, &resp); err != nil {
		return BatchResult{}, err
	}
	return resp.toResult(), nil
}

func (c *Client) CreateNegativeTargets(ctx context.Context, negatives []NegativeTarget) (BatchResult, error) {
	var resp batchResponse
	body := struct {
		NegativeTargets []NegativeTarget `json:"negativeTargetingClauses"`
	}{NegativeTargets: negatives}
	if err := c.do(ctx, http.MethodPost, "/sp/negativeTargets", body, &resp); err != nil {
		return BatchResult{}, err
	}
	return resp.toResult(), nil
}

// createOne posts a single-element create and unwraps the per-item
// result, translating duplicate rejections into ErrDuplicate.
func (c *Client) createOne(ctx context.Context, path string, payload interface{}) (string, error) {
	var resp batchResponse
	if err := c.do(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return "", err
	}
	if len(resp.Success) > 0 {
		return resp.Success[0].ID, nil
	}
	if len(resp.Error) > 0 {
		e := resp.Error[0]
		if e.Code == "DUPLICATE_VALUE" || e.Code == "ENTITY_ALREADY_EXISTS" {
			return "", fmt.Errorf("%s: %s: %w", path, e.Description, ErrDuplicate)
		}
		return "", fmt.Errorf("%s rejected: %s %s", path, e.Code, e.Description)
	}
	return "", fmt.Errorf("%s: empty batch response", path)
}

func (c *Client) CreateCampaign(ctx context.Context, campaign Campaign) (string, error) {
	body := struct {
		Campaigns []Campaign `json:"campaigns"`
	}{Campaigns: []Campaign{campaign}}
	return c.createOne(ctx, "/sp/campaigns", body)
}

func (c *Client) CreateAdGroup(ctx context.Context, adGroup AdGroup) (string, error) {
	body := struct {
		AdGroups []AdGroup `json:"adGroups"`
	}{AdGroups: []AdGroup{adGroup}}
	return c.createOne(ctx, "/sp/adGroups", body)
}

func (c *Client) CreateProductAd(ctx context.Context, ad ProductAd) (string, error) {
	body := struct {
		ProductAds []ProductAd `json:"productAds"`
	}{ProductAds: []ProductAd{ad}}
	return c.createOne(ctx, "/sp/productAds", body)
}

func (c *Client) CreateKeyword(ctx context.Context, keyword Keyword) (string, error) {
	body := struct {
		Keywords []Keyword `json:"keywords"`
	}{Keywords: []Keyword{keyword}}
	return c.createOne(ctx, "/sp/keywords", body)
}

func (c *Client) CreateTarget(ctx context.Context, target Target) (string, error) {
	body := struct {
		Targets []Target `json:"targetingClauses"`
	}{Targets: []Target{target}}
	return c.createOne(ctx, "/sp/targets", body)
}
