package amazon

type Campaign struct {
	CampaignID    string  `json:"campaignId"`
	Name          string  `json:"name"`
	State         string  `json:"state"`
	DailyBudget   float64 `json:"dailyBudget"`
	TargetingType string  `json:"targetingType,omitempty"`
}

type AdGroup struct {
	AdGroupID  string  `json:"adGroupId"`
	CampaignID string  `json:"campaignId"`
	Name       string  `json:"name"`
	DefaultBid float64 `json:"defaultBid"`
	State      string  `json:"state"`
}

type Keyword struct {
	KeywordID   string   `json:"keywordId,omitempty"`
	CampaignID  string   `json:"campaignId"`
	AdGroupID   string   `json:"adGroupId"`
	KeywordText string   `json:"keywordText"`
	MatchType   string   `json:"matchType"`
	State       string   `json:"state"`
	Bid         *float64 `json:"bid,omitempty"`
}

type Target struct {
	TargetID   string   `json:"targetId,omitempty"`
	CampaignID string   `json:"campaignId"`
	AdGroupID  string   `json:"adGroupId"`
	Expression string   `json:"expression"`
	State      string   `json:"state"`
	Bid        *float64 `json:"bid,omitempty"`
}

type ProductAd struct {
	AdID       string `json:"adId,omitempty"`
	CampaignID string `json:"campaignId"`
	AdGroupID  string `json:"adGroupId"`
	ASIN       string `json:"asin,omitempty"`
	SKU        string `json:"sku,omitempty"`
	State      string `json:"state"`
}

type NegativeKeyword struct {
	CampaignID  string `json:"campaignId"`
	AdGroupID   string `json:"adGroupId"`
	KeywordText string `json:"keywordText"`
	MatchType   string `json:"matchType"`
}

type NegativeTarget struct {
	CampaignID string `json:"campaignId"`
	AdGroupID  string `json:"adGroupId"`
	ASIN       string `json:"asin"`
}

type BidUpdate struct {
	EntityID string  `json:"entityId"`
	Bid      float64 `json:"bid"`
}

type BudgetUpdate struct {
	CampaignID  string  `json:"campaignId"`
	DailyBudget float64 `json:"dailyBudget"`
}

// BatchError is one rejected item of a batch mutation. Index is the
// item's position in the request, the only identity creations have.
type BatchError struct {
	ID          string `json:"id"`
	Index       int    `json:"index"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// BatchResult partitions a batch mutation into genuinely successful IDs
// and per-item failures. Mutation endpoints are never all-or-nothing.
type BatchResult struct {
	Success  []string
	Failures []BatchError
}

type CatalogItem struct {
	ASIN    string   `json:"asin"`
	Title   string   `json:"title"`
	Bullets []string `json:"bullets"`
}
