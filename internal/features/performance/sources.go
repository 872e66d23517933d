package performance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"adpilot/internal/database"

	"github.com/lib/pq"
)

// Grain selects the query shape: bid rules join on keyword/target IDs,
// search-term rules group by raw query text, budget rules roll up to the
// campaign.
type Grain string

const (
	GrainEntity     Grain = "entity"
	GrainSearchTerm Grain = "searchTerm"
	GrainCampaign   Grain = "campaign"
)

// ReportSource is the delayed, authoritative report store. Rows
// materialize roughly two days late.
type ReportSource interface {
	DatesWithData(ctx context.Context, grain Grain, campaignIDs []string, from, to time.Time) (map[time.Time]bool, error)
	FetchDaily(ctx context.Context, grain Grain, campaignIDs []string, dates []time.Time) ([]Row, error)
}

// StreamSource is the near-real-time event stream: no delay, coarser
// guarantees.
type StreamSource interface {
	FetchDaily(ctx context.Context, grain Grain, campaignIDs []string, dates []time.Time) ([]Row, error)
}

type PostgresReportSource struct {
	db *sql.DB
}

func NewReportSource(reportDB *database.ReportDB) ReportSource {
	return &PostgresReportSource{db: reportDB.DB}
}

func (s *PostgresReportSource) DatesWithData(ctx context.Context, grain Grain, campaignIDs []string, from, to time.Time) (map[time.Time]bool, error) {
	// Availability must be probed against the table FetchDaily will
	// read: search-term attribution settles later than the keyword
	// report, so the tables can differ in which dates they hold.
	query := fmt.Sprintf(`
		SELECT DISTINCT report_date
		FROM %s
		WHERE campaign_id = ANY($1) AND report_date BETWEEN $2 AND $3`, reportTable(grain))
	rows, err := s.db.QueryContext(ctx, query, pq.Array(campaignIDs), from, to)
	if err != nil {
		return nil, fmt.Errorf("report dates: %w", err)
	}
	defer rows.Close()

	have := make(map[time.Time]bool)
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		have[truncateDay(d)] = true
	}
	return have, rows.Err()
}

func (s *PostgresReportSource) FetchDaily(ctx context.Context, grain Grain, campaignIDs []string, dates []time.Time) ([]Row, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	return scanRows(ctx, s.db, reportQuery(grain), campaignIDs, dates)
}

func reportTable(grain Grain) string {
	switch grain {
	case GrainSearchTerm:
		return "sp_search_term_report"
	case GrainCampaign:
		return "sp_campaign_report"
	default:
		return "sp_keyword_report"
	}
}

func reportQuery(grain Grain) string {
	switch grain {
	case GrainSearchTerm:
		return `
			SELECT 'searchTerm', search_term, campaign_id, ad_group_id, '' AS match_type, source_asin,
			       report_date, SUM(impressions), SUM(clicks), SUM(orders), SUM(spend), SUM(sales)
			FROM sp_search_term_report
			WHERE campaign_id = ANY($1) AND report_date = ANY($2)
			GROUP BY search_term, campaign_id, ad_group_id, source_asin, report_date`
	case GrainCampaign:
		return `
			SELECT 'campaign', campaign_id, campaign_id, '' AS ad_group_id, '' AS match_type, '' AS source_asin,
			       report_date, SUM(impressions), SUM(clicks), SUM(orders), SUM(spend), SUM(sales)
			FROM sp_campaign_report
			WHERE campaign_id = ANY($1) AND report_date = ANY($2)
			GROUP BY campaign_id, report_date`
	default:
		return `
			SELECT entity_type, entity_id, campaign_id, ad_group_id, match_type, '' AS source_asin,
			       report_date, SUM(impressions), SUM(clicks), SUM(orders), SUM(spend), SUM(sales)
			FROM sp_keyword_report
			WHERE campaign_id = ANY($1) AND report_date = ANY($2)
			GROUP BY entity_type, entity_id, campaign_id, ad_group_id, match_type, report_date`
	}
}

type PostgresStreamSource struct {
	db *sql.DB
}

func NewStreamSource(reportDB *database.ReportDB) StreamSource {
	return &PostgresStreamSource{db: reportDB.DB}
}

func (s *PostgresStreamSource) FetchDaily(ctx context.Context, grain Grain, campaignIDs []string, dates []time.Time) ([]Row, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	return scanRows(ctx, s.db, streamQuery(grain), campaignIDs, dates)
}

func streamQuery(grain Grain) string {
	switch grain {
	case GrainSearchTerm:
		return `
			SELECT 'searchTerm', search_term, campaign_id, ad_group_id, '' AS match_type, source_asin,
			       event_date, SUM(impressions), SUM(clicks), SUM(orders), SUM(spend), SUM(sales)
			FROM ads_stream_events
			WHERE campaign_id = ANY($1) AND event_date = ANY($2) AND search_term <> ''
			GROUP BY search_term, campaign_id, ad_group_id, source_asin, event_date`
	case GrainCampaign:
		return `
			SELECT 'campaign', campaign_id, campaign_id, '' AS ad_group_id, '' AS match_type, '' AS source_asin,
			       event_date, SUM(impressions), SUM(clicks), SUM(orders), SUM(spend), SUM(sales)
			FROM ads_stream_events
			WHERE campaign_id = ANY($1) AND event_date = ANY($2)
			GROUP BY campaign_id, event_date`
	default:
		return `
			SELECT entity_type, entity_id, campaign_id, ad_group_id, match_type, '' AS source_asin,
			       event_date, SUM(impressions), SUM(clicks), SUM(orders), SUM(spend), SUM(sales)
			FROM ads_stream_events
			WHERE campaign_id = ANY($1) AND event_date = ANY($2) AND entity_id <> ''
			GROUP BY entity_type, entity_id, campaign_id, ad_group_id, match_type, event_date`
	}
}

func scanRows(ctx context.Context, db *sql.DB, query string, campaignIDs []string, dates []time.Time) ([]Row, error) {
	rows, err := db.QueryContext(ctx, query, pq.Array(campaignIDs), pq.Array(dates))
	if err != nil {
		return nil, fmt.Errorf("performance query: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var entityType, first string
		if err := rows.Scan(&entityType, &first, &r.CampaignID, &r.AdGroupID, &r.MatchType, &r.SourceASIN,
			&r.Date, &r.Impressions, &r.Clicks, &r.Orders, &r.Spend, &r.Sales); err != nil {
			return nil, err
		}
		r.EntityType = EntityType(entityType)
		if r.EntityType == EntitySearchTerm {
			r.Text = first
		} else {
			r.EntityID = first
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
