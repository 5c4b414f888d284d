package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/ledger-assistant/internal/ledger"
	"github.com/dvloznov/ledger-assistant/internal/logger"
)

// Stats counts what a sync did (or would do, in a dry run).
type Stats struct {
	Created int
	Updated int
	Deleted int
	Skipped int
	Failed  int
}

// Syncer mirrors the ledger into one Notion database.
type Syncer struct {
	notion     NotionService
	databaseID string
}

// NewSyncer creates a syncer writing to databaseID.
func NewSyncer(notion NotionService, databaseID string) *Syncer {
	return &Syncer{notion: notion, databaseID: databaseID}
}

// Sync makes the Notion database match the ledger: missing transactions are
// created, changed ones updated, and pages without a live transaction
// archived. Individual page failures are logged and counted, not returned.
func (s *Syncer) Sync(ctx context.Context, store ledger.Store, dryRun bool) (Stats, error) {
	log := logger.FromContext(ctx)
	var stats Stats

	log.Info().Bool("dry_run", dryRun).Msg("Starting ledger sync to Notion")

	transactions, err := store.GetAll(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to read ledger: %w", err)
	}

	pages, err := queryAllNotionPages(ctx, s.notion, s.databaseID)
	if err != nil {
		return stats, fmt.Errorf("failed to query Notion pages: %w", err)
	}

	log.Info().
		Int("transaction_count", len(transactions)).
		Int("notion_page_count", len(pages)).
		Msg("Retrieved ledger and Notion state")

	live := make(map[string]bool, len(transactions))
	for _, tx := range transactions {
		live[tx.ID] = true
	}

	existing := make(map[string]notionapi.Page, len(pages))
	for _, page := range pages {
		txID := extractTransactionID(page)
		_, dup := existing[txID]
		if txID != "" && live[txID] && !dup {
			existing[txID] = page
			continue
		}

		if dryRun {
			log.Info().Str("transaction_id", txID).Str("page_id", string(page.ID)).Msg("[DRY RUN] Would delete stale Notion page")
			stats.Deleted++
			continue
		}
		if err := s.notion.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().Err(err).Str("page_id", string(page.ID)).Msg("Failed to delete stale Notion page")
			stats.Failed++
			continue
		}
		stats.Deleted++
	}

	for _, tx := range transactions {
		page, found := existing[tx.ID]
		if found && extractFingerprint(page) == Fingerprint(tx) {
			stats.Skipped++
			continue
		}

		if dryRun {
			if found {
				log.Info().Str("transaction_id", tx.ID).Msg("[DRY RUN] Would update Notion page")
				stats.Updated++
			} else {
				log.Info().Str("transaction_id", tx.ID).Msg("[DRY RUN] Would create Notion page")
				stats.Created++
			}
			continue
		}

		props := TransactionToNotionProperties(tx)
		if found {
			if _, err := s.notion.UpdatePage(ctx, string(page.ID), props); err != nil {
				log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to update Notion page")
				stats.Failed++
				continue
			}
			stats.Updated++
			continue
		}

		if _, err := s.notion.CreatePage(ctx, s.databaseID, props); err != nil {
			log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to create Notion page")
			stats.Failed++
			continue
		}
		stats.Created++
	}

	log.Info().
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Int("deleted", stats.Deleted).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Msg("Ledger sync completed")

	return stats, nil
}

// queryAllNotionPages queries all pages from a Notion database, following
// pagination cursors.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: 100}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
