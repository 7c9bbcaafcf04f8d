package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"account-settlement-system/models"
	"account-settlement-system/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EarningsSyncClient pulls daily earnings rows from the game stats service
// and mirrors them into earning_records for settlement generation.
type EarningsSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewEarningsSyncClient(db *gorm.DB) *EarningsSyncClient {
	baseURL := os.Getenv("STATS_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("STATS_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("STATS_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("STATS_SERVICE_TOKEN environment variable is required for earnings sync")
	}

	return &EarningsSyncClient{
		BaseURL:    baseURL,
		Token:      token,
		DB:         db,
		HTTPClient: utils.HTTPClient,
	}
}

func (c *EarningsSyncClient) GetDailyEarnings(ctx context.Context, since time.Time) ([]models.EarningRecord, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/earnings", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call stats service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("stats service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Earnings []models.EarningRecord `json:"earnings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode stats service response: %w", err)
	}

	return response.Earnings, nil
}

// PollEarnings mirrors the upstream daily earnings into the local table on
// a fixed interval. Upstream rows are keyed (env_id, stat_date) and may be
// re-sent with corrected totals, so upserts overwrite the coin columns.
func PollEarnings(ctx context.Context, client *EarningsSyncClient, pollInterval time.Duration) {
	log.Println("[EarningsSync] Starting earnings polling...")
	lastSyncTime := time.Now().UTC().Add(-72 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[EarningsSync] Earnings polling stopped.")
			return
		case <-ticker.C:
			logTime := time.Now().UTC()
			log.Printf("[EarningsSync] Polling for earnings since %s...", lastSyncTime.Format(time.RFC3339))

			earnings, err := client.GetDailyEarnings(ctx, lastSyncTime)
			if err != nil {
				log.Printf("[EarningsSync] Error polling earnings: %v", err)
				continue
			}

			count := len(earnings)
			if count == 0 {
				log.Println("[EarningsSync] No new earnings rows.")
				continue
			}

			if err := client.DB.Clauses(
				clause.OnConflict{
					Columns: []clause.Column{{Name: "env_id"}, {Name: "stat_date"}},
					DoUpdates: clause.AssignmentColumns([]string{
						"user_id",
						"coins_total",
						"coins_from_box",
						"coins_from_look",
						"coins_from_food",
						"coins_from_search",
						"updated_at",
					}),
				},
			).CreateInBatches(&earnings, 500).Error; err != nil {
				log.Printf("[EarningsSync] Failed to upsert %d earning row(s): %v", count, err)
				// Keep the window; retry the same range on the next tick
				continue
			}

			lastSyncTime = logTime
			log.Printf("[EarningsSync] Upserted %d earning row(s).", count)
		}
	}
}
