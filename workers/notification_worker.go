package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"clan-attendance-system/models"
	"clan-attendance-system/utils"

	"gorm.io/gorm"
)

// NotifyClient delivers queued notifications to the external webhook.
type NotifyClient struct {
	WebhookURL string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewNotifyClient(db *gorm.DB) *NotifyClient {
	webhookURL := os.Getenv("NOTIFY_WEBHOOK_URL")
	if webhookURL == "" {
		log.Fatal("NOTIFY_WEBHOOK_URL environment variable is required")
	}
	token := os.Getenv("CLAN_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("CLAN_SERVICE_TOKEN environment variable is required for notification dispatch")
	}

	return &NotifyClient{
		WebhookURL: webhookURL,
		Token:      token,
		DB:         db,
		HTTPClient: utils.HTTPClient,
	}
}

// Deliver POSTs a single notification to the webhook.
func (c *NotifyClient) Deliver(ctx context.Context, n *models.Notification) error {
	payload, err := json.Marshal(map[string]string{
		"user_id": n.UserID,
		"channel": n.Channel,
		"content": n.Content,
	})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call notification webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// PollNotifications drains pending notifications on a fixed interval. A
// failed delivery marks the row failed; it is not retried.
func PollNotifications(ctx context.Context, client *NotifyClient, pollInterval time.Duration) {
	log.Println("Starting notification dispatch worker...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Notification dispatch stopped.")
			return
		case <-ticker.C:
			var pending []models.Notification
			err := client.DB.WithContext(ctx).
				Where("status = ?", "pending").
				Order("created_at ASC").
				Limit(50).
				Find(&pending).Error
			if err != nil {
				log.Printf("❌ Error fetching pending notifications: %v", err)
				continue
			}
			if len(pending) == 0 {
				continue
			}

			sent := 0
			for i := range pending {
				n := &pending[i]
				if err := client.Deliver(ctx, n); err != nil {
					log.Printf("❌ Failed to deliver notification %s: %v", n.ID, err)
					n.Status = "failed"
				} else {
					now := time.Now()
					n.Status = "sent"
					n.SentAt = &now
					sent++
				}
				if err := client.DB.WithContext(ctx).Save(n).Error; err != nil {
					log.Printf("❌ Failed to update notification %s: %v", n.ID, err)
				}
			}
			log.Printf("📤 Dispatched %d/%d notification(s)", sent, len(pending))
		}
	}
}
