// Package webhook talks to the n8n workflow endpoints that front the
// spreadsheet: a sync endpoint returning the user's full data set, optional
// dedicated endpoints for categories and regular payments, and an outbox
// endpoint receiving transaction mutations.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"vytraty/internal/core"
	"vytraty/internal/log"
	"vytraty/internal/normalize"
)

// maxResponseBytes bounds how much of a webhook response is read.
const maxResponseBytes = 10 << 20

// Config holds the endpoint URLs. Empty side-endpoint URLs disable the
// corresponding fetch.
type Config struct {
	SyncURL            string
	CategoriesURL      string
	RegularPaymentsURL string
	Timeout            time.Duration
}

// UserData is the normalized result of a full user fetch.
type UserData struct {
	Transactions    []core.Transaction
	Categories      []string
	RegularIncomes  []core.RegularPayment
	RegularExpenses []core.RegularPayment
	FamilyUserID    string
}

// SyncClient fetches user data from the webhook endpoints.
type SyncClient struct {
	cfg    Config
	client *http.Client
	logger *log.Logger
	now    func() time.Time
}

// NewSyncClient creates a sync client. A zero timeout defaults to 30s.
func NewSyncClient(cfg Config, logger *log.Logger) *SyncClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &SyncClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.WithComponent(log.ComponentWebhook),
		now:    time.Now,
	}
}

// FetchUserData posts the user id to the sync endpoint and normalizes the
// response. The dedicated category and regular-payment endpoints are fetched
// concurrently and override the base payload's settings parts when they
// succeed; their failures only degrade the result, they never fail the fetch.
func (c *SyncClient) FetchUserData(ctx context.Context, userID string) (UserData, error) {
	raw, err := c.post(ctx, c.cfg.SyncURL, map[string]string{"user_id": userID})
	if err != nil {
		return UserData{}, fmt.Errorf("fetch user data: %w", err)
	}

	res := normalize.Sync(raw, c.now())
	data := UserData{
		Transactions:    res.Transactions,
		Categories:      res.Categories,
		RegularIncomes:  res.RegularIncomes,
		RegularExpenses: res.RegularExpenses,
		FamilyUserID:    res.FamilyUserID,
	}

	g, gctx := errgroup.WithContext(ctx)
	if c.cfg.CategoriesURL != "" {
		g.Go(func() error {
			raw, err := c.post(gctx, c.cfg.CategoriesURL, map[string]string{"user_id": userID})
			if err != nil {
				c.logger.Warn("categories fetch failed, keeping base payload",
					log.FieldUserID, userID, log.FieldError, err)
				return nil
			}
			if cats := normalize.Categories(raw); cats != nil {
				data.Categories = cats
			}
			return nil
		})
	}
	if c.cfg.RegularPaymentsURL != "" {
		g.Go(func() error {
			raw, err := c.post(gctx, c.cfg.RegularPaymentsURL, map[string]string{"user_id": userID})
			if err != nil {
				c.logger.Warn("regular payments fetch failed, keeping base payload",
					log.FieldUserID, userID, log.FieldError, err)
				return nil
			}
			incomes, expenses := normalize.SplitRegularPayments(raw, c.now())
			if incomes != nil || expenses != nil {
				data.RegularIncomes = incomes
				data.RegularExpenses = expenses
			}
			return nil
		})
	}
	g.Wait()

	c.logger.Info("user data fetched",
		log.FieldUserID, userID,
		log.FieldCount, len(data.Transactions))
	return data, nil
}

func (c *SyncClient) post(ctx context.Context, url string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("post %s: unexpected status %d", url, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", url, err)
	}
	return raw, nil
}
