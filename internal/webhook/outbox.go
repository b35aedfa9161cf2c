package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"vytraty/internal/core"
	"vytraty/internal/log"
)

// Outbox actions understood by the receiving workflow.
const (
	ActionNewTransaction       = "new_transaction"
	ActionDeleteTransaction    = "delete_transaction"
	ActionNewRegularPayment    = "new_regular_payment"
	ActionDeleteRegularPayment = "delete_regular_payment"
	ActionUpdateCategories     = "update_categories"
)

// Outbox posts transaction mutations to the webhook without awaiting the
// result: local state is already updated when a notification goes out, and a
// lost notification only costs remote freshness until the next sync.
type Outbox struct {
	url    string
	client *http.Client
	logger *log.Logger
	wg     sync.WaitGroup
}

// NewOutbox creates an outbox for the given URL. An empty URL yields a
// disabled outbox whose notifications are dropped.
func NewOutbox(url string, timeout time.Duration, logger *log.Logger) *Outbox {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Outbox{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger.WithComponent(log.ComponentWebhook),
	}
}

// mutationPayload mirrors the wire format of the spreadsheet workflows. The
// "money" field is the legacy signed amount older workflow versions read;
// "data" duplicates the date under its legacy key.
type mutationPayload struct {
	Action      string `json:"action"`
	UserID      string `json:"user_id"`
	ID          string `json:"id"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Money       string `json:"money"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	Data        string `json:"data"`
}

// regularPaymentPayload carries a regular-payment mutation. The signed
// "money" field follows the same legacy convention as transactions.
type regularPaymentPayload struct {
	Action      string `json:"action"`
	UserID      string `json:"user_id"`
	ID          string `json:"id"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Money       string `json:"money"`
	Description string `json:"description"`
	DayOfMonth  int    `json:"dayOfMonth"`
}

// categoriesPayload carries the full category list after a settings change.
type categoriesPayload struct {
	Action     string   `json:"action"`
	UserID     string   `json:"user_id"`
	Categories []string `json:"categories"`
}

// NotifyNewTransaction dispatches a new_transaction notification.
func (o *Outbox) NotifyNewTransaction(userID string, t core.Transaction) {
	o.dispatch(ActionNewTransaction, userID, t.ID, payloadFor(ActionNewTransaction, userID, t))
}

// NotifyDeleteTransaction dispatches a delete_transaction notification.
func (o *Outbox) NotifyDeleteTransaction(userID string, t core.Transaction) {
	o.dispatch(ActionDeleteTransaction, userID, t.ID, payloadFor(ActionDeleteTransaction, userID, t))
}

// NotifyNewRegularPayment dispatches a new_regular_payment notification.
func (o *Outbox) NotifyNewRegularPayment(userID string, p core.RegularPayment) {
	o.dispatch(ActionNewRegularPayment, userID, p.ID, regularPaymentPayloadFor(ActionNewRegularPayment, userID, p))
}

// NotifyDeleteRegularPayment dispatches a delete_regular_payment notification.
func (o *Outbox) NotifyDeleteRegularPayment(userID string, p core.RegularPayment) {
	o.dispatch(ActionDeleteRegularPayment, userID, p.ID, regularPaymentPayloadFor(ActionDeleteRegularPayment, userID, p))
}

// NotifyCategoriesChanged dispatches the user's full category list.
func (o *Outbox) NotifyCategoriesChanged(userID string, categories []string) {
	if categories == nil {
		categories = []string{}
	}
	o.dispatch(ActionUpdateCategories, userID, "", categoriesPayload{
		Action:     ActionUpdateCategories,
		UserID:     userID,
		Categories: categories,
	})
}

func payloadFor(action, userID string, t core.Transaction) mutationPayload {
	signed := t.Amount
	if t.Type == core.Expense {
		signed.Cents = -signed.Cents
	}
	date := t.Date.Format("2006-01-02")
	return mutationPayload{
		Action:      action,
		UserID:      userID,
		ID:          t.ID,
		Type:        string(t.Type),
		Amount:      t.Amount.String(),
		Money:       signed.String(),
		Description: t.Description,
		Category:    t.Category,
		Date:        date,
		Data:        date,
	}
}

func regularPaymentPayloadFor(action, userID string, p core.RegularPayment) regularPaymentPayload {
	signed := p.Amount
	if p.Type == core.Expense {
		signed.Cents = -signed.Cents
	}
	return regularPaymentPayload{
		Action:      action,
		UserID:      userID,
		ID:          p.ID,
		Type:        string(p.Type),
		Amount:      p.Amount.String(),
		Money:       signed.String(),
		Description: p.Description,
		DayOfMonth:  p.DayOfMonth,
	}
}

func (o *Outbox) dispatch(action, userID, entityID string, payload any) {
	if o.url == "" {
		return
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		body, err := json.Marshal(payload)
		if err != nil {
			o.logger.Error("failed to encode outbox payload",
				log.FieldAction, action, log.FieldError, err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), o.client.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
		if err != nil {
			o.logger.Error("failed to build outbox request",
				log.FieldAction, action, log.FieldError, err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := o.client.Do(req)
		if err != nil {
			o.logger.Warn("outbox notification failed",
				log.FieldAction, action,
				log.FieldUserID, userID,
				log.FieldEntityID, entityID,
				log.FieldError, err)
			return
		}
		resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			o.logger.Warn("outbox notification rejected",
				log.FieldAction, action,
				log.FieldUserID, userID,
				log.FieldEntityID, entityID,
				log.FieldStatusCode, resp.StatusCode)
			return
		}

		o.logger.Debug("outbox notification delivered",
			log.FieldAction, action,
			log.FieldUserID, userID,
			log.FieldEntityID, entityID)
	}()
}

// Flush waits for all in-flight notifications. Used on shutdown and in tests.
func (o *Outbox) Flush() {
	o.wg.Wait()
}
