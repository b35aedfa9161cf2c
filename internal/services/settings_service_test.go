package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"vytraty/internal/state"
	"vytraty/internal/webhook"
)

func TestSettingsService_UpdateNotifiesCategoryChanges(t *testing.T) {
	var mu sync.Mutex
	var got []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		got = append(got, body)
		mu.Unlock()
	}))
	defer srv.Close()

	states := state.NewManager(nil, testLogger())
	outbox := webhook.NewOutbox(srv.URL, time.Second, testLogger())
	svc := NewSettingsService(states, outbox, testLogger())

	// A currency-only patch leaves categories alone and stays local.
	currency := "eur"
	updated := svc.Update(context.Background(), "u1", state.SettingsPatch{Currency: &currency})
	if updated.Currency != "eur" {
		t.Fatalf("currency = %q", updated.Currency)
	}
	outbox.Flush()
	mu.Lock()
	if len(got) != 0 {
		t.Fatalf("currency patch should not notify, got %v", got)
	}
	mu.Unlock()

	categories := []string{"Їжа", "Транспорт"}
	updated = svc.Update(context.Background(), "u1", state.SettingsPatch{Categories: &categories})
	if len(updated.Categories) != 2 {
		t.Fatalf("categories = %v", updated.Categories)
	}
	outbox.Flush()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("received %d notifications, want 1", len(got))
	}
	if got[0]["action"] != webhook.ActionUpdateCategories || got[0]["user_id"] != "u1" {
		t.Errorf("payload = %v", got[0])
	}
	if cats, ok := got[0]["categories"].([]any); !ok || len(cats) != 2 {
		t.Errorf("categories payload = %v", got[0]["categories"])
	}
}
