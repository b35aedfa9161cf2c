package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"vytraty/internal/core"
	"vytraty/internal/log"
)

func testLogger() *log.Logger {
	return log.New(log.DefaultConfig())
}

func TestSyncClient_FetchUserData(t *testing.T) {
	var gotBody map[string]string
	syncSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		io.WriteString(w, `{
			"transactions": [{"money": -120, "категория": "кафе", "дата": "2024-06-01"}],
			"categories": ["Base"],
			"family_user_id": "fam-9"
		}`)
	}))
	defer syncSrv.Close()

	c := NewSyncClient(Config{SyncURL: syncSrv.URL}, testLogger())

	data, err := c.FetchUserData(context.Background(), "42")
	if err != nil {
		t.Fatalf("FetchUserData: %v", err)
	}
	if gotBody["user_id"] != "42" {
		t.Errorf("request body user_id = %q, want 42", gotBody["user_id"])
	}
	if len(data.Transactions) != 1 || data.Transactions[0].Type != core.Expense {
		t.Errorf("transactions = %v", data.Transactions)
	}
	if len(data.Categories) != 1 || data.Categories[0] != "Base" {
		t.Errorf("categories = %v", data.Categories)
	}
	if data.FamilyUserID != "fam-9" {
		t.Errorf("familyUserId = %q", data.FamilyUserID)
	}
}

func TestSyncClient_SideEndpointsOverrideBase(t *testing.T) {
	syncSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"transactions": [], "categories": ["Base"]}`)
	}))
	defer syncSrv.Close()

	catSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `["Override"]`)
	}))
	defer catSrv.Close()

	regSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"назва": "Оренда", "сума": -8000, "день": 3}]`)
	}))
	defer regSrv.Close()

	c := NewSyncClient(Config{
		SyncURL:            syncSrv.URL,
		CategoriesURL:      catSrv.URL,
		RegularPaymentsURL: regSrv.URL,
	}, testLogger())

	data, err := c.FetchUserData(context.Background(), "42")
	if err != nil {
		t.Fatalf("FetchUserData: %v", err)
	}
	if len(data.Categories) != 1 || data.Categories[0] != "Override" {
		t.Errorf("categories = %v, want dedicated endpoint to win", data.Categories)
	}
	if len(data.RegularExpenses) != 1 || data.RegularExpenses[0].DayOfMonth != 3 {
		t.Errorf("regular expenses = %v", data.RegularExpenses)
	}
}

func TestSyncClient_SideEndpointFailureDegrades(t *testing.T) {
	syncSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"transactions": [{"amount": 10}], "categories": ["Base"]}`)
	}))
	defer syncSrv.Close()

	catSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer catSrv.Close()

	c := NewSyncClient(Config{SyncURL: syncSrv.URL, CategoriesURL: catSrv.URL}, testLogger())

	data, err := c.FetchUserData(context.Background(), "42")
	if err != nil {
		t.Fatalf("side endpoint failure must not fail the fetch: %v", err)
	}
	if len(data.Categories) != 1 || data.Categories[0] != "Base" {
		t.Errorf("categories = %v, want base payload kept", data.Categories)
	}
}

func TestSyncClient_BaseEndpointErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewSyncClient(Config{SyncURL: srv.URL}, testLogger())

	if _, err := c.FetchUserData(context.Background(), "42"); err == nil {
		t.Fatal("expected error for non-2xx sync endpoint")
	}
}

func TestOutbox_PostsMutationPayload(t *testing.T) {
	var mu sync.Mutex
	var got []mutationPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p mutationPayload
		json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
	}))
	defer srv.Close()

	o := NewOutbox(srv.URL, 0, testLogger())

	tx := core.Transaction{
		ID:          "t1",
		Type:        core.Expense,
		Amount:      core.Money{Cents: 25000},
		Description: "таксі",
		Category:    "транспорт",
		Date:        testDate(),
	}
	o.NotifyNewTransaction("42", tx)
	o.NotifyDeleteTransaction("42", tx)
	o.Flush()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("received %d notifications, want 2", len(got))
	}

	byAction := map[string]mutationPayload{}
	for _, p := range got {
		byAction[p.Action] = p
	}
	created, ok := byAction[ActionNewTransaction]
	if !ok {
		t.Fatal("no new_transaction notification received")
	}
	if created.UserID != "42" || created.ID != "t1" {
		t.Errorf("payload = %+v", created)
	}
	if created.Amount != "250.00" {
		t.Errorf("amount = %q, want 250.00", created.Amount)
	}
	if created.Money != "-250.00" {
		t.Errorf("legacy money field = %q, want signed -250.00", created.Money)
	}
	if created.Date != "2024-05-01" || created.Data != created.Date {
		t.Errorf("date fields = %q / %q", created.Date, created.Data)
	}
	if _, ok := byAction[ActionDeleteTransaction]; !ok {
		t.Error("no delete_transaction notification received")
	}
}

func TestOutbox_PostsRegularPaymentAndCategoryPayloads(t *testing.T) {
	var mu sync.Mutex
	var got []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p map[string]any
		json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
	}))
	defer srv.Close()

	o := NewOutbox(srv.URL, 0, testLogger())

	payment := core.RegularPayment{
		ID:          "rp1",
		Type:        core.Expense,
		Amount:      core.Money{Cents: 800000},
		Description: "оренда",
		DayOfMonth:  5,
	}
	o.NotifyNewRegularPayment("42", payment)
	o.NotifyDeleteRegularPayment("42", payment)
	o.NotifyCategoriesChanged("42", []string{"Їжа", "Транспорт"})
	o.Flush()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 {
		t.Fatalf("received %d notifications, want 3", len(got))
	}

	byAction := map[string]map[string]any{}
	for _, p := range got {
		byAction[p["action"].(string)] = p
	}
	created, ok := byAction[ActionNewRegularPayment]
	if !ok {
		t.Fatal("no new_regular_payment notification received")
	}
	if created["user_id"] != "42" || created["id"] != "rp1" {
		t.Errorf("payload = %v", created)
	}
	if created["amount"] != "8000.00" || created["money"] != "-8000.00" {
		t.Errorf("amount fields = %v / %v", created["amount"], created["money"])
	}
	if created["dayOfMonth"] != float64(5) {
		t.Errorf("dayOfMonth = %v", created["dayOfMonth"])
	}
	if _, ok := byAction[ActionDeleteRegularPayment]; !ok {
		t.Error("no delete_regular_payment notification received")
	}
	cats, ok := byAction[ActionUpdateCategories]
	if !ok {
		t.Fatal("no update_categories notification received")
	}
	if list, ok := cats["categories"].([]any); !ok || len(list) != 2 {
		t.Errorf("categories = %v", cats["categories"])
	}
}

func TestOutbox_DisabledWithoutURL(t *testing.T) {
	o := NewOutbox("", 0, testLogger())
	o.NotifyNewTransaction("42", core.Transaction{ID: "t1"})
	o.Flush() // must not hang or panic
}

func testDate() time.Time {
	return time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
}
