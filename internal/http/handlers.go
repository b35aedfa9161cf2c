package http

import (
	"errors"
	"net/http"
	"strconv"

	"vytraty/internal/core"
	"vytraty/internal/log"
	"vytraty/internal/services"
	"vytraty/internal/state"
)

type periodResponse struct {
	Month int    `json:"month"`
	Year  int    `json:"year"`
	Label string `json:"label"`
}

func toPeriodResponse(p core.Period) periodResponse {
	return periodResponse{Month: p.Month, Year: p.Year, Label: p.Label()}
}

type summaryResponse struct {
	Period              periodResponse     `json:"period"`
	Income              core.Money         `json:"income"`
	Expense             core.Money         `json:"expense"`
	Balance             core.Money         `json:"balance"`
	RegularIncomeTotal  core.Money         `json:"regularIncomeTotal"`
	RegularExpenseTotal core.Money         `json:"regularExpenseTotal"`
	Currency            string             `json:"currency"`
	Syncing             bool               `json:"syncing"`
	Transactions        []core.Transaction `json:"transactions"`
}

// handleSummary returns the aggregated view for one period. Defaults to the
// user's currently selected period; month and year query parameters override
// it without moving the selection.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, userID string) {
	store := s.states.Store(userID)

	period, err := parsePeriod(r, store.Period())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// A sync in flight can change the answer at any moment, so serve those
	// requests uncached.
	key := summaryCacheKey(userID, period)
	if s.summaryCache != nil && !store.Syncing() {
		if cached, ok := s.summaryCache.Get(key); ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	stats := store.MonthlyStats(period)
	resp := summaryResponse{
		Period:              toPeriodResponse(period),
		Income:              stats.Income,
		Expense:             stats.Expense,
		Balance:             stats.Balance,
		RegularIncomeTotal:  stats.RegularIncomeTotal,
		RegularExpenseTotal: stats.RegularExpenseTotal,
		Currency:            store.Settings().Currency,
		Syncing:             store.Syncing(),
		Transactions:        store.MonthTransactions(period),
	}
	if resp.Transactions == nil {
		resp.Transactions = []core.Transaction{}
	}

	if s.summaryCache != nil && !resp.Syncing {
		s.summaryCache.Set(key, resp)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, userID string) {
	store := s.states.Store(userID)

	var transactions []core.Transaction
	if r.URL.Query().Has("month") || r.URL.Query().Has("year") {
		period, err := parsePeriod(r, store.Period())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		transactions = store.MonthTransactions(period)
	} else {
		transactions = store.Transactions()
	}
	if transactions == nil {
		transactions = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": transactions})
}

type createTransactionRequest struct {
	Type        string     `json:"type"`
	Amount      core.Money `json:"amount"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Date        string     `json:"date"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	var req createTransactionRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date")
		return
	}

	t := core.Transaction{
		Type:        core.TransactionType(req.Type),
		Amount:      req.Amount,
		Description: sanitizeInput(req.Description),
		Category:    sanitizeInput(req.Category),
		Date:        date,
	}

	created, err := s.transactions.Add(r.Context(), userID, t)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "create transaction rejected",
			log.FieldUserID, userID, log.FieldError, err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.invalidateSummary(userID, core.PeriodOf(created.Date))
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction id")
		return
	}

	store := s.states.Store(userID)
	existing, _ := store.Transaction(id)

	if err := s.transactions.Delete(r.Context(), userID, id); err != nil {
		if errors.Is(err, services.ErrTransactionNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		s.logger.ErrorContext(r.Context(), "delete transaction failed",
			log.FieldUserID, userID, log.FieldTransactionID, id, log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}

	if !existing.Date.IsZero() {
		s.invalidateSummary(userID, core.PeriodOf(existing.Date))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request, userID string) {
	if err := s.sync.Sync(r.Context(), userID); err != nil {
		s.logger.WarnContext(r.Context(), "sync failed",
			log.FieldUserID, userID, log.FieldError, err)
		writeError(w, http.StatusBadGateway, "sync failed")
		return
	}

	store := s.states.Store(userID)
	s.invalidateSummary(userID, store.Period())
	writeJSON(w, http.StatusOK, map[string]any{
		"synced": true,
		"count":  len(store.Transactions()),
	})
}

func (s *Server) handleListRegularPayments(w http.ResponseWriter, r *http.Request, userID string) {
	settings := s.states.Store(userID).Settings()
	incomes := settings.RegularIncomes
	expenses := settings.RegularExpenses
	if incomes == nil {
		incomes = []core.RegularPayment{}
	}
	if expenses == nil {
		expenses = []core.RegularPayment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"regularIncomes":  incomes,
		"regularExpenses": expenses,
	})
}

type createRegularPaymentRequest struct {
	Type        string     `json:"type"`
	Amount      core.Money `json:"amount"`
	Description string     `json:"description"`
	DayOfMonth  int        `json:"dayOfMonth"`
}

func (s *Server) handleCreateRegularPayment(w http.ResponseWriter, r *http.Request, userID string) {
	var req createRegularPaymentRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := s.regularPayments.Add(r.Context(), userID, core.RegularPayment{
		Type:        core.TransactionType(req.Type),
		Amount:      req.Amount,
		Description: sanitizeInput(req.Description),
		DayOfMonth:  req.DayOfMonth,
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	// Recurring totals count in every period, so no single key covers it.
	s.invalidateAllSummaries()
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteRegularPayment(w http.ResponseWriter, r *http.Request, userID string) {
	id := r.PathValue("id")
	if err := s.regularPayments.Delete(r.Context(), userID, id); err != nil {
		if errors.Is(err, services.ErrRegularPaymentNotFound) {
			writeError(w, http.StatusNotFound, "regular payment not found")
			return
		}
		s.logger.ErrorContext(r.Context(), "delete regular payment failed",
			log.FieldUserID, userID, log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	s.invalidateAllSummaries()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, userID string) {
	categories := s.states.Store(userID).Settings().Categories
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request, userID string) {
	writeJSON(w, http.StatusOK, s.states.Store(userID).Settings())
}

type updateSettingsRequest struct {
	Currency     *string   `json:"currency"`
	Categories   *[]string `json:"categories"`
	FamilyUserID *string   `json:"familyUserId"`
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request, userID string) {
	var req updateSettingsRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated := s.settings.Update(r.Context(), userID, state.SettingsPatch{
		Currency:     req.Currency,
		Categories:   req.Categories,
		FamilyUserID: req.FamilyUserID,
	})
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleGetPeriod(w http.ResponseWriter, r *http.Request, userID string) {
	writeJSON(w, http.StatusOK, toPeriodResponse(s.states.Store(userID).Period()))
}

func (s *Server) handlePreviousPeriod(w http.ResponseWriter, r *http.Request, userID string) {
	writeJSON(w, http.StatusOK, toPeriodResponse(s.states.Store(userID).GoToPreviousMonth()))
}

func (s *Server) handleNextPeriod(w http.ResponseWriter, r *http.Request, userID string) {
	writeJSON(w, http.StatusOK, toPeriodResponse(s.states.Store(userID).GoToNextMonth()))
}

type setPeriodRequest struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

func (s *Server) handleSetPeriod(w http.ResponseWriter, r *http.Request, userID string) {
	var req setPeriodRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	target := core.Period{Month: req.Month, Year: req.Year}
	if !target.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "month must be between 0 and 11")
		return
	}
	writeJSON(w, http.StatusOK, toPeriodResponse(s.states.Store(userID).GoToPeriod(target)))
}

func summaryCacheKey(userID string, p core.Period) string {
	return userID + "-" + strconv.Itoa(p.Year) + "-" + strconv.Itoa(p.Month)
}

func (s *Server) invalidateSummary(userID string, p core.Period) {
	if s.summaryCache != nil {
		s.summaryCache.Delete(summaryCacheKey(userID, p))
	}
}

func (s *Server) invalidateAllSummaries() {
	if s.summaryCache != nil {
		s.summaryCache.Clear()
	}
}
