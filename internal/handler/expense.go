package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/spendlog/spendlog/internal/auth"
	"github.com/spendlog/spendlog/internal/handler/dto"
	"github.com/spendlog/spendlog/internal/middleware"
	"github.com/spendlog/spendlog/internal/service"
)

// ExpenseHandler handles HTTP requests for the caller's expenses.
type ExpenseHandler struct {
	svc    *service.ExpenseService
	logger *slog.Logger
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(svc *service.ExpenseService, logger *slog.Logger) *ExpenseHandler {
	return &ExpenseHandler{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /expenses.
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustIdentityFromContext(r.Context())
	query := r.URL.Query()

	input := service.ListExpensesInput{
		OwnerID:    identity.UserID,
		Page:       queryInt(query.Get("page"), service.DefaultPage),
		PerPage:    queryInt(query.Get("per_page"), service.DefaultPerPage),
		Categories: splitCategories(query["category"]),
	}

	page, err := h.svc.List(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToExpenseListResponse(page))
}

// Create handles POST /expenses.
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustIdentityFromContext(r.Context())

	var req dto.CreateExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	expense, err := h.svc.Create(r.Context(), identity.UserID, req.ToInput())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("expense_created",
		"expense_id", expense.ID,
		"user_id", identity.UserID,
		"category", expense.Category,
	)

	writeJSON(w, http.StatusCreated, dto.ToExpenseResponse(expense))
}

// Get handles GET /expenses/{id}.
func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustIdentityFromContext(r.Context())
	id, ok := expenseID(r)
	if !ok {
		writeNotFound(w)
		return
	}

	expense, err := h.svc.Get(r.Context(), identity.UserID, id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToExpenseResponse(expense))
}

// Update handles PATCH /expenses/{id}.
func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustIdentityFromContext(r.Context())
	id, ok := expenseID(r)
	if !ok {
		writeNotFound(w)
		return
	}

	var req dto.UpdateExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	expense, err := h.svc.Update(r.Context(), identity.UserID, id, req.ToInput())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToExpenseResponse(expense))
}

// Delete handles DELETE /expenses/{id}.
func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustIdentityFromContext(r.Context())
	id, ok := expenseID(r)
	if !ok {
		writeNotFound(w)
		return
	}

	if err := h.svc.Delete(r.Context(), identity.UserID, id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("expense_deleted", "expense_id", id, "user_id", identity.UserID)
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "deleted"})
}

// handleServiceError maps service errors to HTTP responses.
func (h *ExpenseHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrExpenseNotFound):
		writeNotFound(w)
	case errors.Is(err, service.ErrInvalidCategory):
		writeError(w, http.StatusUnprocessableEntity, "INVALID_CATEGORY", err.Error())
	case errors.Is(err, service.ErrInvalidAmount):
		writeError(w, http.StatusUnprocessableEntity, "INVALID_AMOUNT", err.Error())
	case errors.Is(err, service.ErrInvalidDate):
		writeError(w, http.StatusUnprocessableEntity, "INVALID_DATE", err.Error())
	case errors.Is(err, service.ErrInvalidDescription):
		writeError(w, http.StatusUnprocessableEntity, "INVALID_DESCRIPTION", err.Error())
	default:
		h.logger.Error("internal_error",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
		writeInternalError(w)
	}
}

// expenseID parses the {id} path value. Anything that is not a positive
// integer cannot name an expense.
func expenseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryInt parses an integer query parameter, falling back to def when the
// value is absent or not an integer.
func queryInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// splitCategories accepts both ?category=Travel,Food and repeated params.
func splitCategories(values []string) []string {
	var out []string
	for _, v := range values {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				out = append(out, c)
			}
		}
	}
	return out
}
