package dto

import (
	"time"

	"github.com/spendlog/spendlog/internal/model"
	"github.com/spendlog/spendlog/internal/service"
)

// CreateExpenseRequest is the body of POST /expenses.
// Ownership comes from the bearer token, never from the body.
type CreateExpenseRequest struct {
	Category    Text   `json:"category"`
	Amount      Amount `json:"amount"`
	Description *Text  `json:"description"`
	Date        Text   `json:"date"`
}

// ToInput converts the request to service input.
func (r CreateExpenseRequest) ToInput() service.CreateExpenseInput {
	input := service.CreateExpenseInput{
		Category: r.Category.Value,
		Amount:   string(r.Amount),
		Date:     r.Date.Value,
	}
	if r.Description != nil {
		input.Description = &r.Description.Value
		input.DescriptionNotText = !r.Description.IsString
	}
	return input
}

// UpdateExpenseRequest is the body of PATCH /expenses/{id}.
// A null description clears it; null for any other field fails validation.
type UpdateExpenseRequest struct {
	Category    Optional[Text]   `json:"category"`
	Amount      Optional[Amount] `json:"amount"`
	Description Optional[Text]   `json:"description"`
	Date        Optional[Text]   `json:"date"`
}

// ToInput converts the request to service input.
func (r UpdateExpenseRequest) ToInput() service.UpdateExpenseInput {
	input := service.UpdateExpenseInput{
		Category:           textPtr(r.Category),
		Description:        textPtr(r.Description),
		DescriptionNotText: r.Description.Set && !r.Description.Null && !r.Description.Value.IsString,
		Date:               textPtr(r.Date),
	}
	if amount := r.Amount.Ptr(); amount != nil {
		s := string(*amount)
		input.Amount = &s
	}
	return input
}

// textPtr is Optional.Ptr for Text, unwrapped to its string content.
func textPtr(o Optional[Text]) *string {
	t := o.Ptr()
	if t == nil {
		return nil
	}
	return &t.Value
}

// ExpenseResponse represents an expense in API responses.
type ExpenseResponse struct {
	ID          int64     `json:"id"`
	Category    string    `json:"category"`
	Description *string   `json:"description"`
	Amount      string    `json:"amount"`
	Date        string    `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PageMeta describes one page of a listing.
type PageMeta struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
}

// ExpenseListResponse represents a page of expenses.
type ExpenseListResponse struct {
	Data []ExpenseResponse `json:"data"`
	Meta PageMeta          `json:"meta"`
}

// ToExpenseResponse converts an Expense model to its DTO.
func ToExpenseResponse(e *model.Expense) *ExpenseResponse {
	return &ExpenseResponse{
		ID:          e.ID,
		Category:    string(e.Category),
		Description: e.Description,
		Amount:      model.FormatAmount(e.Amount),
		Date:        model.FormatDate(e.Date),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// ToExpenseListResponse converts a service page to its DTO.
func ToExpenseListResponse(page *service.ExpensePage) *ExpenseListResponse {
	data := make([]ExpenseResponse, len(page.Items))
	for i, e := range page.Items {
		data[i] = *ToExpenseResponse(e)
	}
	return &ExpenseListResponse{
		Data: data,
		Meta: PageMeta{
			Page:    page.Page,
			PerPage: page.PerPage,
			Total:   page.Total,
			Pages:   page.Pages,
		},
	}
}
