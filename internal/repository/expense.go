package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/spendlog/spendlog/internal/model"
)

// ErrExpenseNotFound is returned when no expense with the given ID belongs to the owner.
var ErrExpenseNotFound = errors.New("expense not found")

// ExpenseFilter selects one owner's expenses for listing and counting.
type ExpenseFilter struct {
	OwnerID int64
	// Categories restricts results when non-empty.
	Categories []model.Category
	Limit      int
	Offset     int
}

// expenseColumns lists columns in scanExpense order. Amount is read as text
// so the stored scale survives the round trip.
const expenseColumns = `id, owner_id, category, amount::text, description, date, created_at, updated_at`

// CreateExpense inserts an expense and fills in ID and timestamps.
func (r *Repository) CreateExpense(ctx context.Context, expense *model.Expense) error {
	query := `
		INSERT INTO expenses (owner_id, category, amount, description, date)
		VALUES ($1, $2, $3::text::numeric, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		expense.OwnerID,
		string(expense.Category),
		expense.Amount.String(),
		expense.Description,
		expense.Date,
	).Scan(&expense.ID, &expense.CreatedAt, &expense.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}

	return nil
}

// GetExpense retrieves an expense by ID scoped to its owner.
func (r *Repository) GetExpense(ctx context.Context, ownerID, id int64) (*model.Expense, error) {
	query := `SELECT ` + expenseColumns + `
		FROM expenses
		WHERE id = $1 AND owner_id = $2
	`

	expense, err := scanExpense(r.db.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExpenseNotFound
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	return expense, nil
}

// GetExpenseForUpdate is GetExpense with a row lock held until the
// surrounding transaction ends. Call it through InTx.
func (r *Repository) GetExpenseForUpdate(ctx context.Context, ownerID, id int64) (*model.Expense, error) {
	query := `SELECT ` + expenseColumns + `
		FROM expenses
		WHERE id = $1 AND owner_id = $2
		FOR UPDATE
	`

	expense, err := scanExpense(r.db.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExpenseNotFound
		}
		return nil, fmt.Errorf("failed to lock expense: %w", err)
	}

	return expense, nil
}

// ListExpenses returns one page of the owner's expenses, newest date first.
func (r *Repository) ListExpenses(ctx context.Context, filter ExpenseFilter) ([]*model.Expense, error) {
	where, args := filter.where()
	query := fmt.Sprintf(`SELECT %s
		FROM expenses
		WHERE %s
		ORDER BY date DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, expenseColumns, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]*model.Expense, 0, filter.Limit)
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}

	return expenses, nil
}

// CountExpenses returns how many expenses match the filter, ignoring Limit and Offset.
func (r *Repository) CountExpenses(ctx context.Context, filter ExpenseFilter) (int64, error) {
	where, args := filter.where()

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM expenses WHERE `+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count expenses: %w", err)
	}

	return total, nil
}

// UpdateExpense writes the mutable fields and bumps updated_at.
func (r *Repository) UpdateExpense(ctx context.Context, expense *model.Expense) error {
	query := `
		UPDATE expenses
		SET category = $3, amount = $4::text::numeric, description = $5, date = $6, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query,
		expense.ID,
		expense.OwnerID,
		string(expense.Category),
		expense.Amount.String(),
		expense.Description,
		expense.Date,
	).Scan(&expense.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrExpenseNotFound
		}
		return fmt.Errorf("failed to update expense: %w", err)
	}

	return nil
}

// DeleteExpense hard-deletes an owned expense.
func (r *Repository) DeleteExpense(ctx context.Context, ownerID, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrExpenseNotFound
	}

	return nil
}

func (f ExpenseFilter) where() (string, []any) {
	if len(f.Categories) == 0 {
		return "owner_id = $1", []any{f.OwnerID}
	}

	categories := make([]string, len(f.Categories))
	for i, c := range f.Categories {
		categories[i] = string(c)
	}
	return "owner_id = $1 AND category = ANY($2::text[])", []any{f.OwnerID, pq.Array(categories)}
}

func scanExpense(row pgx.Row) (*model.Expense, error) {
	var (
		e        model.Expense
		category string
		amount   string
	)

	err := row.Scan(
		&e.ID,
		&e.OwnerID,
		&category,
		&amount,
		&e.Description,
		&e.Date,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Category = model.Category(category)
	e.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}

	return &e, nil
}
