//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spendlog/spendlog/internal/model"
	"github.com/spendlog/spendlog/internal/testutil"
)

// ============================================================================
// User Repository Integration Tests
// ============================================================================

func TestIntegrationUserRepository_CreateAndGet(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	user := testutil.NewTestUser(t, "alice")
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.ID == 0 || user.CreatedAt.IsZero() {
		t.Fatalf("CreateUser should fill ID and CreatedAt, got %+v", user)
	}

	byName, err := repo.GetUserByUsername(ctx, user.Username)
	if err != nil {
		t.Fatalf("GetUserByUsername failed: %v", err)
	}
	if byName.ID != user.ID || byName.PasswordHash != user.PasswordHash {
		t.Errorf("GetUserByUsername mismatch: got %+v", byName)
	}

	byID, err := repo.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if byID.Username != user.Username {
		t.Errorf("Username mismatch: got %q, want %q", byID.Username, user.Username)
	}
}

func TestIntegrationUserRepository_DuplicateUsername(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	first := testutil.NewTestUser(t, "dup")
	if err := repo.CreateUser(ctx, first); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	second := &model.User{Username: first.Username, PasswordHash: "other"}
	if err := repo.CreateUser(ctx, second); !errors.Is(err, ErrUsernameExists) {
		t.Errorf("Expected ErrUsernameExists, got: %v", err)
	}
}

func TestIntegrationUserRepository_UsernameCaseSensitive(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	lower := &model.User{Username: "casey", PasswordHash: "h"}
	upper := &model.User{Username: "Casey", PasswordHash: "h"}
	if err := repo.CreateUser(ctx, lower); err != nil {
		t.Fatalf("CreateUser lower failed: %v", err)
	}
	if err := repo.CreateUser(ctx, upper); err != nil {
		t.Fatalf("CreateUser upper failed: %v", err)
	}

	if _, err := repo.GetUserByUsername(ctx, "CASEY"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got: %v", err)
	}
}

// ============================================================================
// Expense Repository Integration Tests
// ============================================================================

func TestIntegrationExpenseRepository_RoundTrip(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	owner := createTestUser(t, ctx, repo)

	desc := "taxi"
	expense := testutil.NewTestExpense(t, owner.ID)
	expense.Category = model.CategoryTravel
	expense.Amount = decimal.RequireFromString("19.99")
	expense.Description = &desc

	if err := repo.CreateExpense(ctx, expense); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	got, err := repo.GetExpense(ctx, owner.ID, expense.ID)
	if err != nil {
		t.Fatalf("GetExpense failed: %v", err)
	}
	if model.FormatAmount(got.Amount) != "19.99" {
		t.Errorf("Amount = %s, want 19.99", model.FormatAmount(got.Amount))
	}
	if model.FormatDate(got.Date) != "2024-01-15" {
		t.Errorf("Date = %s, want 2024-01-15", model.FormatDate(got.Date))
	}
	if got.Description == nil || *got.Description != "taxi" {
		t.Errorf("Description = %v, want taxi", got.Description)
	}
	if got.Category != model.CategoryTravel {
		t.Errorf("Category = %s, want Travel", got.Category)
	}
}

func TestIntegrationExpenseRepository_OwnerScoping(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	alice := createTestUser(t, ctx, repo)
	bob := createTestUser(t, ctx, repo)

	expense := testutil.NewTestExpense(t, alice.ID)
	if err := repo.CreateExpense(ctx, expense); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	if _, err := repo.GetExpense(ctx, bob.ID, expense.ID); !errors.Is(err, ErrExpenseNotFound) {
		t.Errorf("GetExpense by other owner: expected ErrExpenseNotFound, got %v", err)
	}
	if err := repo.DeleteExpense(ctx, bob.ID, expense.ID); !errors.Is(err, ErrExpenseNotFound) {
		t.Errorf("DeleteExpense by other owner: expected ErrExpenseNotFound, got %v", err)
	}

	total, err := repo.CountExpenses(ctx, ExpenseFilter{OwnerID: bob.ID})
	if err != nil {
		t.Fatalf("CountExpenses failed: %v", err)
	}
	if total != 0 {
		t.Errorf("bob total = %d, want 0", total)
	}
}

func TestIntegrationExpenseRepository_ListOrderingAndPaging(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	owner := createTestUser(t, ctx, repo)

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		e := testutil.NewTestExpense(t, owner.ID)
		e.Date = base.AddDate(0, 0, i%5)
		if i%2 == 0 {
			e.Category = model.CategoryLodging
		}
		if err := repo.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense #%d failed: %v", i, err)
		}
	}

	var all []*model.Expense
	for offset := 0; offset < 30; offset += 10 {
		page, err := repo.ListExpenses(ctx, ExpenseFilter{OwnerID: owner.ID, Limit: 10, Offset: offset})
		if err != nil {
			t.Fatalf("ListExpenses failed: %v", err)
		}
		all = append(all, page...)
	}
	if len(all) != 25 {
		t.Fatalf("listed %d expenses, want 25", len(all))
	}

	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if prev.Date.Before(cur.Date) || (prev.Date.Equal(cur.Date) && prev.ID < cur.ID) {
			t.Fatalf("ordering violated at %d: (%s,%d) before (%s,%d)",
				i, model.FormatDate(prev.Date), prev.ID, model.FormatDate(cur.Date), cur.ID)
		}
	}

	filter := ExpenseFilter{OwnerID: owner.ID, Categories: []model.Category{model.CategoryLodging}, Limit: 100}
	lodging, err := repo.ListExpenses(ctx, filter)
	if err != nil {
		t.Fatalf("ListExpenses filtered failed: %v", err)
	}
	count, err := repo.CountExpenses(ctx, filter)
	if err != nil {
		t.Fatalf("CountExpenses filtered failed: %v", err)
	}
	if len(lodging) != 13 || count != 13 {
		t.Errorf("lodging: listed %d, counted %d, want 13", len(lodging), count)
	}
}

func TestIntegrationExpenseRepository_UpdateInTx(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	owner := createTestUser(t, ctx, repo)

	expense := testutil.NewTestExpense(t, owner.ID)
	if err := repo.CreateExpense(ctx, expense); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	err := repo.InTx(ctx, func(s Store) error {
		locked, err := s.GetExpenseForUpdate(ctx, owner.ID, expense.ID)
		if err != nil {
			return err
		}
		locked.Amount = decimal.RequireFromString("7.05")
		return s.UpdateExpense(ctx, locked)
	})
	if err != nil {
		t.Fatalf("InTx update failed: %v", err)
	}

	got, err := repo.GetExpense(ctx, owner.ID, expense.ID)
	if err != nil {
		t.Fatalf("GetExpense failed: %v", err)
	}
	if model.FormatAmount(got.Amount) != "7.05" {
		t.Errorf("Amount = %s, want 7.05", model.FormatAmount(got.Amount))
	}
	if !got.UpdatedAt.After(expense.UpdatedAt) && !got.UpdatedAt.Equal(expense.UpdatedAt) {
		t.Errorf("UpdatedAt should not move backwards")
	}
}

func TestIntegrationExpenseRepository_RollbackOnError(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	owner := createTestUser(t, ctx, repo)

	boom := errors.New("boom")
	err := repo.InTx(ctx, func(s Store) error {
		if err := s.CreateExpense(ctx, testutil.NewTestExpense(t, owner.ID)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx error = %v, want boom", err)
	}

	total, err := repo.CountExpenses(ctx, ExpenseFilter{OwnerID: owner.ID})
	if err != nil {
		t.Fatalf("CountExpenses failed: %v", err)
	}
	if total != 0 {
		t.Errorf("rolled-back insert is visible: total = %d", total)
	}
}

func TestIntegrationExpenseRepository_Constraints(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)
	owner := createTestUser(t, ctx, repo)

	zero := testutil.NewTestExpense(t, owner.ID)
	zero.Amount = decimal.Zero
	if err := repo.CreateExpense(ctx, zero); err == nil {
		t.Error("Expected check constraint violation for zero amount")
	}

	bad := testutil.NewTestExpense(t, owner.ID)
	bad.Category = model.Category("Fun")
	if err := repo.CreateExpense(ctx, bad); err == nil {
		t.Error("Expected check constraint violation for unknown category")
	}
}

// ============================================================================
// Migration Integration Tests
// ============================================================================

func TestIntegrationMigration_UpDown(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	m, err := repo.NewMigrator(nil)
	if err != nil {
		t.Fatalf("NewMigrator failed: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })

	version, err := m.Version(ctx)
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if version != 2 {
		t.Errorf("Version = %d, want 2", version)
	}

	if err := m.Down(ctx); err != nil {
		t.Fatalf("Down failed: %v", err)
	}
	if exists := tableExists(t, ctx, repo, "expenses"); exists {
		t.Error("expenses table should not exist after rollback")
	}
	if exists := tableExists(t, ctx, repo, "users"); !exists {
		t.Error("users table should survive a single rollback")
	}

	if err := m.Up(ctx); err != nil {
		t.Fatalf("re-apply Up failed: %v", err)
	}
	if err := m.Up(ctx); err != nil {
		t.Fatalf("Up should be idempotent: %v", err)
	}
}

func TestRepository_TruncateRestartsIdentity(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	user := createTestUser(t, ctx, repo)
	if err := repo.CreateExpense(ctx, testutil.NewTestExpense(t, user.ID)); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	if err := repo.Truncate(ctx); err != nil {
		t.Fatalf("Truncate failed: %v", err)
	}

	if _, err := repo.GetUserByID(ctx, user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound after truncate, got %v", err)
	}

	again := createTestUser(t, ctx, repo)
	if again.ID != 1 {
		t.Errorf("expected ID sequence to restart at 1, got %d", again.ID)
	}
}

// ============================================================================
// Test Environment Setup
// ============================================================================

func newRepoTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "TEST_DATABASE_URL")

	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.DropSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("drop schema: %v", err)
	}
	m, err := repo.NewMigrator(nil)
	if err != nil {
		t.Fatalf("NewMigrator failed: %v", err)
	}
	defer m.Close()
	if err := m.Up(ctx); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	return ctx, repo
}

func createTestUser(t *testing.T, ctx context.Context, repo *Repository) *model.User {
	t.Helper()
	user := testutil.NewTestUser(t, "owner")
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

func tableExists(t *testing.T, ctx context.Context, repo *Repository, tableName string) bool {
	t.Helper()
	var exists bool
	err := repo.Pool().QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`, tableName).Scan(&exists)
	if err != nil {
		t.Fatalf("tableExists failed: %v", err)
	}
	return exists
}
