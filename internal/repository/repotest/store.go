// Package repotest provides an in-memory repository.Store for tests.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spendlog/spendlog/internal/model"
	"github.com/spendlog/spendlog/internal/repository"
)

// Store is an in-memory repository.Store. InTx snapshots state and
// restores it when fn fails, which is enough to observe rollback.
// It is not isolated: concurrent transactions see each other's writes.
type Store struct {
	mu       *sync.Mutex
	users    map[int64]*model.User
	expenses map[int64]*model.Expense
	nextID   *int64
	now      func() time.Time

	// FailCreateExpense, when set, is returned by CreateExpense.
	FailCreateExpense error
	updates           *int
}

var _ repository.Store = (*Store)(nil)

// NewStore returns an empty store with a fixed clock.
func NewStore() *Store {
	var id int64
	var updates int
	return &Store{
		mu:       &sync.Mutex{},
		users:    make(map[int64]*model.User),
		expenses: make(map[int64]*model.Expense),
		nextID:   &id,
		now:      func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
		updates:  &updates,
	}
}

// Updates returns how many times UpdateExpense succeeded.
func (f *Store) Updates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.updates
}

func (f *Store) id() int64 {
	*f.nextID++
	return *f.nextID
}

func (f *Store) InTx(ctx context.Context, fn func(repository.Store) error) error {
	f.mu.Lock()
	users := make(map[int64]*model.User, len(f.users))
	for k, v := range f.users {
		u := *v
		users[k] = &u
	}
	expenses := make(map[int64]*model.Expense, len(f.expenses))
	for k, v := range f.expenses {
		e := *v
		expenses[k] = &e
	}
	f.mu.Unlock()

	if err := fn(f); err != nil {
		f.mu.Lock()
		f.users, f.expenses = users, expenses
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *Store) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == user.Username {
			return repository.ErrUsernameExists
		}
	}
	user.ID = f.id()
	user.CreatedAt = f.now()
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *Store) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (f *Store) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *Store) CreateExpense(_ context.Context, expense *model.Expense) error {
	if f.FailCreateExpense != nil {
		return f.FailCreateExpense
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	expense.ID = f.id()
	expense.CreatedAt = f.now()
	expense.UpdatedAt = expense.CreatedAt
	stored := *expense
	f.expenses[expense.ID] = &stored
	return nil
}

func (f *Store) GetExpense(_ context.Context, ownerID, id int64) (*model.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.expenses[id]
	if !ok || e.OwnerID != ownerID {
		return nil, repository.ErrExpenseNotFound
	}
	out := *e
	return &out, nil
}

func (f *Store) GetExpenseForUpdate(ctx context.Context, ownerID, id int64) (*model.Expense, error) {
	return f.GetExpense(ctx, ownerID, id)
}

func (f *Store) matching(filter repository.ExpenseFilter) []*model.Expense {
	var out []*model.Expense
	for _, e := range f.expenses {
		if e.OwnerID != filter.OwnerID {
			continue
		}
		if len(filter.Categories) > 0 && !containsCategory(filter.Categories, e.Category) {
			continue
		}
		c := *e
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func containsCategory(list []model.Category, c model.Category) bool {
	for _, x := range list {
		if x == c {
			return true
		}
	}
	return false
}

func (f *Store) ListExpenses(_ context.Context, filter repository.ExpenseFilter) ([]*model.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.matching(filter)
	if filter.Offset >= len(all) {
		return []*model.Expense{}, nil
	}
	end := min(filter.Offset+filter.Limit, len(all))
	return all[filter.Offset:end], nil
}

func (f *Store) CountExpenses(_ context.Context, filter repository.ExpenseFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.matching(filter))), nil
}

func (f *Store) UpdateExpense(_ context.Context, expense *model.Expense) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.expenses[expense.ID]
	if !ok || e.OwnerID != expense.OwnerID {
		return repository.ErrExpenseNotFound
	}
	expense.UpdatedAt = f.now().Add(time.Minute)
	stored := *expense
	f.expenses[expense.ID] = &stored
	*f.updates++
	return nil
}

func (f *Store) DeleteExpense(_ context.Context, ownerID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.expenses[id]
	if !ok || e.OwnerID != ownerID {
		return repository.ErrExpenseNotFound
	}
	delete(f.expenses, id)
	return nil
}
