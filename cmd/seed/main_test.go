package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendlog/spendlog/internal/auth"
	"github.com/spendlog/spendlog/internal/metrics"
	"github.com/spendlog/spendlog/internal/model"
	"github.com/spendlog/spendlog/internal/repository"
	"github.com/spendlog/spendlog/internal/repository/repotest"
	"github.com/spendlog/spendlog/internal/service"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, 3, opts.users)
	assert.Equal(t, 15, opts.expenses)
	assert.Equal(t, 60, opts.days)
	assert.Equal(t, "password123", opts.password)
	assert.False(t, opts.reset)
	assert.False(t, opts.json)

	opts, err = parseFlags([]string{"-users", "5", "-expenses", "2", "-reset", "-json", "-seed", "42"})
	require.NoError(t, err)
	assert.Equal(t, 5, opts.users)
	assert.Equal(t, 2, opts.expenses)
	assert.True(t, opts.reset)
	assert.True(t, opts.json)
	assert.Equal(t, uint64(42), opts.seed)

	for _, args := range [][]string{
		{"-users", "0"},
		{"-expenses", "-1"},
		{"-days", "-3"},
		{"-password", ""},
		{"-bogus"},
	} {
		_, err := parseFlags(args)
		assert.Error(t, err, "args %v", args)
	}
}

func TestBuildPlan(t *testing.T) {
	opts := options{users: 3, expenses: 15, days: 60}
	today := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	earliest := today.AddDate(0, 0, -60)

	plan := buildPlan(opts, rand.New(rand.NewPCG(1, 2)), today)
	require.Len(t, plan, 3)

	for i, fixture := range plan {
		assert.Equal(t, []string{"user1", "user2", "user3"}[i], fixture.Username)
		require.Len(t, fixture.Expenses, 15)

		for _, e := range fixture.Expenses {
			assert.True(t, model.Category(e.Category).IsValid(), e.Category)

			amount, err := decimal.NewFromString(e.Amount)
			require.NoError(t, err)
			assert.True(t, amount.GreaterThanOrEqual(decimal.NewFromInt(10)), e.Amount)
			assert.True(t, amount.LessThanOrEqual(decimal.NewFromInt(400)), e.Amount)

			date, err := time.Parse(model.DateLayout, e.Date)
			require.NoError(t, err)
			assert.False(t, date.Before(earliest.Truncate(24*time.Hour)), e.Date)
			assert.False(t, date.After(today), e.Date)

			require.NotNil(t, e.Description)
			assert.NotEmpty(t, *e.Description)
		}
	}

	again := buildPlan(opts, rand.New(rand.NewPCG(1, 2)), today)
	assert.Equal(t, plan[2].Expenses, again[2].Expenses, "same seed should give the same plan")
}

func TestApply(t *testing.T) {
	store := repotest.NewStore()
	recorder := metrics.NewNoop()
	hasher := auth.NewPasswordHasher(auth.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16})
	users := service.NewUserService(store, hasher, recorder)
	expenses := service.NewExpenseService(store, recorder)

	plan := buildPlan(options{users: 5, expenses: 4, days: 10}, rand.New(rand.NewPCG(7, 7)), time.Now())
	ctx := context.Background()
	require.NoError(t, apply(ctx, plan, "password123", users, expenses))

	for _, fixture := range plan {
		assert.NotZero(t, fixture.ID)
		assert.Equal(t, 4, fixture.Created)

		user, err := users.Verify(ctx, fixture.Username, "password123")
		require.NoError(t, err)
		assert.Equal(t, fixture.ID, user.ID)

		count, err := store.CountExpenses(ctx, repository.ExpenseFilter{OwnerID: user.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(4), count)
	}

	err := apply(ctx, plan[:1], "password123", users, expenses)
	assert.ErrorIs(t, err, service.ErrDuplicateUsername)
}

func TestReport(t *testing.T) {
	plan := []*userFixture{
		{Username: "user1", ID: 1, Created: 2},
		{Username: "user2", ID: 2, Created: 3},
	}

	var text bytes.Buffer
	require.NoError(t, report(&text, plan, options{password: "password123"}))
	assert.Equal(t, "Seed complete. Users: user1/user2 (password: password123)\n", text.String())

	var out bytes.Buffer
	require.NoError(t, report(&out, plan, options{json: true}))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "user2", decoded[1]["username"])
	assert.EqualValues(t, 3, decoded[1]["expenses"])
	assert.NotContains(t, out.String(), "password")
}
