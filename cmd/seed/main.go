// Command seed loads development fixtures: a handful of users, each with
// random expenses spread over recent days.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/spendlog/spendlog/internal/auth"
	"github.com/spendlog/spendlog/internal/config"
	"github.com/spendlog/spendlog/internal/metrics"
	"github.com/spendlog/spendlog/internal/model"
	"github.com/spendlog/spendlog/internal/repository"
	"github.com/spendlog/spendlog/internal/service"
)

// seedConcurrency bounds how many users are seeded at once.
const seedConcurrency = 4

type seedConfig struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
}

type options struct {
	users    int
	expenses int
	days     int
	password string
	reset    bool
	json     bool
	seed     uint64
}

var descriptions = map[model.Category][]string{
	model.CategoryTravel:  {"Train to the airport", "Taxi from the station", "Flight change fee", "Airport parking"},
	model.CategoryLodging: {"Hotel, two nights", "Guesthouse deposit", "Late checkout charge", "Conference hotel"},
	model.CategoryFood:    {"Team lunch", "Breakfast at the hotel", "Client dinner", "Coffee and snacks"},
}

// userFixture is one user and the expenses to create for them.
type userFixture struct {
	Username string                       `json:"username"`
	ID       int64                        `json:"id"`
	Expenses []service.CreateExpenseInput `json:"-"`
	Created  int                          `json:"expenses"`
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	_ = godotenv.Load()
	var cfg seedConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect: %s", config.SanitizeError(err, cfg.DatabaseURL))
	}
	defer repo.Close()

	m, err := repo.NewMigrator(logger)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(ctx); err != nil {
		return err
	}

	if opts.reset {
		if err := repo.Truncate(ctx); err != nil {
			return err
		}
	}

	recorder := metrics.NewNoop()
	users := service.NewUserService(repo, auth.NewPasswordHasher(auth.DefaultArgon2Params), recorder)
	expenses := service.NewExpenseService(repo, recorder)

	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))
	plan := buildPlan(opts, rng, time.Now())
	if err := apply(ctx, plan, opts.password, users, expenses); err != nil {
		return err
	}

	return report(stdout, plan, opts)
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&opts.users, "users", 3, "number of users to create")
	fs.IntVar(&opts.expenses, "expenses", 15, "expenses per user")
	fs.IntVar(&opts.days, "days", 60, "spread expense dates over this many past days")
	fs.StringVar(&opts.password, "password", "password123", "password for every seeded user")
	fs.BoolVar(&opts.reset, "reset", false, "truncate users and expenses first")
	fs.BoolVar(&opts.json, "json", false, "print created users as JSON")
	fs.Uint64Var(&opts.seed, "seed", uint64(time.Now().UnixNano()), "random seed")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	switch {
	case opts.users < 1:
		return opts, errors.New("-users must be at least 1")
	case opts.expenses < 0:
		return opts, errors.New("-expenses must not be negative")
	case opts.days < 0:
		return opts, errors.New("-days must not be negative")
	case opts.password == "":
		return opts, errors.New("-password must not be empty")
	}
	return opts, nil
}

// buildPlan decides every fixture up front so the random stream does not
// depend on goroutine scheduling.
func buildPlan(opts options, rng *rand.Rand, today time.Time) []*userFixture {
	plan := make([]*userFixture, opts.users)
	for i := range plan {
		fixture := &userFixture{Username: fmt.Sprintf("user%d", i+1)}
		for range opts.expenses {
			category := model.Categories[rng.IntN(len(model.Categories))]
			choices := descriptions[category]
			description := choices[rng.IntN(len(choices))]
			cents := 1000 + rng.IntN(39001)

			fixture.Expenses = append(fixture.Expenses, service.CreateExpenseInput{
				Category:    string(category),
				Amount:      fmt.Sprintf("%d.%02d", cents/100, cents%100),
				Description: &description,
				Date:        model.FormatDate(today.AddDate(0, 0, -rng.IntN(opts.days+1))),
			})
		}
		plan[i] = fixture
	}
	return plan
}

// apply creates the planned users and their expenses, several users at a time.
func apply(ctx context.Context, plan []*userFixture, password string, users *service.UserService, expenses *service.ExpenseService) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(seedConcurrency)

	for _, fixture := range plan {
		g.Go(func() error {
			user, err := users.Register(ctx, fixture.Username, password)
			if err != nil {
				return fmt.Errorf("create %s: %w", fixture.Username, err)
			}
			fixture.ID = user.ID

			for _, input := range fixture.Expenses {
				if _, err := expenses.Create(ctx, user.ID, input); err != nil {
					return fmt.Errorf("create expense for %s: %w", fixture.Username, err)
				}
				fixture.Created++
			}
			return nil
		})
	}

	return g.Wait()
}

func report(w io.Writer, plan []*userFixture, opts options) error {
	if opts.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}

	names := make([]string, len(plan))
	for i, fixture := range plan {
		names[i] = fixture.Username
	}
	_, err := fmt.Fprintf(w, "Seed complete. Users: %s (password: %s)\n", strings.Join(names, "/"), opts.password)
	return err
}
