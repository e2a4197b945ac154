package metrics

import (
	"sync"
	"sync/atomic"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Signups         uint64
	LoginsSucceeded uint64
	LoginsFailed    uint64
	AuthFailures    map[string]uint64
	TokensRevoked   uint64
	ExpensesCreated uint64
	ExpensesUpdated uint64
	ExpensesDeleted uint64
}

// InMemoryRecorder keeps counters in process memory. It backs /metrics and tests.
type InMemoryRecorder struct {
	signups         atomic.Uint64
	loginsSucceeded atomic.Uint64
	loginsFailed    atomic.Uint64
	tokensRevoked   atomic.Uint64
	expensesCreated atomic.Uint64
	expensesUpdated atomic.Uint64
	expensesDeleted atomic.Uint64

	mu           sync.Mutex
	authFailures map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{authFailures: make(map[string]uint64)}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	failures := make(map[string]uint64, len(m.authFailures))
	for reason, n := range m.authFailures {
		failures[reason] = n
	}
	m.mu.Unlock()

	return Snapshot{
		Signups:         m.signups.Load(),
		LoginsSucceeded: m.loginsSucceeded.Load(),
		LoginsFailed:    m.loginsFailed.Load(),
		AuthFailures:    failures,
		TokensRevoked:   m.tokensRevoked.Load(),
		ExpensesCreated: m.expensesCreated.Load(),
		ExpensesUpdated: m.expensesUpdated.Load(),
		ExpensesDeleted: m.expensesDeleted.Load(),
	}
}

// IncSignup increments the signup counter.
func (m *InMemoryRecorder) IncSignup() {
	m.signups.Add(1)
}

// IncLogin increments the login counter for status.
func (m *InMemoryRecorder) IncLogin(status string) {
	if status == LoginSuccess {
		m.loginsSucceeded.Add(1)
		return
	}
	m.loginsFailed.Add(1)
}

// IncAuthFailure increments the rejected-token counter for reason.
func (m *InMemoryRecorder) IncAuthFailure(reason string) {
	m.mu.Lock()
	m.authFailures[reason]++
	m.mu.Unlock()
}

// IncTokenRevoked increments the logout counter.
func (m *InMemoryRecorder) IncTokenRevoked() {
	m.tokensRevoked.Add(1)
}

// IncExpenseCreated increments expense created counter.
func (m *InMemoryRecorder) IncExpenseCreated() {
	m.expensesCreated.Add(1)
}

// IncExpenseUpdated increments expense updated counter.
func (m *InMemoryRecorder) IncExpenseUpdated() {
	m.expensesUpdated.Add(1)
}

// IncExpenseDeleted increments expense deleted counter.
func (m *InMemoryRecorder) IncExpenseDeleted() {
	m.expensesDeleted.Add(1)
}
