package metrics

import (
	"sync"
	"testing"
)

func TestInMemoryRecorder_Counts(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncSignup()
	m.IncLogin(LoginSuccess)
	m.IncLogin(LoginFailure)
	m.IncLogin(LoginFailure)
	m.IncAuthFailure("token_expired")
	m.IncAuthFailure("token_revoked")
	m.IncAuthFailure("token_revoked")
	m.IncTokenRevoked()
	m.IncExpenseCreated()
	m.IncExpenseUpdated()
	m.IncExpenseDeleted()

	s := m.Snapshot()
	if s.Signups != 1 || s.LoginsSucceeded != 1 || s.LoginsFailed != 2 {
		t.Errorf("account counters = %+v", s)
	}
	if s.AuthFailures["token_revoked"] != 2 || s.AuthFailures["token_expired"] != 1 {
		t.Errorf("AuthFailures = %v", s.AuthFailures)
	}
	if s.TokensRevoked != 1 || s.ExpensesCreated != 1 || s.ExpensesUpdated != 1 || s.ExpensesDeleted != 1 {
		t.Errorf("counters = %+v", s)
	}
}

func TestInMemoryRecorder_SnapshotIsCopy(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncAuthFailure("token_invalid")

	s := m.Snapshot()
	s.AuthFailures["token_invalid"] = 100

	if got := m.Snapshot().AuthFailures["token_invalid"]; got != 1 {
		t.Errorf("snapshot mutation leaked into recorder: got %d", got)
	}
}

func TestInMemoryRecorder_Concurrent(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncExpenseCreated()
			m.IncAuthFailure("missing_token")
		}()
	}
	wg.Wait()

	s := m.Snapshot()
	if s.ExpensesCreated != 50 || s.AuthFailures["missing_token"] != 50 {
		t.Errorf("concurrent counts = %+v", s)
	}
}
