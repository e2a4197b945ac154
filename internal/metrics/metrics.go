// Package metrics provides lightweight hooks for instrumentation.
package metrics

// Login outcomes passed to IncLogin.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Account metrics
	IncSignup()
	IncLogin(status string)

	// Token metrics
	IncAuthFailure(reason string) // reason: missing_token, token_expired, token_invalid, token_revoked
	IncTokenRevoked()

	// Expense metrics
	IncExpenseCreated()
	IncExpenseUpdated()
	IncExpenseDeleted()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
