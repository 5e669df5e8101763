package observability

import "time"

// Config captures opt-in diagnostics that wire into the bot process.
type Config struct {
	// FieldDumpPath receives the composed field of every tick as CSV.
	FieldDumpPath string
	// SpectatorAddr starts the spectator HTTP server when non-empty.
	SpectatorAddr string
	// TickBudget flags ticks whose decision takes longer. Zero disables it.
	TickBudget time.Duration
}

