//go:build integration

package testutil

import (
	"context"
	"time"
)

// CleanAll truncates every table except the seeded plan catalog, then
// restores the catalog to its seeded state.
func (env *TestEnv) CleanAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tables := []string{
		"event_outbox",
		"login_attempts",
		"ticket_respuestas",
		"tickets",
		"server_actions",
		"servidores",
		"usuarios",
	}
	for _, table := range tables {
		if _, err := env.Pool.Exec(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			env.t.Fatalf("CleanAll: truncate %s: %v", table, err)
		}
	}

	// Plans created by tests go; the three seeded ones come back active.
	if _, err := env.Pool.Exec(ctx, `DELETE FROM planes WHERE id > 3`); err != nil {
		env.t.Fatalf("CleanAll: plans: %v", err)
	}
	if _, err := env.Pool.Exec(ctx, `UPDATE planes SET activo = true`); err != nil {
		env.t.Fatalf("CleanAll: plans: %v", err)
	}
}
