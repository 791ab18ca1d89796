package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"callqa-backend/internal/shared/auth"
	"callqa-backend/internal/shared/telemetry"
)

// Demo inserts a demo company, users, and a project so a fresh environment
// is immediately usable. Idempotent: a second run is a no-op.
func Demo(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("seed requires a database")
	}

	var existing int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM companies WHERE name = $1`, "Demo Company").Scan(&existing); err != nil {
		return fmt.Errorf("check demo company: %w", err)
	}
	if existing > 0 {
		telemetry.Info("seed.skipped", map[string]any{"reason": "demo data already present"})
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var companyID int64
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO companies (name) VALUES ($1) RETURNING id`, "Demo Company",
	).Scan(&companyID); err != nil {
		return fmt.Errorf("seed company: %w", err)
	}

	demoUsers := []struct {
		email, password, fullName, role string
	}{
		{"admin@example.com", "admin123", "Demo Admin", "admin"},
		{"manager@example.com", "manager123", "Demo Manager", "company_manager"},
		{"agent@example.com", "agent123", "Demo Agent", "agent"},
	}
	for _, u := range demoUsers {
		hashed, err := auth.HashPassword(u.password)
		if err != nil {
			return fmt.Errorf("hash demo password: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (email, hashed_password, full_name, role, company_id) VALUES ($1, $2, $3, $4, $5)`,
			u.email, hashed, u.fullName, u.role, companyID,
		); err != nil {
			return fmt.Errorf("seed user %s: %w", u.email, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO projects (name, description, company_id) VALUES ($1, $2, $3)`,
		"Demo Project", "Sample project for evaluating the QA pipeline", companyID,
	); err != nil {
		return fmt.Errorf("seed project: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	telemetry.Info("seed.completed", map[string]any{"companyId": companyID, "users": len(demoUsers)})
	return nil
}
