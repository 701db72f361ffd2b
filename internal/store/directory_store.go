package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nhle/pmsterm/internal/model"
)

type userRow struct {
	ID         string `db:"id"`
	Username   string `db:"username"`
	Email      string `db:"email"`
	Role       int    `db:"role"`
	Department string `db:"department"`
	Active     int    `db:"active"`
	Position   int    `db:"position"`
}

type goalRow struct {
	ID             string     `db:"id"`
	Month          string     `db:"month"`
	UserRef        string     `db:"user_ref"`
	UserID         string     `db:"user_id"`
	Title          string     `db:"title"`
	StartDate      *time.Time `db:"start_date"`
	DueDate        *time.Time `db:"due_date"`
	TargetValue    float64    `db:"target_value"`
	RemainingValue float64    `db:"remaining_value"`
	Status         string     `db:"status"`
	Position       int        `db:"position"`
}

// ReplaceUsers replaces the cached user directory.
func (s *SQLiteStore) ReplaceUsers(ctx context.Context, users []model.User) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM users"); err != nil {
		return fmt.Errorf("clearing users: %w", err)
	}

	for i, u := range users {
		_, err := tx.NamedExecContext(ctx, `
			INSERT OR REPLACE INTO users (id, username, email, role, department, active, position)
			VALUES (:id, :username, :email, :role, :department, :active, :position)`,
			userRow{
				ID:         u.ID,
				Username:   u.Username,
				Email:      u.Email,
				Role:       int(u.Role),
				Department: u.Department,
				Active:     boolToInt(u.Active),
				Position:   i,
			},
		)
		if err != nil {
			return fmt.Errorf("inserting user %s: %w", u.ID, err)
		}
	}

	return tx.Commit()
}

// GetUsers returns the cached user directory in server order.
func (s *SQLiteStore) GetUsers(ctx context.Context) ([]model.User, error) {
	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM users ORDER BY position"); err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}

	users := make([]model.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, model.User{
			ID:         r.ID,
			Username:   r.Username,
			Email:      r.Email,
			Role:       model.Role(r.Role),
			Department: r.Department,
			Active:     r.Active != 0,
		})
	}

	return users, nil
}

// ReplaceGoals replaces the goals cached for month ("YYYY-MM").
func (s *SQLiteStore) ReplaceGoals(ctx context.Context, month string, goals []model.Goal) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM goals WHERE month = ?", month); err != nil {
		return fmt.Errorf("clearing goals for %s: %w", month, err)
	}

	for i, g := range goals {
		userRef, err := jsonText(g.User)
		if err != nil {
			return fmt.Errorf("marshaling user of goal %s: %w", g.ID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO goals (
				id, month, user_ref, user_id, title,
				start_date, due_date, target_value, remaining_value, status, position
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			g.ID, month, userRef, g.User.ID, g.Title,
			nullTime(g.StartDate), nullTime(g.DueDate), g.TargetValue, g.RemainingValue, g.Status, i,
		)
		if err != nil {
			return fmt.Errorf("inserting goal %s: %w", g.ID, err)
		}
	}

	return tx.Commit()
}

// GetGoals returns the goals cached for month.
func (s *SQLiteStore) GetGoals(ctx context.Context, month string) ([]model.Goal, error) {
	var rows []goalRow
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM goals WHERE month = ? ORDER BY position", month); err != nil {
		return nil, fmt.Errorf("querying goals for %s: %w", month, err)
	}

	goals := make([]model.Goal, 0, len(rows))
	for _, r := range rows {
		g := model.Goal{
			ID:             r.ID,
			Title:          r.Title,
			StartDate:      fromNullTime(r.StartDate),
			DueDate:        fromNullTime(r.DueDate),
			TargetValue:    r.TargetValue,
			RemainingValue: r.RemainingValue,
			Status:         r.Status,
		}
		if err := json.Unmarshal([]byte(r.UserRef), &g.User); err != nil {
			return nil, fmt.Errorf("unmarshaling user of goal %s: %w", r.ID, err)
		}
		goals = append(goals, g)
	}

	return goals, nil
}
