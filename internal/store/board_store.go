package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/pmsterm/internal/model"
)

type boardRow struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	Slug      string    `db:"slug"`
	Members   string    `db:"members"`
	Position  int       `db:"position"`
	FetchedAt time.Time `db:"fetched_at"`
}

func (r boardRow) toModel() (model.Board, error) {
	b := model.Board{ID: r.ID, Title: r.Title, Slug: r.Slug}
	if r.Members != "" {
		if err := json.Unmarshal([]byte(r.Members), &b.Members); err != nil {
			return model.Board{}, fmt.Errorf("unmarshaling members of board %s: %w", r.ID, err)
		}
	}
	return b, nil
}

// ReplaceBoards replaces the board list with boards, keeping their order.
// Tasks of boards that are no longer listed are removed with them. Tasks of
// listed boards are left alone; ReplaceBoardTasks refreshes those.
func (s *SQLiteStore) ReplaceBoards(ctx context.Context, boards []model.Board) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	keep := make([]string, 0, len(boards))
	for _, b := range boards {
		keep = append(keep, b.ID)
	}

	if err := deleteBoardsExcept(ctx, tx, keep); err != nil {
		return err
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT OR REPLACE INTO boards (id, title, slug, members, position, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing board insert: %w", err)
	}
	defer stmt.Close()

	fetchedAt := s.now().UTC()
	for i, b := range boards {
		members := b.Members
		if members == nil {
			members = []model.UserRef{}
		}
		membersJSON, err := jsonText(members)
		if err != nil {
			return fmt.Errorf("marshaling members for board %s: %w", b.ID, err)
		}

		_, err = stmt.ExecContext(ctx, b.ID, b.Title, b.Slug, membersJSON, i, fetchedAt)
		if err != nil {
			return fmt.Errorf("inserting board %s: %w", b.ID, err)
		}
	}

	return tx.Commit()
}

// deleteBoardsExcept removes every board whose ID is not in keep, together
// with its tasks.
func deleteBoardsExcept(ctx context.Context, tx *sqlx.Tx, keep []string) error {
	if len(keep) == 0 {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM tasks WHERE board_id IN (SELECT id FROM boards)"); err != nil {
			return fmt.Errorf("deleting board tasks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM boards"); err != nil {
			return fmt.Errorf("deleting boards: %w", err)
		}
		return nil
	}

	query, args, err := sqlx.In(`
		DELETE FROM tasks WHERE board_id IN (
			SELECT id FROM boards WHERE id NOT IN (?)
		)`, keep)
	if err != nil {
		return fmt.Errorf("building task delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("deleting tasks of removed boards: %w", err)
	}

	query, args, err = sqlx.In("DELETE FROM boards WHERE id NOT IN (?)", keep)
	if err != nil {
		return fmt.Errorf("building board delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("deleting removed boards: %w", err)
	}

	return nil
}

// GetBoards returns every board in server order, each with its tasks.
// A board with no tasks has an empty, non-nil task slice.
func (s *SQLiteStore) GetBoards(ctx context.Context) ([]model.Board, error) {
	var rows []boardRow
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM boards ORDER BY position, title"); err != nil {
		return nil, fmt.Errorf("querying boards: %w", err)
	}

	tasks, err := s.GetTasks(ctx, TaskFilter{SortBy: "position"})
	if err != nil {
		return nil, err
	}
	byBoard := make(map[string][]model.Task)
	for _, t := range tasks {
		byBoard[t.Board.ID] = append(byBoard[t.Board.ID], t)
	}

	boards := make([]model.Board, 0, len(rows))
	for _, r := range rows {
		b, err := r.toModel()
		if err != nil {
			return nil, err
		}
		b.Tasks = byBoard[b.ID]
		if b.Tasks == nil {
			b.Tasks = []model.Task{}
		}
		boards = append(boards, b)
	}

	return boards, nil
}

// GetBoard returns one board with its tasks.
func (s *SQLiteStore) GetBoard(ctx context.Context, id string) (*model.Board, error) {
	var row boardRow
	if err := s.db.GetContext(ctx, &row, "SELECT * FROM boards WHERE id = ?", id); err != nil {
		return nil, notFound(err, "board "+id)
	}

	b, err := row.toModel()
	if err != nil {
		return nil, err
	}

	b.Tasks, err = s.GetTasks(ctx, TaskFilter{BoardID: &id, SortBy: "position"})
	if err != nil {
		return nil, err
	}
	if b.Tasks == nil {
		b.Tasks = []model.Task{}
	}

	return &b, nil
}
