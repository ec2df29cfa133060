package storage

import (
	"context"
	"database/sql"
	"fmt"

	"prism-board/domain"
	"prism-board/reorder"
)

// ApplyChanges persists a batch of position changes for lists or cards in one
// transaction. Either every change commits or none does. A change whose row is
// missing aborts the batch with domain.ErrNotFound.
func (s *Store) ApplyChanges(ctx context.Context, table string, changes []reorder.Change) error {
	var moveQuery, parentQuery string
	switch table {
	case domain.TableLists:
		moveQuery = "UPDATE lists SET position = ? WHERE id = ?"
	case domain.TableCards:
		moveQuery = "UPDATE cards SET position = ? WHERE id = ?"
		parentQuery = "UPDATE cards SET position = ?, list_id = ? WHERE id = ?"
	default:
		return domain.Invalid("table %q has no positions", table)
	}
	if len(changes) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		move, err := tx.PrepareContext(ctx, moveQuery)
		if err != nil {
			return fmt.Errorf("prepare position update: %w", err)
		}
		defer move.Close()

		for _, ch := range changes {
			var res sql.Result
			if ch.ParentID != "" {
				if parentQuery == "" {
					return domain.Invalid("%s cannot change parent", table)
				}
				res, err = tx.ExecContext(ctx, parentQuery, ch.Position, ch.ParentID, ch.ID)
			} else {
				res, err = move.ExecContext(ctx, ch.Position, ch.ID)
			}
			if err := affected(res, err); err != nil {
				return fmt.Errorf("update %s %s: %w", table, ch.ID, err)
			}
		}
		return nil
	})
}
