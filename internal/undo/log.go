package undo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"crate/internal/catalog"
	"crate/internal/faults"
	"crate/internal/fileutil"
	"crate/internal/logging"
)

// Operation names the file operation an entry reverses.
const (
	OpMove  = "move"
	OpCopy  = "copy"
	OpLink  = "link"
	OpTrash = "trash"
)

// Entry records one committed file operation so it can be reversed.
type Entry struct {
	Seq     int
	TrackID int64
	Source  string
	Target  string
	Op      string
	// TrashPath is where a duplicate loser was parked; set only for OpTrash.
	TrashPath string
}

// Batch is one sealed run of committed entries. Batches are undone whole,
// most recent first.
type Batch struct {
	ID        string
	Mode      string
	CreatedAt time.Time
	Entries   []Entry
}

// ErrEmpty is returned when there is no batch left to undo.
var ErrEmpty = errors.New("undo log is empty")

// Log is the durable record of executed batches, stored alongside the track
// catalog in the same database.
type Log struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewLog wraps the catalog database. The undo tables are created by the
// catalog migrations.
func NewLog(db *sql.DB, logger *slog.Logger) *Log {
	return &Log{db: db, logger: logging.NewComponentLogger(logger, "undo")}
}

// NewBatch creates an unsealed batch for the given execution mode.
func NewBatch(mode string) *Batch {
	return &Batch{ID: uuid.NewString(), Mode: mode, CreatedAt: time.Now().UTC()}
}

// Record appends an entry to an unsealed batch, assigning the next sequence
// number.
func (b *Batch) Record(entry Entry) {
	entry.Seq = len(b.Entries) + 1
	b.Entries = append(b.Entries, entry)
}

// Append seals a batch into the log in one transaction. Empty batches are
// recorded too; they document a run that committed nothing.
func (l *Log) Append(ctx context.Context, batch *Batch) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return faults.Wrap(faults.ErrIO, "undo", "append", "begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO undo_batches (batch_id, mode, created_at) VALUES (?, ?, ?)`,
		batch.ID,
		batch.Mode,
		batch.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return faults.Wrap(faults.ErrIO, "undo", "append", "insert batch", err)
	}
	for _, entry := range batch.Entries {
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO undo_entries (batch_id, seq, track_id, source, target, op, trash_path)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			batch.ID,
			entry.Seq,
			entry.TrackID,
			entry.Source,
			entry.Target,
			entry.Op,
			nullableString(entry.TrashPath),
		)
		if err != nil {
			return faults.Wrap(faults.ErrIO, "undo", "append", "insert entry", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return faults.Wrap(faults.ErrIO, "undo", "append", "commit", err)
	}
	l.logger.Info("batch sealed",
		logging.String(logging.FieldBatchID, batch.ID),
		logging.String("mode", batch.Mode),
		logging.Int("entries", len(batch.Entries)))
	return nil
}

// LastBatch loads the most recent batch that has not been undone, or
// ErrEmpty when none remains.
func (l *Log) LastBatch(ctx context.Context) (*Batch, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT batch_id, mode, created_at
		FROM undo_batches
		WHERE undone_at IS NULL
		ORDER BY id DESC
		LIMIT 1`)

	var batch Batch
	var createdAt string
	if err := row.Scan(&batch.ID, &batch.Mode, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEmpty
		}
		return nil, faults.Wrap(faults.ErrIO, "undo", "last-batch", "query batch", err)
	}
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		batch.CreatedAt = ts
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT seq, track_id, source, target, op, trash_path
		FROM undo_entries
		WHERE batch_id = ?
		ORDER BY seq ASC`, batch.ID)
	if err != nil {
		return nil, faults.Wrap(faults.ErrIO, "undo", "last-batch", "query entries", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry Entry
		var trackID sql.NullInt64
		var trashPath sql.NullString
		if err := rows.Scan(&entry.Seq, &trackID, &entry.Source, &entry.Target, &entry.Op, &trashPath); err != nil {
			return nil, faults.Wrap(faults.ErrIO, "undo", "last-batch", "scan entry", err)
		}
		entry.TrackID = trackID.Int64
		entry.TrashPath = trashPath.String
		batch.Entries = append(batch.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, faults.Wrap(faults.ErrIO, "undo", "last-batch", "scan entries", err)
	}
	return &batch, nil
}

// Batches lists sealed batches newest first, including undone ones, without
// loading their entries.
func (l *Log) Batches(ctx context.Context, limit int) ([]Batch, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT b.batch_id, b.mode, b.created_at,
		       (SELECT COUNT(*) FROM undo_entries e WHERE e.batch_id = b.batch_id),
		       b.undone_at IS NOT NULL
		FROM undo_batches b
		ORDER BY b.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, faults.Wrap(faults.ErrIO, "undo", "batches", "query", err)
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		var batch Batch
		var createdAt string
		var count int
		var undone bool
		if err := rows.Scan(&batch.ID, &batch.Mode, &createdAt, &count, &undone); err != nil {
			return nil, faults.Wrap(faults.ErrIO, "undo", "batches", "scan", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			batch.CreatedAt = ts
		}
		batch.Entries = make([]Entry, count)
		if undone {
			batch.Mode = batch.Mode + " (undone)"
		}
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}

// markUndone archives a batch so the next undo pops its predecessor.
func (l *Log) markUndone(ctx context.Context, batchID string) error {
	_, err := l.db.ExecContext(
		ctx,
		`UPDATE undo_batches SET undone_at = ? WHERE batch_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		batchID,
	)
	if err != nil {
		return faults.Wrap(faults.ErrIO, "undo", "mark-undone", "update batch", err)
	}
	return nil
}

// UndoLast pops the most recent batch and replays its entries in reverse
// order. A failed entry is reported and skipped; the rest of the batch still
// runs. The batch is archived even on partial success, matching strict LIFO
// semantics: retrying a half-undone batch would re-reverse the entries that
// already went back.
func (l *Log) UndoLast(ctx context.Context, store *catalog.Store) (*Report, error) {
	batch, err := l.LastBatch(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{BatchID: batch.ID, Mode: batch.Mode}
	for i := len(batch.Entries) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			break
		}
		entry := batch.Entries[i]
		report.Attempted++
		if reason, err := l.reverse(ctx, entry, store); err != nil {
			report.Failed = append(report.Failed, EntryFailure{Entry: entry, Reason: reason, Err: err})
			l.logger.Warn("undo entry failed",
				logging.String(logging.FieldBatchID, batch.ID),
				logging.Int("seq", entry.Seq),
				logging.String("reason", string(reason)),
				logging.Error(err))
			continue
		}
		report.Succeeded++
	}

	if err := l.markUndone(ctx, batch.ID); err != nil {
		return report, err
	}
	l.logger.Info("batch undone",
		logging.String(logging.FieldBatchID, batch.ID),
		logging.Int("succeeded", report.Succeeded),
		logging.Int("failed", len(report.Failed)))
	return report, nil
}

// reverse applies the inverse of one entry.
func (l *Log) reverse(ctx context.Context, entry Entry, store *catalog.Store) (faults.Reason, error) {
	switch entry.Op {
	case OpMove:
		if fileutil.Exists(entry.Source) {
			return faults.ReasonConflictOnUndo, fmt.Errorf("source %s is occupied", entry.Source)
		}
		if err := fileutil.EnsureParent(entry.Source); err != nil {
			return faults.ReasonIOError, err
		}
		if err := fileutil.MoveFile(entry.Target, entry.Source); err != nil {
			return classifyUndoError(err), err
		}
	case OpCopy, OpLink:
		// The source was never touched; dropping the target restores the
		// pre-execution layout.
		if err := removeIfPresent(entry.Target); err != nil {
			return classifyUndoError(err), err
		}
	case OpTrash:
		if fileutil.Exists(entry.Source) {
			return faults.ReasonConflictOnUndo, fmt.Errorf("source %s is occupied", entry.Source)
		}
		if err := fileutil.EnsureParent(entry.Source); err != nil {
			return faults.ReasonIOError, err
		}
		if err := fileutil.MoveFile(entry.TrashPath, entry.Source); err != nil {
			return classifyUndoError(err), err
		}
	default:
		return faults.ReasonIOError, fmt.Errorf("unknown operation %q", entry.Op)
	}

	if entry.TrackID != 0 {
		var err error
		if entry.Op == OpTrash {
			err = store.Restore(ctx, entry.TrackID, entry.Source)
		} else if entry.Op == OpMove {
			err = store.UpdatePath(ctx, entry.TrackID, entry.Source)
		}
		if err != nil {
			return faults.ReasonIOError, err
		}
	}
	return "", nil
}

func removeIfPresent(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func classifyUndoError(err error) faults.Reason {
	switch {
	case os.IsNotExist(err):
		return faults.ReasonSourceMissing
	case os.IsPermission(err):
		return faults.ReasonPermissionDenied
	default:
		return faults.ReasonIOError
	}
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
