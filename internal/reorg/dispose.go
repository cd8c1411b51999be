package reorg

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"crate/internal/duplicates"
	"crate/internal/faults"
	"crate/internal/fileutil"
	"crate/internal/logging"
	"crate/internal/undo"
)

// ResolveDuplicates applies the configured disposition to every loser in the
// given groups. Losers are parked under the trash directory in a
// batch-scoped folder so an undo can put each file back; "delete" marks the
// catalog record deleted on top of that, "skip" does nothing at all. Keepers
// are never touched.
func (e *Executor) ResolveDuplicates(ctx context.Context, groups []duplicates.Group) (*Report, error) {
	disposition := e.cfg.Duplicates.OnDuplicate
	report := &Report{Mode: Mode("duplicates:" + disposition)}
	if disposition == "skip" || len(groups) == 0 {
		return report, nil
	}

	lock, err := e.acquireRunLock()
	if err != nil {
		return nil, err
	}
	defer lock.Unlock()

	batch := undo.NewBatch("duplicates")
	parked := make(map[string]struct{})
	for _, group := range groups {
		for _, loser := range group.Losers {
			if ctx.Err() != nil {
				break
			}
			report.Attempted++
			dest := e.trashDestination(batch.ID, loser.Path, parked)
			if reason, err := e.park(loser.Path, dest); err != nil {
				report.Failed = append(report.Failed, EntryFailure{
					Entry:  Entry{TrackID: loser.ID, Source: loser.Path, Op: OpMove},
					Reason: reason,
					Detail: err.Error(),
				})
				e.logger.Warn("duplicate disposition failed",
					logging.Int64(logging.FieldTrackID, loser.ID),
					logging.String("path", loser.Path),
					logging.Error(err))
				continue
			}
			parked[dest] = struct{}{}
			batch.Record(undo.Entry{
				TrackID:   loser.ID,
				Source:    loser.Path,
				Op:        undo.OpTrash,
				TrashPath: dest,
			})
			switch disposition {
			case "delete":
				if err := e.store.MarkDeleted(ctx, loser.ID); err != nil {
					e.logger.Error("mark deleted failed", logging.Int64(logging.FieldTrackID, loser.ID), logging.Error(err))
				}
			default:
				if err := e.store.UpdatePath(ctx, loser.ID, dest); err != nil {
					e.logger.Error("path update failed", logging.Int64(logging.FieldTrackID, loser.ID), logging.Error(err))
				}
			}
			report.Succeeded++
		}
	}

	if err := e.log.Append(ctx, batch); err != nil {
		return report, err
	}
	report.BatchID = batch.ID
	e.logger.Info("duplicates resolved",
		logging.String(logging.FieldBatchID, batch.ID),
		logging.String("disposition", disposition),
		logging.Int("parked", report.Succeeded),
		logging.Int("failed", len(report.Failed)))
	return report, nil
}

// trashDestination picks a free path for a loser inside the batch's trash
// folder, suffixing the name when two losers share a basename.
func (e *Executor) trashDestination(batchID, source string, parked map[string]struct{}) string {
	base := filepath.Join(e.cfg.Paths.TrashDir, batchID, filepath.Base(source))
	dest := base
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for n := 2; ; n++ {
		if _, taken := parked[dest]; !taken && !fileutil.Exists(dest) {
			return dest
		}
		dest = fmt.Sprintf("%s (%d)%s", stem, n, ext)
	}
}

func (e *Executor) park(source, dest string) (faults.Reason, error) {
	if !fileutil.Exists(source) {
		return faults.ReasonSourceMissing, fmt.Errorf("source %s does not exist", source)
	}
	if err := fileutil.EnsureParent(dest); err != nil {
		return classifyError(err), err
	}
	if err := fileutil.MoveFile(source, dest); err != nil {
		return classifyError(err), err
	}
	return "", nil
}
