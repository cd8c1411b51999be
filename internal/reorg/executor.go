package reorg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"crate/internal/catalog"
	"crate/internal/config"
	"crate/internal/faults"
	"crate/internal/fileutil"
	"crate/internal/logging"
	"crate/internal/undo"
)

// Executor applies plans. One executor instance is safe for sequential use;
// concurrent runs are excluded by a lock file in the data directory.
type Executor struct {
	cfg    *config.Config
	store  *catalog.Store
	log    *undo.Log
	logger *slog.Logger
}

func NewExecutor(cfg *config.Config, store *catalog.Store, log *undo.Log, logger *slog.Logger) *Executor {
	return &Executor{
		cfg:    cfg,
		store:  store,
		log:    log,
		logger: logging.NewComponentLogger(logger, "executor"),
	}
}

// Execute applies a plan entry by entry. Per-entry failures do not stop the
// batch; whatever committed is sealed into the undo log before the report is
// returned, including after cancellation between entries. Simulate mode only
// tallies the plan and touches neither the filesystem nor the undo log.
func (e *Executor) Execute(ctx context.Context, plan *Plan) (*Report, error) {
	report := &Report{Mode: plan.Mode}
	for _, entry := range plan.Entries {
		switch entry.Op {
		case OpNoop:
			report.NoOps++
		case OpConflict:
			report.Conflicts++
		}
	}
	if !plan.Mode.Mutates() {
		report.Attempted = len(plan.Entries) - report.NoOps - report.Conflicts
		return report, nil
	}

	lock, err := e.acquireRunLock()
	if err != nil {
		return nil, err
	}
	defer lock.Unlock()

	if err := e.preflight(plan); err != nil {
		return nil, err
	}

	batch := undo.NewBatch(string(plan.Mode))
	for _, entry := range plan.Entries {
		if ctx.Err() != nil {
			e.logger.Warn("execution cancelled, sealing partial batch",
				logging.String(logging.FieldBatchID, batch.ID))
			break
		}
		if entry.Op == OpNoop || entry.Op == OpConflict {
			continue
		}
		report.Attempted++
		if reason, err := e.apply(entry); err != nil {
			report.Failed = append(report.Failed, EntryFailure{
				Entry:  entry,
				Reason: reason,
				Detail: err.Error(),
			})
			e.logger.Warn("entry failed",
				logging.Int64(logging.FieldTrackID, entry.TrackID),
				logging.String("source", entry.Source),
				logging.String("reason", string(reason)),
				logging.Error(err))
			continue
		}
		batch.Record(undo.Entry{
			TrackID: entry.TrackID,
			Source:  entry.Source,
			Target:  entry.Target,
			Op:      string(entry.Op),
		})
		if entry.Op == OpMove && entry.TrackID != 0 {
			if err := e.store.UpdatePath(ctx, entry.TrackID, entry.Target); err != nil {
				e.logger.Error("path update failed after move",
					logging.Int64(logging.FieldTrackID, entry.TrackID),
					logging.Error(err))
			}
		}
		report.Succeeded++
	}

	// The undo batch must be durable before the run is reported complete.
	if err := e.log.Append(ctx, batch); err != nil {
		return report, err
	}
	report.BatchID = batch.ID
	e.logger.Info("batch executed",
		logging.String(logging.FieldBatchID, batch.ID),
		logging.String("mode", string(plan.Mode)),
		logging.Int("succeeded", report.Succeeded),
		logging.Int("failed", len(report.Failed)))
	return report, nil
}

// apply runs one entry through verify and apply. The returned reason is
// meaningful only when err is non-nil.
func (e *Executor) apply(entry Entry) (faults.Reason, error) {
	if !fileutil.Exists(entry.Source) {
		return faults.ReasonSourceMissing, fmt.Errorf("source %s does not exist", entry.Source)
	}
	if fileutil.Exists(entry.Target) {
		return faults.ReasonTargetExists, fmt.Errorf("target %s already exists", entry.Target)
	}
	if err := fileutil.EnsureParent(entry.Target); err != nil {
		return classifyError(err), err
	}

	var op func(src, dst string) error
	switch entry.Op {
	case OpMove:
		op = fileutil.MoveFile
	case OpCopy:
		op = fileutil.CopyFileVerified
	case OpLink:
		op = fileutil.LinkFile
	default:
		return faults.ReasonIOError, fmt.Errorf("unknown operation %q", entry.Op)
	}

	var err error
	for attempt := 0; attempt <= e.cfg.Organize.RetryTransient; attempt++ {
		err = op(entry.Source, entry.Target)
		if err == nil || !isTransient(err) {
			break
		}
	}
	if err != nil {
		return classifyError(err), err
	}
	return "", nil
}

func (e *Executor) acquireRunLock() (*flock.Flock, error) {
	path := filepath.Join(e.cfg.Paths.DataDir, "crate.lock")
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, faults.Wrap(faults.ErrIO, "executor", "lock", "acquire run lock", err)
	}
	if !locked {
		return nil, faults.Wrap(faults.ErrValidation, "executor", "lock", "another run is in progress", nil)
	}
	return lock, nil
}

// preflight checks the destination root before any mutation. Failures here
// abort the whole run; nothing has been touched yet.
func (e *Executor) preflight(plan *Plan) error {
	if err := os.MkdirAll(plan.Root, 0o755); err != nil {
		return faults.Wrap(faults.ErrConfiguration, "executor", "preflight", "destination root not writable", err)
	}

	required := e.cfg.Organize.FreeSpaceMarginMiB * 1024 * 1024
	if plan.Mode == ModeCopy {
		for _, entry := range plan.Entries {
			if entry.Op != OpCopy {
				continue
			}
			if info, err := os.Stat(entry.Source); err == nil {
				required += info.Size()
			}
		}
	}

	var fs unix.Statfs_t
	if err := unix.Statfs(plan.Root, &fs); err != nil {
		return faults.Wrap(faults.ErrIO, "executor", "preflight", "statfs destination root", err)
	}
	free := int64(fs.Bavail) * int64(fs.Bsize)
	if free < required {
		return faults.Wrap(faults.ErrValidation, "executor", "preflight",
			fmt.Sprintf("insufficient free space: %d bytes available, %d required", free, required), nil)
	}
	return nil
}

func classifyError(err error) faults.Reason {
	switch {
	case os.IsNotExist(err):
		return faults.ReasonSourceMissing
	case os.IsPermission(err):
		return faults.ReasonPermissionDenied
	default:
		return faults.ReasonIOError
	}
}

func isTransient(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR)
}
