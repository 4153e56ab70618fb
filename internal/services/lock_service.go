package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fundmatch-labs/fundmatch/internal/apperrors"
	"github.com/fundmatch-labs/fundmatch/internal/constants"
	"github.com/fundmatch-labs/fundmatch/internal/models"
	"gorm.io/gorm"
)

// ExecutionLockService guarantees at-most-one concurrent execution of a
// privileged, chain-state-mutating operation identified by an integer subject
// id (payment id or withdrawal id).
//
// On Postgres the guarantee comes from pg_try_advisory_xact_lock: the lock is
// bound to the surrounding transaction and the database releases it on commit,
// rollback or connection loss, which is what makes it safe across process
// crashes. Acquisition is non-blocking; a held lock surfaces as a Conflict
// error within a single round-trip, never as a wait.
type ExecutionLockService interface {
	// WithLock runs fn inside a database transaction holding the execution
	// lock for subjectID. fn receives the locked transaction handle; any
	// writes the lock guards must go through it. If the lock is held
	// elsewhere, WithLock returns a ConflictError immediately. If fn returns
	// an error, the transaction rolls back, the lock is released, and the
	// error propagates unmodified.
	WithLock(ctx context.Context, subjectID int64, fn func(tx *gorm.DB) error) error

	// TryAcquireTransactionLock attempts a non-blocking lock acquire on an
	// existing transaction. Exposed for flows that manage their own
	// transaction boundaries.
	TryAcquireTransactionLock(tx *gorm.DB, lockClass int, subjectID int64) (bool, error)
}

type executionLockService struct {
	db *gorm.DB
}

// NewExecutionLockService creates an ExecutionLockService on the given
// database handle.
func NewExecutionLockService(db *gorm.DB) ExecutionLockService {
	return &executionLockService{db: db}
}

func (s *executionLockService) WithLock(ctx context.Context, subjectID int64, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acquired, err := s.TryAcquireTransactionLock(tx, constants.ExecutionLockClass, subjectID)
		if err != nil {
			return err
		}
		if !acquired {
			return apperrors.NewConflict(
				"subject %d is already being processed by another session", subjectID)
		}

		if err := fn(tx); err != nil {
			return err
		}

		// The lock-table fallback has no transaction-end hook, so the row is
		// removed here; commit makes the removal visible, rollback undoes the
		// insert. Either way the lock does not outlive the transaction.
		if tx.Dialector.Name() != "postgres" {
			return tx.Where("lock_class = ? AND subject_id = ?", constants.ExecutionLockClass, subjectID).
				Delete(&models.ExecutionLock{}).Error
		}
		return nil
	})
}

func (s *executionLockService) TryAcquireTransactionLock(tx *gorm.DB, lockClass int, subjectID int64) (bool, error) {
	if tx.Dialector.Name() == "postgres" {
		var acquired bool
		err := tx.Raw("SELECT pg_try_advisory_xact_lock(?, ?)", lockClass, subjectID).Scan(&acquired).Error
		if err != nil {
			return false, err
		}
		return acquired, nil
	}

	// Dedicated lock-table row with a composite primary key: the insert
	// fails while another uncommitted or unfinished holder's row exists,
	// giving the same non-blocking semantics.
	lock := models.ExecutionLock{
		LockClass:  lockClass,
		SubjectID:  subjectID,
		AcquiredAt: time.Now(),
	}
	if err := tx.Create(&lock).Error; err != nil {
		if isLockContention(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// isLockContention reports whether an insert failure means the lock is held by
// another session. A key conflict is a committed holder's row; a busy/locked
// sqlite error is a holder whose transaction is still open, since sqlite
// serializes writers at the file level. Anything else (missing table, I/O) is
// a real database failure and must surface as one.
func isLockContention(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}
