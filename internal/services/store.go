package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/monocle-dev/pms/internal/slugs"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation = "23505"
	maxSlugAttempts   = 5
)

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// slugTarget describes one row whose unique slug column is allocated on write.
type slugTarget struct {
	table    string
	column   string
	fallback string
	// check re-validates preconditions at the start of every attempt, so a
	// conflicting concurrent writer is reported as a business error.
	check func(tx *gorm.DB) error
	write func(tx *gorm.DB, slug string) error
}

// allocateSlug writes t with the first free "<base>", "<base>-1", "<base>-2"...
// The unique index is the arbiter: a write that loses a race is rolled back to a
// savepoint and retried with the next candidate, up to maxSlugAttempts times.
// tx must be a transaction.
func allocateSlug(tx *gorm.DB, text string, t slugTarget) (string, error) {
	base := slugs.Slugify(text)
	if base == "" {
		base = t.fallback
	}

	next := 0

	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		if t.check != nil {
			if err := t.check(tx); err != nil {
				return "", err
			}
		}

		candidate, n, err := nextFreeSlug(tx, t.table, t.column, base, next)
		if err != nil {
			return "", err
		}

		savepoint := fmt.Sprintf("slug_attempt_%d", attempt)
		if err := tx.SavePoint(savepoint).Error; err != nil {
			return "", err
		}

		err = t.write(tx, candidate)
		if err == nil {
			return candidate, nil
		}

		if rbErr := tx.RollbackTo(savepoint).Error; rbErr != nil {
			return "", rbErr
		}

		if !isUniqueViolation(err) {
			return "", err
		}

		next = n + 1
	}

	return "", Conflict(NonFieldErrors, "Could not allocate a unique identifier, please try again.")
}

func nextFreeSlug(tx *gorm.DB, table, column, base string, from int) (string, int, error) {
	var taken []string

	err := tx.Table(table).
		Where(column+" = ? OR "+column+" LIKE ?", base, base+"-%").
		Pluck(column, &taken).Error

	if err != nil {
		return "", 0, err
	}

	used := make(map[string]bool, len(taken))
	for _, s := range taken {
		used[s] = true
	}

	for n := from; ; n++ {
		candidate := slugs.WithSuffix(base, n)
		if !used[candidate] {
			return candidate, n, nil
		}
	}
}

// fail logs and wraps unexpected store errors. Service errors pass through.
func fail(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}

	if _, ok := AsError(err); ok {
		return err
	}

	slog.ErrorContext(ctx, "store failure", "op", op, "err", err)
	return fmt.Errorf("%s: %w", op, err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a case-folded LIKE pattern; pair it with likeClause.
func containsPattern(fragment string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(fragment)) + "%"
}

func likeClause(column string) string {
	return "LOWER(" + column + ") LIKE ? ESCAPE '\\'"
}
