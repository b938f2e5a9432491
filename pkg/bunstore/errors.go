package bunstore

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// TextCodeConstraint marks errors caused by a violated table constraint.
const TextCodeConstraint = "CONSTRAINT_VIOLATION"

// translateError classifies driver errors. The driver error stays reachable
// through errors.Is and errors.As.
func translateError(err error, operation string) error {
	if err == nil {
		return nil
	}

	message := "bunstore: " + operation

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return goerrors.Wrap(err, goerrors.CategoryExternal, message)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return goerrors.Wrap(err, goerrors.CategoryConflict, message).
			WithTextCode(TextCodeConstraint)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// class 23: integrity constraint violation
		if pqErr.Code.Class() == "23" {
			return goerrors.Wrap(err, goerrors.CategoryConflict, message).
				WithTextCode(TextCodeConstraint).
				WithMetadata(map[string]any{"constraint": pqErr.Constraint})
		}
		return goerrors.Wrap(err, goerrors.CategoryExternal, message).
			WithMetadata(map[string]any{"pg_code": string(pqErr.Code)})
	}

	return goerrors.Wrap(err, goerrors.CategoryExternal, message)
}
