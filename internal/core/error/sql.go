package errx

import (
	"database/sql"
	"errors"
	"net/http"
)

// WrapSQL maps database/sql errors from the domain stores to an AppError.
func WrapSQL(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return New(err, http.StatusNotFound, StoreNotFoundMessage)
	}
	return New(err, http.StatusBadGateway, StoreErrorMessage)
}
