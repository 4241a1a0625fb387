package models

import (
	"errors"
	"strings"
)

// ErrEmptyQuery is returned when a query has no non-whitespace text.
var ErrEmptyQuery = errors.New("query cannot be empty")

// Query is a search or chat request.
type Query struct {
	Query string `json:"query"`
}

// Validate trims the query text and returns ErrEmptyQuery if nothing is left.
func (q *Query) Validate() error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return ErrEmptyQuery
	}
	return nil
}
