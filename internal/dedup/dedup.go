// Package dedup decides whether an incoming record is new relative to the
// stored dataset.
package dedup

import (
	"log/slog"

	"github.com/plansink/plansink/internal/dataset"
	"github.com/plansink/plansink/internal/flatten"
)

// IsNew reports whether candidate differs from the last stored row on
// compareField.
//
// Only the most recent row is consulted: deliveries arrive in append order
// and the check exists to suppress immediate webhook retries, not arbitrary
// historical duplicates. Ambiguous input (missing field on either side)
// degrades to false so questionable data is never written.
func IsNew(ds *dataset.Dataset, candidate map[string]any, compareField string) bool {
	if ds == nil || ds.Len() == 0 {
		return true
	}

	value, ok := candidate[compareField]
	candidateValue := ""
	if ok {
		candidateValue = flatten.Stringify(value)
	}
	if candidateValue == "" {
		slog.Warn("candidate record missing comparison field, treating as duplicate",
			slog.String("compare_field", compareField))
		return false
	}

	if !ds.HasColumn(compareField) {
		slog.Warn("comparison field absent from dataset schema, treating as duplicate",
			slog.String("compare_field", compareField))
		return false
	}

	last, _ := ds.Last()
	lastValue := last[compareField]

	slog.Debug("comparing against last stored row",
		slog.String("compare_field", compareField),
		slog.String("last", lastValue),
		slog.String("candidate", candidateValue))

	return candidateValue != lastValue
}
