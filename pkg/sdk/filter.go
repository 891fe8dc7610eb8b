package sdk

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-bexpr"
)

// Filter keeps the items matching a go-bexpr expression evaluated against each
// item's bexpr-tagged fields (e.g. `status == "pending" and "18:00" in slots`).
// An empty expression keeps everything.
func Filter[T any](items []T, expr string) ([]T, error) {
	if strings.TrimSpace(expr) == "" {
		return items, nil
	}
	evaluator, err := bexpr.CreateEvaluator(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", expr, err)
	}

	matched := make([]T, 0, len(items))
	for _, item := range items {
		ok, err := evaluator.Evaluate(item)
		if err != nil {
			return nil, fmt.Errorf("evaluate filter %q: %w", expr, err)
		}
		if ok {
			matched = append(matched, item)
		}
	}
	return matched, nil
}
