package karma

import (
	"strings"

	"github.com/pscheid92/karmapulse/internal/domain"
)

// Aggregate collapses the changes of one message into one net change per
// canonical term, in order of first occurrence. Votes are summed and the style
// becomes the most explicit one seen. Each result keeps the term text of its
// first occurrence.
func Aggregate(changes []domain.KarmaChange) []domain.KarmaChange {
	index := make(map[string]int, len(changes))
	totals := make([]domain.KarmaChange, 0, len(changes))

	for _, change := range changes {
		key := domain.CanonicalTerm(change.Term)
		if i, ok := index[key]; ok {
			totals[i].Votes = totals[i].Votes.Add(change.Votes)
			totals[i].Style = domain.MostExplicit(totals[i].Style, change.Style)
			continue
		}
		index[key] = len(totals)
		totals = append(totals, change)
	}
	return totals
}

// Clean trims surrounding whitespace from each term and drops changes whose
// term ends up empty, e.g. "[ ]++".
func Clean(changes []domain.KarmaChange) []domain.KarmaChange {
	relevant := make([]domain.KarmaChange, 0, len(changes))
	for _, change := range changes {
		change.Term = strings.TrimSpace(change.Term)
		if change.Term == "" {
			continue
		}
		relevant = append(relevant, change)
	}
	return relevant
}
