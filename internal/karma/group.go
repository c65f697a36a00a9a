package karma

import (
	"context"
	"log/slog"

	"github.com/pscheid92/karmapulse/internal/domain"
)

// Group resolves the alias closure of term. The record for term itself must
// exist; records reached only through alias links are skipped when they can't
// be loaded. The traversal uses an explicit work list and visited set, so
// cyclic alias data terminates.
func (r *Repository) Group(ctx context.Context, scope domain.Scope, term string) (*domain.KarmaGroup, error) {
	start := domain.CanonicalTerm(term)
	group := &domain.KarmaGroup{Karmas: make(map[string]*domain.Karma)}

	pending := []string{term}
	first := true
	for len(pending) > 0 {
		current := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		canonical := domain.CanonicalTerm(current)
		if _, visited := group.Karmas[canonical]; visited {
			continue
		}

		karma, err := r.Get(ctx, scope, current)
		if err != nil {
			if first {
				return nil, err
			}
			slog.DebugContext(ctx, "Skipping unresolvable alias", "scope", scope, "term", current, "error", err)
			continue
		}
		first = false

		if karma.Aliases != nil {
			switch karma.Aliases.Kind {
			case domain.AliasTo:
				pending = append(pending, karma.Aliases.Main)
			case domain.AliasFromOther:
				pending = append(pending, karma.Aliases.Satellites...)
				if group.Main != "" {
					slog.WarnContext(ctx, "Bad karma data: multiple mains found in group",
						"scope", scope, "main", group.Main, "other", karma.Term)
				} else {
					group.Main = karma.Term
				}
			}
		}
		group.Karmas[karma.Term] = karma
	}

	if group.Main == "" {
		if len(group.Karmas) > 1 {
			slog.WarnContext(ctx, "Bad karma data: no main found in group",
				"scope", scope, "term", start, "terms", group.Terms())
		}
		group.Main = start
	}
	return group, nil
}

// GroupOrNew resolves the group of term, falling back to a singleton group
// around a fresh record.
func (r *Repository) GroupOrNew(ctx context.Context, scope domain.Scope, term string) *domain.KarmaGroup {
	group, err := r.Group(ctx, scope, term)
	if err != nil {
		slog.DebugContext(ctx, "Creating new karma group", "scope", scope, "term", term, "reason", err)
		return domain.NewKarmaGroup(r.New(term))
	}
	return group
}
