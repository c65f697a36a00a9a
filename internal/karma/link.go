package karma

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/pscheid92/karmapulse/internal/domain"
)

// Link aliases terms into main's group. It is rejected with
// domain.ErrAlreadyLinked when any participant already belongs to a
// multi-member group, except main when it is that group's main term.
//
// Writes are independent: satellites are saved one by one and main last. A
// failing save aborts the operation without undoing earlier writes.
func (r *Repository) Link(ctx context.Context, scope domain.Scope, terms []string, main string) error {
	mainKey := domain.CanonicalTerm(main)

	satellites := make([]string, 0, len(terms))
	for _, term := range terms {
		key := domain.CanonicalTerm(term)
		if key == "" || key == mainKey || slices.Contains(satellites, key) {
			continue
		}
		satellites = append(satellites, key)
	}
	if mainKey == "" || len(satellites) == 0 {
		return domain.ErrInvalidLinkSyntax
	}

	mainGroup, err := r.groupIfExists(ctx, scope, main)
	if err != nil {
		return err
	}
	if mainGroup != nil && mainGroup.IsLinked() && mainGroup.Main != mainKey {
		return fmt.Errorf("'%s' is %w", main, domain.ErrAlreadyLinked)
	}

	originals := make(map[string]string, len(terms))
	for _, term := range terms {
		key := domain.CanonicalTerm(term)
		if _, seen := originals[key]; !seen {
			originals[key] = term
		}
	}

	for _, key := range satellites {
		group, err := r.groupIfExists(ctx, scope, originals[key])
		if err != nil {
			return err
		}
		if group != nil && group.IsLinked() {
			return fmt.Errorf("'%s' is %w", originals[key], domain.ErrAlreadyLinked)
		}
	}

	mainKarma := r.GetOrNew(ctx, scope, main)
	var existing []string
	if mainKarma.Aliases != nil && mainKarma.Aliases.Kind == domain.AliasFromOther {
		existing = mainKarma.Aliases.Satellites
	}

	for _, key := range satellites {
		satellite := r.GetOrNew(ctx, scope, originals[key])
		satellite.Aliases = domain.AliasesTo(mainKey)
		if err := r.Save(ctx, scope, satellite); err != nil {
			return err
		}
	}

	linked := slices.Clone(existing)
	for _, key := range satellites {
		if !slices.Contains(linked, key) {
			linked = append(linked, key)
		}
	}
	mainKarma.Aliases = domain.AliasesFromOther(linked)
	return r.Save(ctx, scope, mainKarma)
}

// Unlink splits the group containing term into standalone records. Votes stay
// with the member that received them. A term that is unknown or alone yields
// domain.ErrNotLinked.
func (r *Repository) Unlink(ctx context.Context, scope domain.Scope, term string) (*domain.KarmaGroup, error) {
	group, err := r.groupIfExists(ctx, scope, term)
	if err != nil {
		return nil, err
	}
	if group == nil || !group.IsLinked() {
		return nil, fmt.Errorf("'%s' is %w", term, domain.ErrNotLinked)
	}

	for _, member := range group.Terms() {
		karma := group.Karmas[member]
		karma.Aliases = nil
		if err := r.Save(ctx, scope, karma); err != nil {
			return nil, err
		}
	}
	return group, nil
}

// groupIfExists resolves the group of term, returning nil without error when
// no record exists for it.
func (r *Repository) groupIfExists(ctx context.Context, scope domain.Scope, term string) (*domain.KarmaGroup, error) {
	group, err := r.Group(ctx, scope, term)
	if errors.Is(err, domain.ErrKarmaNotFound) {
		return nil, nil
	}
	return group, err
}
