package karma

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/karmapulse/internal/domain"
)

// Repository reads and writes karma records through a PropertyStore. Every
// call goes to the store; nothing is cached between calls.
type Repository struct {
	store domain.PropertyStore
	clock clockwork.Clock
}

func NewRepository(store domain.PropertyStore, clock clockwork.Clock) *Repository {
	return &Repository{store: store, clock: clock}
}

// New returns a fresh record for term stamped with the current time.
func (r *Repository) New(term string) *domain.Karma {
	return domain.NewKarma(term, r.now())
}

// Get loads the record for term. A missing or undecodable record yields an
// error wrapping domain.ErrKarmaNotFound; store failures are returned wrapped
// as they are. On success OriginalTerm is set to term as given.
func (r *Repository) Get(ctx context.Context, scope domain.Scope, term string) (*domain.Karma, error) {
	key := domain.KarmaKey(term)

	value, err := r.store.GetProperty(ctx, scope, key)
	if errors.Is(err, domain.ErrPropertyNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrKarmaNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read karma %q: %w", key, err)
	}

	karma, err := decodeKarma(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrKarmaNotFound, key, err)
	}

	karma.Term = domain.CanonicalTerm(term)
	karma.OriginalTerm = term
	return karma, nil
}

// GetOrNew loads the record for term, falling back to a fresh one on any
// failure.
func (r *Repository) GetOrNew(ctx context.Context, scope domain.Scope, term string) *domain.Karma {
	karma, err := r.Get(ctx, scope, term)
	if err == nil {
		return karma
	}

	if errors.Is(err, domain.ErrKarmaNotFound) {
		slog.DebugContext(ctx, "Creating new karma", "scope", scope, "term", term, "reason", err)
	} else {
		slog.WarnContext(ctx, "Karma lookup failed, creating new karma", "scope", scope, "term", term, "error", err)
	}
	return r.New(term)
}

// Vote applies delta to karma without persisting it.
func (r *Repository) Vote(karma *domain.Karma, delta domain.KarmaAmount) {
	karma.Vote(delta, r.now())
}

// Save writes karma under its canonical key.
func (r *Repository) Save(ctx context.Context, scope domain.Scope, karma *domain.Karma) error {
	value, err := encodeKarma(karma)
	if err != nil {
		return err
	}

	if err := r.store.SetProperty(ctx, scope, domain.KarmaKey(karma.Term), value); err != nil {
		return fmt.Errorf("failed to store karma %q: %w", karma.Term, err)
	}
	return nil
}

func (r *Repository) now() time.Time {
	return r.clock.Now().UTC()
}

func encodeKarma(karma *domain.Karma) (string, error) {
	data, err := json.Marshal(karma)
	if err != nil {
		return "", fmt.Errorf("failed to encode karma %q: %w", karma.Term, err)
	}
	return string(data), nil
}

func decodeKarma(value string) (*domain.Karma, error) {
	var karma domain.Karma
	if err := json.Unmarshal([]byte(value), &karma); err != nil {
		return nil, fmt.Errorf("failed to decode karma: %w", err)
	}
	return &karma, nil
}
