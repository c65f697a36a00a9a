package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/karmapulse/internal/domain"
	"github.com/pscheid92/karmapulse/internal/karma"
)

const (
	legacyTotalPrefix = "perl.DazKarma.karma_"
	legacyUpPrefix    = "perl.DazKarma.upkarma_"
	legacyDownPrefix  = "perl.DazKarma.downkarma_"
)

type propertyStore interface {
	domain.PropertyStore
	domain.PropertyLister
}

type legacyKarma struct {
	term  string
	total int64
	up    int64
	down  int64
}

// repair makes up - down agree with total, which is the authoritative
// legacy counter.
func (l *legacyKarma) repair() {
	switch diff := l.total - (l.up - l.down); {
	case diff > 0:
		l.up += diff
	case diff < 0:
		l.down -= diff
	}
}

type summary struct {
	Scanned  int
	Terms    int
	Migrated int
	Existing int
	Repaired int
}

type migrator struct {
	store  propertyStore
	karmas *karma.Repository
	dryRun bool
}

func newMigrator(store propertyStore, clock clockwork.Clock, dryRun bool) *migrator {
	return &migrator{store: store, karmas: karma.NewRepository(store, clock), dryRun: dryRun}
}

func (m *migrator) migrateScope(ctx context.Context, scope domain.Scope) (summary, error) {
	var sum summary

	keys, err := m.store.PropertyKeys(ctx, scope, legacyTotalPrefix)
	if err != nil {
		return sum, fmt.Errorf("failed to list legacy keys: %w", err)
	}
	sum.Scanned = len(keys)
	slog.Info("Found legacy karma keys", "scope", scope, "keys", len(keys))

	legacy, repaired, err := m.collect(ctx, scope, keys)
	if err != nil {
		return sum, err
	}
	sum.Terms = len(legacy)
	sum.Repaired = repaired

	for _, l := range legacy {
		_, err := m.store.GetProperty(ctx, scope, domain.KarmaKey(l.term))
		if err == nil {
			slog.Debug("Skipping term with existing record", "scope", scope, "term", l.term)
			sum.Existing++
			continue
		}
		if !errors.Is(err, domain.ErrPropertyNotFound) {
			return sum, fmt.Errorf("failed to check existing record for %q: %w", l.term, err)
		}

		record := m.karmas.New(l.term)
		record.Votes = domain.KarmaAmount{Up: l.up, Down: l.down}

		slog.Debug("Migrating term", "scope", scope, "term", l.term, "votes", record.Votes.String(), "dry_run", m.dryRun)
		if !m.dryRun {
			if err := m.karmas.Save(ctx, scope, record); err != nil {
				return sum, err
			}
		}
		sum.Migrated++
	}

	return sum, nil
}

// collect reads the three legacy counters per key, merges keys that
// normalise to the same term and repairs inconsistent counters. The result
// is sorted by term.
func (m *migrator) collect(ctx context.Context, scope domain.Scope, keys []string) ([]*legacyKarma, int, error) {
	byTerm := make(map[string]*legacyKarma)
	for _, key := range keys {
		raw := strings.TrimPrefix(key, legacyTotalPrefix)
		term := normalizeTerm(raw)
		if term == "" {
			slog.Debug("Skipping empty legacy term", "scope", scope, "key", key)
			continue
		}

		total, err := m.counter(ctx, scope, legacyTotalPrefix+raw)
		if err != nil {
			return nil, 0, err
		}
		up, err := m.counter(ctx, scope, legacyUpPrefix+raw)
		if err != nil {
			return nil, 0, err
		}
		down, err := m.counter(ctx, scope, legacyDownPrefix+raw)
		if err != nil {
			return nil, 0, err
		}

		l, ok := byTerm[term]
		if !ok {
			l = &legacyKarma{term: term}
			byTerm[term] = l
		} else {
			slog.Debug("Merging duplicate legacy term", "scope", scope, "term", term, "key", key)
		}
		l.total += total
		l.up += up
		l.down += down
	}

	repaired := 0
	result := make([]*legacyKarma, 0, len(byTerm))
	for _, l := range byTerm {
		before := *l
		l.repair()
		if before != *l {
			slog.Debug("Repaired legacy counters", "scope", scope, "term", l.term,
				"up_before", before.up, "down_before", before.down, "up", l.up, "down", l.down, "total", l.total)
			repaired++
		}
		result = append(result, l)
	}
	slices.SortFunc(result, func(a, b *legacyKarma) int { return strings.Compare(a.term, b.term) })
	return result, repaired, nil
}

// counter reads a legacy integer property. Missing or garbled values count
// as zero.
func (m *migrator) counter(ctx context.Context, scope domain.Scope, key string) (int64, error) {
	value, err := m.store.GetProperty(ctx, scope, key)
	if errors.Is(err, domain.ErrPropertyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %q: %w", key, err)
	}

	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		slog.Warn("Ignoring unparsable legacy counter", "scope", scope, "key", key, "value", value)
		return 0, nil
	}
	return n, nil
}

func normalizeTerm(term string) string {
	return domain.CanonicalTerm(strings.TrimSpace(term))
}
