package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/karmapulse/internal/domain"
)

const (
	getPropertyQuery = `SELECT value FROM properties WHERE scope = $1 AND key = $2`

	setPropertyQuery = `
INSERT INTO properties (scope, key, value)
VALUES ($1, $2, $3)
ON CONFLICT (scope, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	propertyKeysQuery = `SELECT key FROM properties WHERE scope = $1 AND key LIKE $2 ORDER BY key`
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// PropertyStore keeps properties as rows keyed by (scope, key).
type PropertyStore struct {
	pool *pgxpool.Pool
}

var (
	_ domain.PropertyStore  = (*PropertyStore)(nil)
	_ domain.PropertyLister = (*PropertyStore)(nil)
)

func NewPropertyStore(pool *pgxpool.Pool) *PropertyStore {
	return &PropertyStore{pool: pool}
}

func (s *PropertyStore) GetProperty(ctx context.Context, scope domain.Scope, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, getPropertyQuery, string(scope), key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrPropertyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get property %q: %w", key, err)
	}
	return value, nil
}

func (s *PropertyStore) SetProperty(ctx context.Context, scope domain.Scope, key, value string) error {
	if _, err := s.pool.Exec(ctx, setPropertyQuery, string(scope), key, value); err != nil {
		return fmt.Errorf("failed to set property %q: %w", key, err)
	}
	return nil
}

func (s *PropertyStore) PropertyKeys(ctx context.Context, scope domain.Scope, prefix string) ([]string, error) {
	rows, err := s.pool.Query(ctx, propertyKeysQuery, string(scope), likeEscaper.Replace(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list properties of %q: %w", scope, err)
	}

	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to list properties of %q: %w", scope, err)
	}
	return keys, nil
}
