package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/pscheid92/karmapulse/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const scanBatch = 256

// PropertyStore keeps each scope's properties in the hash properties:<scope>.
type PropertyStore struct {
	rdb *goredis.Client
}

var (
	_ domain.PropertyStore  = (*PropertyStore)(nil)
	_ domain.PropertyLister = (*PropertyStore)(nil)
)

func NewPropertyStore(rdb *goredis.Client) *PropertyStore {
	return &PropertyStore{rdb: rdb}
}

func hashKey(scope domain.Scope) string {
	return "properties:" + string(scope)
}

func (s *PropertyStore) GetProperty(ctx context.Context, scope domain.Scope, key string) (string, error) {
	value, err := s.rdb.HGet(ctx, hashKey(scope), key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", domain.ErrPropertyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get property %q: %w", key, err)
	}
	return value, nil
}

func (s *PropertyStore) SetProperty(ctx context.Context, scope domain.Scope, key, value string) error {
	if err := s.rdb.HSet(ctx, hashKey(scope), key, value).Err(); err != nil {
		return fmt.Errorf("failed to set property %q: %w", key, err)
	}
	return nil
}

// PropertyKeys returns the sorted keys in scope starting with prefix.
func (s *PropertyStore) PropertyKeys(ctx context.Context, scope domain.Scope, prefix string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		page, next, err := s.rdb.HScan(ctx, hashKey(scope), cursor, escapeGlob(prefix)+"*", scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan properties of %q: %w", scope, err)
		}
		// HSCAN replies with alternating field and value.
		for i := 0; i < len(page); i += 2 {
			if strings.HasPrefix(page[i], prefix) {
				keys = append(keys, page[i])
			}
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	// HSCAN may return a field more than once.
	slices.Sort(keys)
	return slices.Compact(keys), nil
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
