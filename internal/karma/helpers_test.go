package karma

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/karmapulse/internal/domain"
	"github.com/stretchr/testify/require"
)

const testScope domain.Scope = "testnet"

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

var errStoreDown = errors.New("store unavailable")

// --- Mocks ---

type mockPropertyStore struct {
	mu         sync.Mutex
	properties map[string]string
	getErr     map[string]error
	setErr     map[string]error
	setCalls   []string
}

func newMockPropertyStore() *mockPropertyStore {
	return &mockPropertyStore{
		properties: make(map[string]string),
		getErr:     make(map[string]error),
		setErr:     make(map[string]error),
	}
}

func (m *mockPropertyStore) GetProperty(_ context.Context, scope domain.Scope, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.getErr[key]; ok {
		return "", err
	}
	value, ok := m.properties[string(scope)+"/"+key]
	if !ok {
		return "", domain.ErrPropertyNotFound
	}
	return value, nil
}

func (m *mockPropertyStore) SetProperty(_ context.Context, scope domain.Scope, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls = append(m.setCalls, key)
	if err, ok := m.setErr[key]; ok {
		return err
	}
	m.properties[string(scope)+"/"+key] = value
	return nil
}

func (m *mockPropertyStore) snapshot() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(map[string]string, len(m.properties))
	for k, v := range m.properties {
		cp[k] = v
	}
	return cp
}

// --- Helpers ---

func newTestRepository(t *testing.T) (*Repository, *mockPropertyStore, *clockwork.FakeClock) {
	t.Helper()
	store := newMockPropertyStore()
	clock := clockwork.NewFakeClockAt(testNow)
	return NewRepository(store, clock), store, clock
}

// seed writes a record directly into the store.
func seed(t *testing.T, store *mockPropertyStore, term string, up, down int64, aliases *domain.Aliases) {
	t.Helper()
	karma := domain.NewKarma(term, testNow)
	karma.Votes = domain.KarmaAmount{Up: up, Down: down}
	karma.Aliases = aliases
	data, err := json.Marshal(karma)
	require.NoError(t, err)
	require.NoError(t, store.SetProperty(context.Background(), testScope, domain.KarmaKey(term), string(data)))
	store.setCalls = nil
}

// load reads a record directly from the store.
func load(t *testing.T, store *mockPropertyStore, term string) *domain.Karma {
	t.Helper()
	value, err := store.GetProperty(context.Background(), testScope, domain.KarmaKey(term))
	require.NoError(t, err)
	var karma domain.Karma
	require.NoError(t, json.Unmarshal([]byte(value), &karma))
	return &karma
}
