package karma

import (
	"context"
	"testing"

	"github.com/pscheid92/karmapulse/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLink_CreatesGroup(t *testing.T) {
	ctx := context.Background()
	repo, store, _ := newTestRepository(t)
	seed(t, store, "golang", 5, 1, nil)
	seed(t, store, "go", 2, 0, nil)

	require.NoError(t, repo.Link(ctx, testScope, []string{"Go", "gopher"}, "golang"))

	assert.Equal(t, domain.AliasesTo("golang"), load(t, store, "go").Aliases)
	assert.Equal(t, domain.AliasesTo("golang"), load(t, store, "gopher").Aliases)
	assert.Equal(t, domain.AliasesFromOther([]string{"go", "gopher"}), load(t, store, "golang").Aliases)
	assert.Equal(t, domain.KarmaAmount{Up: 2}, load(t, store, "go").Votes)

	group, err := repo.Group(ctx, testScope, "gopher")
	require.NoError(t, err)
	assert.Equal(t, "golang", group.Main)
	assert.Equal(t, int64(6), group.Votes().Total())
}

func TestLink_MainAbsorbsMoreSatellites(t *testing.T) {
	ctx := context.Background()
	repo, store, _ := newTestRepository(t)
	seed(t, store, "main", 1, 0, domain.AliasesFromOther([]string{"a"}))
	seed(t, store, "a", 1, 0, domain.AliasesTo("main"))

	require.NoError(t, repo.Link(ctx, testScope, []string{"b"}, "main"))

	assert.Equal(t, domain.AliasesFromOther([]string{"a", "b"}), load(t, store, "main").Aliases)
	assert.Equal(t, domain.AliasesTo("main"), load(t, store, "b").Aliases)
}

func TestLink_RejectsLinkedSatellite(t *testing.T) {
	ctx := context.Background()
	repo, store, _ := newTestRepository(t)
	seed(t, store, "x", 0, 0, domain.AliasesFromOther([]string{"y"}))
	seed(t, store, "y", 0, 0, domain.AliasesTo("x"))
	seed(t, store, "z", 0, 0, nil)
	before := store.snapshot()

	err := repo.Link(ctx, testScope, []string{"y"}, "z")

	assert.ErrorIs(t, err, domain.ErrAlreadyLinked)
	assert.Equal(t, before, store.snapshot())
	assert.Empty(t, store.setCalls)
}

func TestLink_RejectsMainThatIsSatellite(t *testing.T) {
	ctx := context.Background()
	repo, store, _ := newTestRepository(t)
	seed(t, store, "x", 0, 0, domain.AliasesFromOther([]string{"y"}))
	seed(t, store, "y", 0, 0, domain.AliasesTo("x"))

	err := repo.Link(ctx, testScope, []string{"new"}, "y")

	assert.ErrorIs(t, err, domain.ErrAlreadyLinked)
	assert.Empty(t, store.setCalls)
}

func TestLink_InvalidSyntax(t *testing.T) {
	repo, store, _ := newTestRepository(t)

	assert.ErrorIs(t, repo.Link(context.Background(), testScope, nil, "main"), domain.ErrInvalidLinkSyntax)
	assert.ErrorIs(t, repo.Link(context.Background(), testScope, []string{"Main"}, "main"), domain.ErrInvalidLinkSyntax)
	assert.Empty(t, store.setCalls)
}

func TestLink_StoreFailureIsNotRolledBack(t *testing.T) {
	ctx := context.Background()
	repo, store, _ := newTestRepository(t)
	store.setErr[domain.KarmaKey("b")] = errStoreDown

	err := repo.Link(ctx, testScope, []string{"a", "b"}, "main")

	assert.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, domain.AliasesTo("main"), load(t, store, "a").Aliases)
	_, err = store.GetProperty(ctx, testScope, domain.KarmaKey("main"))
	assert.ErrorIs(t, err, domain.ErrPropertyNotFound)
}

func TestLink_LookupFailureAborts(t *testing.T) {
	repo, store, _ := newTestRepository(t)
	store.getErr[domain.KarmaKey("a")] = errStoreDown

	err := repo.Link(context.Background(), testScope, []string{"a"}, "main")

	assert.ErrorIs(t, err, errStoreDown)
	assert.Empty(t, store.setCalls)
}

func TestUnlink_SplitsGroupKeepingVotes(t *testing.T) {
	ctx := context.Background()
	repo, store, _ := newTestRepository(t)
	seed(t, store, "main", 5, 0, domain.AliasesFromOther([]string{"a", "b"}))
	seed(t, store, "a", 1, 2, domain.AliasesTo("main"))
	seed(t, store, "b", 0, 3, domain.AliasesTo("main"))

	group, err := repo.Unlink(ctx, testScope, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "main"}, group.Terms())

	for term, votes := range map[string]domain.KarmaAmount{
		"main": {Up: 5},
		"a":    {Up: 1, Down: 2},
		"b":    {Down: 3},
	} {
		karma := load(t, store, term)
		assert.Nil(t, karma.Aliases, term)
		assert.Equal(t, votes, karma.Votes, term)

		single, err := repo.Group(ctx, testScope, term)
		require.NoError(t, err)
		assert.False(t, single.IsLinked(), term)
	}
}

func TestUnlink_NotLinked(t *testing.T) {
	repo, store, _ := newTestRepository(t)
	seed(t, store, "solo", 1, 0, nil)

	_, err := repo.Unlink(context.Background(), testScope, "solo")
	assert.ErrorIs(t, err, domain.ErrNotLinked)

	_, err = repo.Unlink(context.Background(), testScope, "unknown")
	assert.ErrorIs(t, err, domain.ErrNotLinked)
	assert.Empty(t, store.setCalls)
}
