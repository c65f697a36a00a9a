package karma

import (
	"testing"

	"github.com/pscheid92/karmapulse/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestAggregate_EscalatesStyle(t *testing.T) {
	got := Aggregate([]domain.KarmaChange{
		change("foo", domain.VoteUp, domain.StyleImplicit),
		change("foo", domain.VoteUp, domain.StyleNotify),
	})

	assert.Equal(t, []domain.KarmaChange{
		change("foo", domain.KarmaAmount{Up: 2}, domain.StyleNotify),
	}, got)
}

func TestAggregate_NetsVotesPerCanonicalTerm(t *testing.T) {
	got := Aggregate([]domain.KarmaChange{
		change("Foo", domain.VoteUp, domain.StyleImplicit),
		change("bar", domain.VoteDown, domain.StyleSilent),
		change("FOO", domain.VoteUp, domain.StyleImplicit),
		change("foo", domain.VoteDown, domain.StyleSilent),
	})

	assert.Equal(t, []domain.KarmaChange{
		change("Foo", domain.KarmaAmount{Up: 2, Down: 1}, domain.StyleSilent),
		change("bar", domain.VoteDown, domain.StyleSilent),
	}, got)
}

func TestAggregate_Empty(t *testing.T) {
	assert.Empty(t, Aggregate(nil))
}

func TestClean_DropsBlankTerms(t *testing.T) {
	got := Clean([]domain.KarmaChange{
		change(" spaced ", domain.VoteUp, domain.StyleNotify),
		change("   ", domain.VoteUp, domain.StyleNotify),
		change("", domain.VoteDown, domain.StyleSilent),
		change("plain", domain.VoteDown, domain.StyleImplicit),
	})

	assert.Equal(t, []domain.KarmaChange{
		change("spaced", domain.VoteUp, domain.StyleNotify),
		change("plain", domain.VoteDown, domain.StyleImplicit),
	}, got)
}
