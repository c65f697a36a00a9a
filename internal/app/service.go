package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/karmapulse/internal/adapter/metrics"
	"github.com/pscheid92/karmapulse/internal/domain"
	"github.com/pscheid92/karmapulse/internal/karma"
	"golang.org/x/sync/singleflight"
)

// Service is the application layer. It turns chat lines and commands into
// karma operations and phrases the replies.
type Service struct {
	karmas        *karma.Repository
	metrics       *metrics.KarmaMetrics
	clock         clockwork.Clock
	highlightChar string
	botNick       string
	locks         *scopeLocks
	reports       singleflight.Group
}

var _ domain.KarmaService = (*Service)(nil)

// NewService creates the application layer service. highlightChar and
// botNick identify lines addressed to the bot, which are not scanned for
// karma.
func NewService(store domain.PropertyStore, karmaMetrics *metrics.KarmaMetrics, clock clockwork.Clock, highlightChar, botNick string) *Service {
	return &Service{
		karmas:        karma.NewRepository(store, clock),
		metrics:       karmaMetrics,
		clock:         clock,
		highlightChar: highlightChar,
		botNick:       botNick,
		locks:         newScopeLocks(),
	}
}

// groupChange is the net effect of one message on one alias group.
type groupChange struct {
	group *domain.KarmaGroup
	total int64
	style domain.KarmaStyle
}

// HandleMessage scans a chat line for karma changes, persists them and
// returns a reply for every group changed with notify style. A change that
// fails to persist yields an error reply; the other changes still apply.
func (s *Service) HandleMessage(ctx context.Context, msg domain.Message) []domain.Reply {
	if s.addressedToBot(msg.Text) {
		s.metrics.MessagesProcessed.WithLabelValues("ignored").Inc()
		return nil
	}

	changes := karma.Aggregate(karma.Clean(karma.Parse(msg.Text)))
	if len(changes) == 0 {
		s.metrics.MessagesProcessed.WithLabelValues("no_karma").Inc()
		return nil
	}

	start := s.clock.Now()
	defer func() { s.metrics.ProcessingDuration.Observe(s.clock.Since(start).Seconds()) }()

	scope := domain.Scope(msg.Network)
	unlock := s.locks.lock(scope)
	defer unlock()

	var replies []domain.Reply
	saved := make([]domain.KarmaChange, 0, len(changes))
	for _, change := range changes {
		s.metrics.ChangesParsed.WithLabelValues(change.Style.String()).Inc()

		record := s.karmas.GetOrNew(ctx, scope, change.Term)
		s.karmas.Vote(record, change.Votes)
		if err := s.karmas.Save(ctx, scope, record); err != nil {
			slog.ErrorContext(ctx, "Failed to save karma", "scope", scope, "term", record.Term, "error", err)
			s.metrics.SaveFailures.Inc()
			replies = append(replies, domain.Reply{Text: fmt.Sprintf("failed to save karma '%s': %v", record.Term, err)})
			continue
		}

		s.metrics.VotesApplied.WithLabelValues("up").Add(float64(change.Votes.Up))
		s.metrics.VotesApplied.WithLabelValues("down").Add(float64(change.Votes.Down))
		saved = append(saved, change)
	}

	for _, gc := range s.regroup(ctx, scope, saved) {
		if gc.style != domain.StyleNotify {
			continue
		}
		replies = append(replies, domain.Reply{Text: voteReply(msg.Sender, gc)})
	}

	slog.DebugContext(ctx, "Karma message processed",
		"scope", scope, "channel", msg.Channel, "sender", msg.Sender,
		"changes", len(changes), "saved", len(saved))
	s.metrics.MessagesProcessed.WithLabelValues("karma").Inc()
	return replies
}

// regroup merges persisted changes per alias group, in order of first
// appearance.
func (s *Service) regroup(ctx context.Context, scope domain.Scope, changes []domain.KarmaChange) []*groupChange {
	var ordered []*groupChange
	byMain := make(map[string]*groupChange)

	for _, change := range changes {
		group := s.karmas.GroupOrNew(ctx, scope, change.Term)
		if gc, ok := byMain[group.Main]; ok {
			gc.total += change.Votes.Total()
			gc.style = domain.MostExplicit(gc.style, change.Style)
			continue
		}
		gc := &groupChange{group: group, total: change.Votes.Total(), style: change.Style}
		byMain[group.Main] = gc
		ordered = append(ordered, gc)
	}
	return ordered
}

func voteReply(sender string, gc *groupChange) string {
	verb := "touched"
	switch {
	case gc.total > 0:
		verb = "increased"
	case gc.total < 0:
		verb = "decreased"
	}
	return fmt.Sprintf("%s %s the karma of %s to %d", sender, verb, gc.group.DisplayName(), gc.group.Votes().Total())
}

// addressedToBot reports whether a line is a command or addressed to the bot
// by nick.
func (s *Service) addressedToBot(text string) bool {
	return strings.HasPrefix(text, s.highlightChar+"karma") ||
		strings.HasPrefix(text, s.botNick+":") ||
		strings.HasPrefix(text, s.botNick+",")
}
