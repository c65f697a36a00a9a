package app

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/pscheid92/karmapulse/internal/domain"
)

const (
	CommandKarma       = "karma"
	CommandKarmaFight  = "karmafight"
	CommandKarmaLink   = "karmalink"
	CommandKarmaUnlink = "karmaunlink"
)

// redirects maps command spellings people keep trying to the real command.
var redirects = map[string]string{
	"karma-fight":  CommandKarmaFight,
	"karma-link":   CommandKarmaLink,
	"karma-unlink": CommandKarmaUnlink,
}

// HandleCommand runs one bot command. Unknown commands return
// domain.ErrUnknownCommand.
func (s *Service) HandleCommand(ctx context.Context, cmd domain.Command) ([]domain.Reply, error) {
	var reply domain.Reply
	switch cmd.Name {
	case CommandKarma:
		reply = s.karmaReport(ctx, cmd)
	case CommandKarmaFight:
		reply = s.karmaFight(ctx, cmd)
	case CommandKarmaLink:
		reply = s.karmaLink(ctx, cmd)
	case CommandKarmaUnlink:
		reply = s.karmaUnlink(ctx, cmd)
	default:
		target, ok := redirects[cmd.Name]
		if !ok {
			s.metrics.CommandsHandled.WithLabelValues("unknown", "rejected").Inc()
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownCommand, cmd.Name)
		}
		reply = s.redirect(target)
	}

	s.metrics.CommandsHandled.WithLabelValues(cmd.Name, "ok").Inc()
	return []domain.Reply{reply}, nil
}

func (s *Service) karmaReport(ctx context.Context, cmd domain.Command) domain.Reply {
	term := strings.TrimSpace(cmd.Raw)
	if term == "" {
		slog.InfoContext(ctx, "Karma command without term", "scope", cmd.Network, "channel", cmd.Channel, "sender", cmd.Sender)
		return domain.Reply{Text: "What do you want to know the karma of?", Highlight: true}
	}

	scope := domain.Scope(cmd.Network)
	key := cmd.Network + "\x00" + term
	report, _, _ := s.reports.Do(key, func() (any, error) {
		unlock := s.locks.lock(scope)
		defer unlock()
		return s.karmas.GroupOrNew(ctx, scope, term).String(), nil
	})

	slog.InfoContext(ctx, "Karma command", "scope", cmd.Network, "channel", cmd.Channel, "sender", cmd.Sender, "term", term, "reply", report)
	return domain.Reply{Text: report.(string)}
}

func (s *Service) karmaFight(ctx context.Context, cmd domain.Command) domain.Reply {
	if len(cmd.Args) == 0 {
		return domain.Reply{Text: "What should the fight be between?", Highlight: true}
	}

	scope := domain.Scope(cmd.Network)
	unlock := s.locks.lock(scope)
	defer unlock()

	var contenders []*domain.KarmaGroup
	for _, term := range cmd.Args {
		group := s.karmas.GroupOrNew(ctx, scope, term)
		if slices.ContainsFunc(contenders, func(g *domain.KarmaGroup) bool { return g.Main == group.Main }) {
			continue
		}
		contenders = append(contenders, group)
	}
	if len(contenders) == 1 {
		return domain.Reply{Text: "What kind of fight would this be?", Highlight: true}
	}

	winners := highestKarma(contenders)
	var text string
	if len(winners) == 1 {
		text = fmt.Sprintf("%s wins with %s", winners[0].DisplayName(), winners[0].Votes())
	} else {
		names := make([]string, len(winners))
		for i, w := range winners {
			names[i] = w.DisplayName()
		}
		text = fmt.Sprintf("%s all have the same karma: %d", strings.Join(names, ", "), winners[0].Votes().Total())
	}

	slog.InfoContext(ctx, "Karmafight command", "scope", cmd.Network, "channel", cmd.Channel, "sender", cmd.Sender, "reply", text)
	return domain.Reply{Text: text}
}

// highestKarma returns the groups sharing the highest total, ordered by
// ascending up-votes.
func highestKarma(groups []*domain.KarmaGroup) []*domain.KarmaGroup {
	var highest []*domain.KarmaGroup
	for _, g := range groups {
		switch {
		case len(highest) == 0 || g.Votes().Total() == highest[0].Votes().Total():
			highest = append(highest, g)
		case g.Votes().Total() > highest[0].Votes().Total():
			highest = []*domain.KarmaGroup{g}
		}
	}

	slices.SortStableFunc(highest, func(a, b *domain.KarmaGroup) int {
		return cmp.Compare(a.Votes().Up, b.Votes().Up)
	})
	return highest
}

func (s *Service) karmaLink(ctx context.Context, cmd domain.Command) domain.Reply {
	usage := domain.Reply{Text: fmt.Sprintf("Usage: %skarmalink <term> [<term> ...] into <main term>", s.highlightChar), Highlight: true}

	n := len(cmd.Args)
	if n < 3 || cmd.Args[n-2] != "into" {
		return usage
	}
	terms, main := cmd.Args[:n-2], cmd.Args[n-1]

	scope := domain.Scope(cmd.Network)
	unlock := s.locks.lock(scope)
	defer unlock()

	err := s.karmas.Link(ctx, scope, terms, main)
	switch {
	case errors.Is(err, domain.ErrInvalidLinkSyntax):
		return usage
	case errors.Is(err, domain.ErrAlreadyLinked):
		slog.InfoContext(ctx, "Karmalink rejected", "scope", cmd.Network, "sender", cmd.Sender, "terms", terms, "main", main, "reason", err)
		return domain.Reply{Text: err.Error(), Highlight: true}
	case err != nil:
		slog.ErrorContext(ctx, "Failed to link karma", "scope", cmd.Network, "terms", terms, "main", main, "error", err)
		return domain.Reply{Text: fmt.Sprintf("failed to link karma into '%s': %v", main, err)}
	}

	group := s.karmas.GroupOrNew(ctx, scope, main)
	slog.InfoContext(ctx, "Karma linked", "scope", cmd.Network, "sender", cmd.Sender, "main", group.Main, "terms", group.Terms())
	return domain.Reply{Text: fmt.Sprintf("Linked %s into %s: %s", strings.Join(terms, ", "), main, group)}
}

func (s *Service) karmaUnlink(ctx context.Context, cmd domain.Command) domain.Reply {
	term := strings.TrimSpace(cmd.Raw)
	if term == "" {
		return domain.Reply{Text: "What do you want to unlink?", Highlight: true}
	}

	scope := domain.Scope(cmd.Network)
	unlock := s.locks.lock(scope)
	defer unlock()

	group, err := s.karmas.Unlink(ctx, scope, term)
	switch {
	case errors.Is(err, domain.ErrNotLinked):
		return domain.Reply{Text: err.Error(), Highlight: true}
	case err != nil:
		slog.ErrorContext(ctx, "Failed to unlink karma", "scope", cmd.Network, "term", term, "error", err)
		return domain.Reply{Text: fmt.Sprintf("failed to unlink karma '%s': %v", term, err)}
	}

	slog.InfoContext(ctx, "Karma unlinked", "scope", cmd.Network, "sender", cmd.Sender, "terms", group.Terms())
	return domain.Reply{Text: fmt.Sprintf("Unlinked %s", strings.Join(group.Terms(), ", "))}
}

func (s *Service) redirect(target string) domain.Reply {
	if s.highlightChar == "" {
		return domain.Reply{Text: fmt.Sprintf("Use '%s' command", target), Highlight: true}
	}
	return domain.Reply{Text: fmt.Sprintf("Use '%s%s'", s.highlightChar, target), Highlight: true}
}
