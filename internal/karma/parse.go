package karma

import (
	"strings"
	"unicode"

	"github.com/pscheid92/karmapulse/internal/domain"
)

// Parse extracts karma changes from a chat line, left to right. It never
// fails: characters that do not start a karma change are skipped one at a
// time. At every position it tries, in order:
//
//	[term]++ / [term]--   notify
//	(term)++ / (term)--   silent
//	term++ / term--       implicit; term is word characters, each optionally preceded by '-'
//
// The modifier must be followed by whitespace, one of ",.;:)" or the end of
// the line, so "foo++bar" changes nothing.
func Parse(line string) []domain.KarmaChange {
	p := &lineParser{input: []rune(line)}

	var changes []domain.KarmaChange
	for p.pos < len(p.input) {
		if change, next, ok := p.karmaChange(p.pos); ok {
			changes = append(changes, change)
			p.pos = next
			continue
		}
		p.pos++
	}
	return changes
}

type lineParser struct {
	input []rune
	pos   int
}

func (p *lineParser) karmaChange(at int) (domain.KarmaChange, int, bool) {
	if change, next, ok := p.explicit(at, '[', ']', domain.StyleNotify); ok {
		return change, next, true
	}
	if change, next, ok := p.explicit(at, '(', ')', domain.StyleSilent); ok {
		return change, next, true
	}
	return p.implicit(at)
}

// explicit matches open + term + close + modifier, where term contains
// neither delimiter.
func (p *lineParser) explicit(at int, open, closing rune, style domain.KarmaStyle) (domain.KarmaChange, int, bool) {
	if at >= len(p.input) || p.input[at] != open {
		return domain.KarmaChange{}, at, false
	}

	end := at + 1
	for end < len(p.input) && p.input[end] != open && p.input[end] != closing {
		end++
	}
	if end >= len(p.input) || p.input[end] != closing {
		return domain.KarmaChange{}, at, false
	}

	votes, next, ok := p.modifier(end + 1)
	if !ok {
		return domain.KarmaChange{}, at, false
	}

	term := string(p.input[at+1 : end])
	return domain.KarmaChange{Term: term, Votes: votes, Style: style}, next, true
}

func (p *lineParser) implicit(at int) (domain.KarmaChange, int, bool) {
	var term strings.Builder
	pos := at
	for pos < len(p.input) {
		c := p.input[pos]
		if c == '-' && pos+1 < len(p.input) && isImplicitChar(p.input[pos+1]) {
			term.WriteRune(c)
			term.WriteRune(p.input[pos+1])
			pos += 2
			continue
		}
		if isImplicitChar(c) {
			term.WriteRune(c)
			pos++
			continue
		}
		break
	}
	if pos == at {
		return domain.KarmaChange{}, at, false
	}

	votes, next, ok := p.modifier(pos)
	if !ok {
		return domain.KarmaChange{}, at, false
	}
	return domain.KarmaChange{Term: term.String(), Votes: votes, Style: domain.StyleImplicit}, next, true
}

// modifier matches "++" or "--" followed by a word boundary. The boundary is
// only peeked at, never consumed.
func (p *lineParser) modifier(at int) (domain.KarmaAmount, int, bool) {
	if at+1 >= len(p.input) {
		return domain.KarmaAmount{}, at, false
	}

	var votes domain.KarmaAmount
	switch {
	case p.input[at] == '+' && p.input[at+1] == '+':
		votes = domain.VoteUp
	case p.input[at] == '-' && p.input[at+1] == '-':
		votes = domain.VoteDown
	default:
		return domain.KarmaAmount{}, at, false
	}

	next := at + 2
	if !p.atWordBoundary(next) {
		return domain.KarmaAmount{}, at, false
	}
	return votes, next, true
}

func (p *lineParser) atWordBoundary(at int) bool {
	if at >= len(p.input) {
		return true
	}
	c := p.input[at]
	return unicode.IsSpace(c) || strings.ContainsRune(",.;:)", c)
}

func isImplicitChar(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsNumber(c) || c == '_'
}
