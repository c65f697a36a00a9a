package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// KarmaPropertyPrefix prefixes every canonical term to form its storage key.
const KarmaPropertyPrefix = "dazeus_karma."

// CanonicalTerm returns the storage form of a term (ASCII lowercase).
func CanonicalTerm(term string) string {
	var b strings.Builder
	b.Grow(len(term))
	for i := 0; i < len(term); i++ {
		c := term[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}

// KarmaKey returns the property key a term's record is stored under.
func KarmaKey(term string) string {
	return KarmaPropertyPrefix + CanonicalTerm(term)
}

// --- Votes ---

type KarmaAmount struct {
	Up   int64 `json:"up"`
	Down int64 `json:"down"`
}

var (
	VoteUp   = KarmaAmount{Up: 1}
	VoteDown = KarmaAmount{Down: 1}
)

func (a KarmaAmount) Total() int64 {
	return a.Up - a.Down
}

func (a KarmaAmount) Add(other KarmaAmount) KarmaAmount {
	return KarmaAmount{Up: a.Up + other.Up, Down: a.Down + other.Down}
}

// String renders "<total> (+up, -down)".
func (a KarmaAmount) String() string {
	return fmt.Sprintf("%d (+%d, -%d)", a.Total(), a.Up, a.Down)
}

// --- Style ---

// KarmaStyle expresses how explicitly a user asked for feedback on a change.
type KarmaStyle int

const (
	StyleImplicit KarmaStyle = iota + 1
	StyleSilent
	StyleNotify
)

// explicitness gives the total order Implicit < Silent < Notify independent of
// the constant values above.
func (s KarmaStyle) explicitness() int {
	switch s {
	case StyleNotify:
		return 3
	case StyleSilent:
		return 2
	case StyleImplicit:
		return 1
	default:
		return 0
	}
}

// MostExplicit returns the more explicit of two styles.
func MostExplicit(a, b KarmaStyle) KarmaStyle {
	if b.explicitness() > a.explicitness() {
		return b
	}
	return a
}

func (s KarmaStyle) String() string {
	switch s {
	case StyleImplicit:
		return "implicit"
	case StyleSilent:
		return "silent"
	case StyleNotify:
		return "notify"
	default:
		return "unknown"
	}
}

// KarmaChange is one vote extracted from a chat line. Term holds the text as
// the user typed it.
type KarmaChange struct {
	Term  string
	Votes KarmaAmount
	Style KarmaStyle
}

// --- Aliases ---

type AliasKind int

const (
	// AliasTo marks a satellite pointing at its group's main term.
	AliasTo AliasKind = iota + 1
	// AliasFromOther marks the main term owning the satellite list.
	AliasFromOther
)

// Aliases is the alias state of a record. A nil *Aliases means the record is
// standalone.
type Aliases struct {
	Kind       AliasKind
	Main       string
	Satellites []string
}

func AliasesTo(main string) *Aliases {
	return &Aliases{Kind: AliasTo, Main: main}
}

func AliasesFromOther(satellites []string) *Aliases {
	return &Aliases{Kind: AliasFromOther, Satellites: satellites}
}

func (a Aliases) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AliasTo:
		return json.Marshal(map[string]string{"To": a.Main})
	case AliasFromOther:
		satellites := a.Satellites
		if satellites == nil {
			satellites = []string{}
		}
		return json.Marshal(map[string][]string{"FromOther": satellites})
	default:
		return nil, fmt.Errorf("unknown alias kind %d", a.Kind)
	}
}

func (a *Aliases) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode aliases: %w", err)
	}
	if len(raw) != 1 {
		return errors.New("aliases must carry exactly one of To or FromOther")
	}

	if v, ok := raw["To"]; ok {
		var main string
		if err := json.Unmarshal(v, &main); err != nil {
			return fmt.Errorf("failed to decode alias target: %w", err)
		}
		*a = Aliases{Kind: AliasTo, Main: main}
		return nil
	}
	if v, ok := raw["FromOther"]; ok {
		satellites := []string{}
		if err := json.Unmarshal(v, &satellites); err != nil {
			return fmt.Errorf("failed to decode alias satellites: %w", err)
		}
		*a = Aliases{Kind: AliasFromOther, Satellites: satellites}
		return nil
	}
	return errors.New("aliases must carry exactly one of To or FromOther")
}

// --- Record ---

// Karma is the persisted unit, one per canonical term.
type Karma struct {
	Term         string      `json:"term"`
	OriginalTerm string      `json:"original_term"`
	Votes        KarmaAmount `json:"votes"`
	FirstVote    time.Time   `json:"first_vote"`
	LastVote     time.Time   `json:"last_vote"`
	Aliases      *Aliases    `json:"aliases"`
}

// NewKarma creates a record with no votes for term.
func NewKarma(term string, now time.Time) *Karma {
	return &Karma{
		Term:         CanonicalTerm(term),
		OriginalTerm: term,
		FirstVote:    now,
		LastVote:     now,
	}
}

// Vote adds delta to the record and stamps the vote time.
func (k *Karma) Vote(delta KarmaAmount, now time.Time) {
	k.Votes = k.Votes.Add(delta)
	k.LastVote = now
}

func (k *Karma) String() string {
	if k.Votes.Total() == 0 {
		return fmt.Sprintf("%s has neutral karma (+%d, -%d)", k.OriginalTerm, k.Votes.Up, k.Votes.Down)
	}
	return fmt.Sprintf("%s has a karma of %s", k.OriginalTerm, k.Votes)
}

// --- Group ---

// KarmaGroup is the alias closure of a term. It is rebuilt from storage on
// every use and never persisted.
type KarmaGroup struct {
	Main   string
	Karmas map[string]*Karma
}

// NewKarmaGroup returns a singleton group for a fresh record.
func NewKarmaGroup(k *Karma) *KarmaGroup {
	return &KarmaGroup{
		Main:   k.Term,
		Karmas: map[string]*Karma{k.Term: k},
	}
}

func (g *KarmaGroup) Votes() KarmaAmount {
	var total KarmaAmount
	for _, k := range g.Karmas {
		total = total.Add(k.Votes)
	}
	return total
}

func (g *KarmaGroup) IsLinked() bool {
	return len(g.Karmas) > 1
}

func (g *KarmaGroup) Contains(term string) bool {
	_, ok := g.Karmas[CanonicalTerm(term)]
	return ok
}

// Terms returns the canonical member terms in sorted order.
func (g *KarmaGroup) Terms() []string {
	terms := make([]string, 0, len(g.Karmas))
	for term := range g.Karmas {
		terms = append(terms, term)
	}
	slices.Sort(terms)
	return terms
}

// DisplayName is the main term as it was last phrased.
func (g *KarmaGroup) DisplayName() string {
	if k, ok := g.Karmas[g.Main]; ok && k.OriginalTerm != "" {
		return k.OriginalTerm
	}
	return g.Main
}

func (g *KarmaGroup) String() string {
	name := g.DisplayName()
	if g.IsLinked() {
		name += " (+)"
	}
	votes := g.Votes()
	if votes.Total() == 0 {
		return fmt.Sprintf("%s has neutral karma (+%d, -%d)", name, votes.Up, votes.Down)
	}
	return fmt.Sprintf("%s has a karma of %s", name, votes)
}
