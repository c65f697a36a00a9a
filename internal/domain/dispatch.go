package domain

import "context"

// Message is a chat line delivered by the dispatch layer.
type Message struct {
	Network string
	Sender  string
	Channel string
	Text    string
}

// Command is a bot command invocation. Raw is the unparsed argument text and
// Args its whitespace-separated words.
type Command struct {
	Network string
	Sender  string
	Channel string
	Name    string
	Raw     string
	Args    []string
}

// Reply is a line to send back to the channel the event came from.
type Reply struct {
	Text      string `json:"text"`
	Highlight bool   `json:"highlight"`
}

// KarmaService is the application contract the dispatch surface talks to.
type KarmaService interface {
	HandleMessage(ctx context.Context, msg Message) []Reply
	HandleCommand(ctx context.Context, cmd Command) ([]Reply, error)
}
