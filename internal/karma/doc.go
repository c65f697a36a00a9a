// Package karma implements the karma core: the chat-line grammar, per-message
// vote aggregation, record persistence over a domain.PropertyStore, and the
// alias group resolver with its link and unlink mutations.
package karma
