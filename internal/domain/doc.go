// Package domain defines the core domain types and interfaces.
//
// karma.go holds the value types (votes, styles, aliases) and the record/group model,
// store.go the scoped property store contract, dispatch.go the chat event and reply
// types exchanged with the dispatch layer. No storage or transport code lives here.
package domain
