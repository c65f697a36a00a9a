// Package app provides the application service layer.
//
// Orchestrates the karma use cases: the chat-line vote pipeline and the karma, karmafight,
// karmalink and karmaunlink commands. Sits between the dispatch surface and the karma core.
// All work for one network is serialised, so a line or command is fully handled before the
// next one for the same network starts.
package app
