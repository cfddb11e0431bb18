// Package state keeps per-user dialogue sessions for Telegram bots and evicts
// the ones users abandon. It is domain-agnostic: the dialogue payload is a
// type parameter, so any bot can store its own step type in a Session.
package state
