// Package registry maps live connections to server-generated player
// identities.
//
// Identities are nine hex characters taken from a random UUID. They are
// unique among live connections; Register redraws on the rare collision and
// never fails or blocks on I/O. An identity is released by Unregister when
// its connection closes and may be issued again later.
//
// The registry does not own connections. It stores the Conn handle only so
// that broadcasts can reach a player by identity.
package registry
