// Package storage persists the bot's user directory and the admin
// message log in SQLite.
package storage
