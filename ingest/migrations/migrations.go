// Package migrations embeds the versioned SQL schema of the event store.
package migrations

import "embed"

// FS holds the golang-migrate files (NNN_name.up.sql / NNN_name.down.sql).
//
//go:embed *.sql
var FS embed.FS
