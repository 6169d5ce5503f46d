// Package migrations embeds the SQL schema of every service.
package migrations

import "embed"

//go:embed compliance/*.sql
var Compliance embed.FS

//go:embed competition/*.sql
var Competition embed.FS

//go:embed billing/*.sql
var Billing embed.FS
