package member

import "embed"

// Migrations holds the schema for the member and team tables under "migrations/".
//
//go:embed migrations/*.sql
var Migrations embed.FS
