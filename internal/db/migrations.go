package db

import "embed"

// Migrations holds the golang-migrate command files for the mongodb driver.
//
//go:embed migrations/*.json
var Migrations embed.FS
