// Package migrations ships the SQL schema with the binary.
package migrations

import _ "embed"

//go:embed 001_init.sql
var Init string
