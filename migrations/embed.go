// Package migrations esquema SQL versionado (goose), embebido en el binario.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
