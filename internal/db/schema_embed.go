package db

import _ "embed"

// Schema holds the order-side bootstrap SQL for integration tests and local
// development.
//
//go:embed schema.sql
var Schema string
