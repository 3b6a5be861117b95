// Package db embeds the storefront schema applied at startup.
package db

import _ "embed"

// Schema is the full idempotent DDL for users, products, coupons, and orders.
//
//go:embed migrations/001_schema.sql
var Schema string
