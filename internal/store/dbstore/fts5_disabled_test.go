//go:build !sqlite_fts5

package dbstore

const fullTextBuild = false
