//go:build sqlite_fts5

package dbstore

// The mattn driver compiles FTS5 in under this tag.
const fullTextBuild = true
