// Package repositories implements SQLite persistence for the import ledger.
//
// [MediaRepository] records every file the importer writes so the CLI and the stats endpoint can
// report on imports without walking storage. It implements models.Repository[*models.ImportedMedia].
package repositories
