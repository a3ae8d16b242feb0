package database

import (
	"fmt"
	"io/fs"
	"sort"

	sqlassets "github.com/mews-ugrads/mews-back-end/pkg/database/sql"
	"github.com/mews-ugrads/mews-back-end/pkg/logging"
)

// ApplySchema executes the embedded schema files in lexical order. The
// statements are idempotent, so running at every boot is safe.
func ApplySchema(db PostgresConn, logger logging.Logger) error {
	entries, err := fs.ReadDir(sqlassets.Content, "schema")
	if err != nil {
		return fmt.Errorf("failed to read embedded schema: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		b, err := fs.ReadFile(sqlassets.Content, "schema/"+name)
		if err != nil {
			return fmt.Errorf("failed to read schema file %s: %w", name, err)
		}
		if _, err := db.Exec(string(b)); err != nil {
			return fmt.Errorf("failed to apply schema file %s: %w", name, err)
		}
		logger.WithField("file", name).Info("Applied schema file")
	}
	return nil
}
