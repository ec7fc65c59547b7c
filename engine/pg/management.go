package pg

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed ddl
var resources embed.FS

// Tables of the database schema, suited to prepare integration tests.
var Tables = []string{
	"activity",
	"event",
	"process",
	"process_instance",
	"task",
	"token",
}

// migrateDatabase creates the database schema.
// Statements are idempotent, so that an engine can be created repeatedly.
func migrateDatabase(ctx *pgContext) error {
	ddl, err := resources.ReadDir("ddl")
	if err != nil {
		return fmt.Errorf("failed to list resources under ddl: %v", err)
	}

	for _, entry := range ddl {
		if entry.IsDir() {
			continue
		}

		name := "ddl/" + entry.Name()
		b, err := resources.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read resource %s: %v", name, err)
		}

		for _, statement := range strings.Split(string(b), ";") {
			if strings.TrimSpace(statement) == "" {
				continue
			}
			if _, err := ctx.tx.Exec(ctx.txCtx, statement); err != nil {
				return fmt.Errorf("failed to execute %s: %v", name, err)
			}
		}
	}

	return nil
}
