// Package database opens the SQLite file that holds the operation journal
// and applies its schema migrations.
//
// WAL mode allows journal reads while the engine writes. Queries are
// parameterised and the file is created with 0600 permissions.
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx, migrations.FS, "."); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns are nullable or carry a default,
// and every .up.sql has a matching .down.sql.
package database
