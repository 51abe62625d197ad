// Package database provides the SQLite connection behind the station's
// local store backend.
//
// The local backend lets a station run against a key-value tree on its own
// disk, for bench commissioning or sites without a cloud store. The schema
// is a single path-keyed table created by the migrations package.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
