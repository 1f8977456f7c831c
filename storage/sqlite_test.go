package storage

import (
	"context"
	"errors"
	"path/filepath"
	"shardman/configs"
	"shardman/utils"
	"testing"

	"github.com/magiconair/properties/assert"
)

func testDirectory(t *testing.T) *LiteDB {
	t.Helper()
	db, err := OpenSQLiteDirectory(context.Background(), filepath.Join(t.TempDir(), "meta", "nodes.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteDirectoryLookup(t *testing.T) {
	ctx := context.Background()
	db := testDirectory(t)
	assert.Equal(t, db.AddNode(ctx, 1, "host=n1 dbname=db", "host=n1 dbname=db user=postgres"), nil)
	assert.Equal(t, db.AddNode(ctx, 2, "host=n2 dbname=db", ""), nil)

	s, err := db.ConnString(ctx, 1, false)
	assert.Equal(t, err, nil)
	assert.Equal(t, s, "host=n1 dbname=db")
	s, err = db.ConnString(ctx, 1, true)
	assert.Equal(t, err, nil)
	assert.Equal(t, s, "host=n1 dbname=db user=postgres")
	s, err = db.ConnString(ctx, 2, false)
	assert.Equal(t, err, nil)
	assert.Equal(t, s, "host=n2 dbname=db")
}

func TestSQLiteDirectoryMissing(t *testing.T) {
	ctx := context.Background()
	db := testDirectory(t)
	assert.Equal(t, db.AddNode(ctx, 2, "host=n2", ""), nil)

	_, err := db.ConnString(ctx, 3, false)
	assert.Equal(t, errors.Is(err, utils.ErrLookup), true)
	// a NULL super connection string counts as missing.
	_, err = db.ConnString(ctx, 2, true)
	assert.Equal(t, errors.Is(err, utils.ErrLookup), true)
	assert.Equal(t, err.Error(), "node 2: failed to fetch connection string")
}

func TestSQLiteDirectoryReplace(t *testing.T) {
	ctx := context.Background()
	db := testDirectory(t)
	assert.Equal(t, db.AddNode(ctx, 1, "host=old", ""), nil)
	assert.Equal(t, db.AddNode(ctx, 1, "host=new", ""), nil)
	s, err := db.ConnString(ctx, 1, false)
	assert.Equal(t, err, nil)
	assert.Equal(t, s, "host=new")
}

func TestOpenDirectory(t *testing.T) {
	ctx := context.Background()
	cfg := configs.Default()
	cfg.Directory = configs.DirectoryConfig{Driver: configs.NoDir}
	dir, err := OpenDirectory(ctx, cfg)
	assert.Equal(t, err, nil)
	assert.Equal(t, dir == nil, true)

	cfg.Directory = configs.DirectoryConfig{Driver: configs.SQLite, DSN: filepath.Join(t.TempDir(), "nodes.db")}
	dir, err = OpenDirectory(ctx, cfg)
	assert.Equal(t, err, nil)
	_, err = dir.ConnString(ctx, 1, false)
	assert.Equal(t, errors.Is(err, utils.ErrLookup), true)
	assert.Equal(t, dir.Close(), nil)

	cfg.Directory = configs.DirectoryConfig{Driver: "etcd"}
	_, err = OpenDirectory(ctx, cfg)
	assert.Equal(t, err != nil, true)
}
