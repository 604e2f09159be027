package zotero

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/matsen/paperfeed/internal/importer"
	"github.com/matsen/paperfeed/internal/reference"
)

// LocalSource reads a zotero.sqlite file directly. The file is opened
// read-only and immutable so a running Zotero client is not disturbed.
type LocalSource struct {
	Path string
	log  zerolog.Logger
}

// NewLocalSource creates a reader for the database at path.
func NewLocalSource(path string, log zerolog.Logger) *LocalSource {
	return &LocalSource{Path: path, log: log}
}

// collectionPathsQuery resolves each item's collections to root paths.
const collectionPathsQuery = `
	WITH RECURSIVE paths(collectionID, path) AS (
		SELECT collectionID, collectionName
		FROM collections
		WHERE parentCollectionID IS NULL
		UNION ALL
		SELECT c.collectionID, p.path || '/' || c.collectionName
		FROM collections c
		JOIN paths p ON c.parentCollectionID = p.collectionID
	)
	SELECT ci.itemID, p.path
	FROM collectionItems ci
	JOIN paths p ON p.collectionID = ci.collectionID
	ORDER BY ci.itemID, p.path`

// itemsQuery selects non-deleted papers with their title and abstract.
const itemsQuery = `
	SELECT i.itemID, i.key, i.dateAdded,
		COALESCE((SELECT v.value FROM itemData d
			JOIN fields f ON f.fieldID = d.fieldID
			JOIN itemDataValues v ON v.valueID = d.valueID
			WHERE d.itemID = i.itemID AND f.fieldName = 'title'), ''),
		COALESCE((SELECT v.value FROM itemData d
			JOIN fields f ON f.fieldID = d.fieldID
			JOIN itemDataValues v ON v.valueID = d.valueID
			WHERE d.itemID = i.itemID AND f.fieldName = 'abstractNote'), '')
	FROM items i
	JOIN itemTypes t ON t.itemTypeID = i.itemTypeID
	WHERE t.typeName IN (%s)
		AND i.itemID NOT IN (SELECT itemID FROM deletedItems)
	ORDER BY i.itemID`

// Fetch reads every paper in the local library.
func (s *LocalSource) Fetch(ctx context.Context) ([]reference.CorpusItem, error) {
	if _, err := os.Stat(s.Path); err != nil {
		return nil, fmt.Errorf("zotero database: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+s.Path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("opening zotero database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	paths, err := queryCollectionPaths(ctx, db)
	if err != nil {
		return nil, err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ItemTypes)), ",")
	args := make([]any, len(ItemTypes))
	for i, t := range ItemTypes {
		args[i] = t
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(itemsQuery, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []reference.CorpusItem
	for rows.Next() {
		var (
			itemID                  int64
			key, added, title, abst string
		)
		if err := rows.Scan(&itemID, &key, &added, &title, &abst); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		t, err := importer.ParseTime(added)
		if err != nil {
			s.log.Debug().Str("item", key).Err(err).Msg("skipping item with bad dateAdded")
			continue
		}
		items = append(items, reference.CorpusItem{
			ID:          key,
			Title:       strings.TrimSpace(title),
			Abstract:    strings.TrimSpace(abst),
			FolderPaths: paths[itemID],
			DateAdded:   t,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading items: %w", err)
	}

	s.log.Debug().Int("items", len(items)).Str("path", s.Path).Msg("read local zotero library")
	return items, nil
}

func queryCollectionPaths(ctx context.Context, db *sql.DB) (map[int64][]string, error) {
	rows, err := db.QueryContext(ctx, collectionPathsQuery)
	if err != nil {
		return nil, fmt.Errorf("querying collections: %w", err)
	}
	defer rows.Close()

	paths := make(map[int64][]string)
	for rows.Next() {
		var id int64
		var p string
		if err := rows.Scan(&id, &p); err != nil {
			return nil, fmt.Errorf("scanning collection path: %w", err)
		}
		paths[id] = append(paths[id], p)
	}
	return paths, rows.Err()
}
