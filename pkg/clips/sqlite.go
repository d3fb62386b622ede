package clips

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteRepository stores clip metadata in a local SQLite database.
// List-valued fields (aliases, tags) are kept as JSON text columns.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the clip database at
// the given path.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS clips (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		command TEXT NOT NULL UNIQUE,
		aliases TEXT NOT NULL DEFAULT '[]',
		description TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		created_on DATETIME,
		modified_by TEXT NOT NULL DEFAULT '',
		modified_on DATETIME,
		youtube_id TEXT NOT NULL DEFAULT '',
		original_start_ms INTEGER NOT NULL DEFAULT 0,
		original_end_ms INTEGER NOT NULL DEFAULT 0,
		counter INTEGER NOT NULL DEFAULT 0,
		tags TEXT NOT NULL DEFAULT '[]',
		file_name TEXT NOT NULL DEFAULT '',
		blob_name TEXT NOT NULL DEFAULT '',
		blob_url TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_clips_name ON clips(name);
	`
	_, err := db.Exec(schema)
	return err
}

// Close closes the underlying database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

const clipColumns = `id, name, command, aliases, description,
	created_by, created_on, modified_by, modified_on,
	youtube_id, original_start_ms, original_end_ms,
	counter, tags, file_name, blob_name, blob_url`

func (r *SQLiteRepository) All() ([]*Clip, error) {
	rows, err := r.db.Query(`SELECT ` + clipColumns + ` FROM clips ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query clips: %v", err)
	}
	defer rows.Close()
	return scanClips(rows)
}

func (r *SQLiteRepository) Get(id string) (*Clip, error) {
	row := r.db.QueryRow(`SELECT `+clipColumns+` FROM clips WHERE id = ?`, id)
	return scanClip(row)
}

func (r *SQLiteRepository) GetByCommand(command string) (*Clip, error) {
	row := r.db.QueryRow(`SELECT `+clipColumns+` FROM clips WHERE command = ?`, command)
	clip, err := scanClip(row)
	if err == nil || err != ErrNotFound {
		return clip, err
	}

	// No direct command match; check aliases.
	all, err := r.All()
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		for _, alias := range c.Aliases {
			if alias == command {
				return c, nil
			}
		}
	}
	return nil, ErrNotFound
}

func (r *SQLiteRepository) Create(clip *Clip) error {
	if clip.ID == "" {
		clip.ID = uuid.NewString()
	}
	if clip.CreatedOnUTC.IsZero() {
		clip.CreatedOnUTC = time.Now().UTC()
	}
	clip.ModifiedOnUTC = clip.CreatedOnUTC

	aliases, tags, err := marshalLists(clip)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`INSERT INTO clips (`+clipColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		clip.ID, clip.Name, clip.Command, aliases, clip.Description,
		clip.CreatedBy, clip.CreatedOnUTC, clip.ModifiedBy, clip.ModifiedOnUTC,
		clip.YoutubeID, clip.OriginalStartTimeMs, clip.OriginalEndTimeMs,
		clip.Counter, tags, clip.FileName, clip.BlobName, clip.BlobURL)
	if err != nil {
		return fmt.Errorf("failed to insert clip: %v", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(clip *Clip) error {
	clip.ModifiedOnUTC = time.Now().UTC()

	aliases, tags, err := marshalLists(clip)
	if err != nil {
		return err
	}

	result, err := r.db.Exec(`UPDATE clips SET
		name = ?, command = ?, aliases = ?, description = ?,
		created_by = ?, created_on = ?, modified_by = ?, modified_on = ?,
		youtube_id = ?, original_start_ms = ?, original_end_ms = ?,
		counter = ?, tags = ?, file_name = ?, blob_name = ?, blob_url = ?
		WHERE id = ?`,
		clip.Name, clip.Command, aliases, clip.Description,
		clip.CreatedBy, clip.CreatedOnUTC, clip.ModifiedBy, clip.ModifiedOnUTC,
		clip.YoutubeID, clip.OriginalStartTimeMs, clip.OriginalEndTimeMs,
		clip.Counter, tags, clip.FileName, clip.BlobName, clip.BlobURL,
		clip.ID)
	if err != nil {
		return fmt.Errorf("failed to update clip: %v", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Remove(id string) error {
	result, err := r.db.Exec(`DELETE FROM clips WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete clip: %v", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ByTags(tags []string) ([]*Clip, error) {
	all, err := r.All()
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		wanted[t] = struct{}{}
	}

	var matched []*Clip
	for _, clip := range all {
		for _, tag := range clip.Tags {
			if _, ok := wanted[tag]; ok {
				matched = append(matched, clip)
				break
			}
		}
	}
	return matched, nil
}

func (r *SQLiteRepository) AllTags() ([]string, error) {
	all, err := r.All()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var tags []string
	for _, clip := range all {
		for _, tag := range clip.Tags {
			if _, ok := seen[tag]; !ok {
				seen[tag] = struct{}{}
				tags = append(tags, tag)
			}
		}
	}
	sort.Strings(tags)
	return tags, nil
}

func (r *SQLiteRepository) MostPlayed(limit int) ([]*Clip, error) {
	query := `SELECT ` + clipColumns + ` FROM clips ORDER BY counter DESC, name`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = r.db.Query(query+` LIMIT ?`, limit)
	} else {
		rows, err = r.db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query clips: %v", err)
	}
	defer rows.Close()
	return scanClips(rows)
}

func (r *SQLiteRepository) IncrementCounter(id string) error {
	result, err := r.db.Exec(`UPDATE clips SET counter = counter + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to increment counter: %v", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalLists(clip *Clip) (aliases, tags string, err error) {
	a, err := json.Marshal(emptyIfNil(clip.Aliases))
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal aliases: %v", err)
	}
	t, err := json.Marshal(emptyIfNil(clip.Tags))
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal tags: %v", err)
	}
	return string(a), string(t), nil
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClipRow(s rowScanner) (*Clip, error) {
	var clip Clip
	var aliases, tags string
	var createdOn, modifiedOn sql.NullTime

	err := s.Scan(&clip.ID, &clip.Name, &clip.Command, &aliases, &clip.Description,
		&clip.CreatedBy, &createdOn, &clip.ModifiedBy, &modifiedOn,
		&clip.YoutubeID, &clip.OriginalStartTimeMs, &clip.OriginalEndTimeMs,
		&clip.Counter, &tags, &clip.FileName, &clip.BlobName, &clip.BlobURL)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(aliases), &clip.Aliases); err != nil {
		return nil, fmt.Errorf("failed to unmarshal aliases: %v", err)
	}
	if err := json.Unmarshal([]byte(tags), &clip.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %v", err)
	}
	if createdOn.Valid {
		clip.CreatedOnUTC = createdOn.Time
	}
	if modifiedOn.Valid {
		clip.ModifiedOnUTC = modifiedOn.Time
	}
	return &clip, nil
}

func scanClip(row *sql.Row) (*Clip, error) {
	clip, err := scanClipRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return clip, err
}

func scanClips(rows *sql.Rows) ([]*Clip, error) {
	var result []*Clip
	for rows.Next() {
		clip, err := scanClipRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, clip)
	}
	return result, rows.Err()
}
