package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/codeimpact/internal/errors"
	"github.com/rohankatakam/codeimpact/internal/models"
)

// Supported store types and the database/sql driver each one uses
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypePgx      = "pgx"
)

var drivers = map[string]string{
	TypeSQLite:   "sqlite3",
	TypePostgres: "postgres",
	TypePgx:      "pgx",
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		root TEXT NOT NULL,
		entity_count INTEGER NOT NULL,
		relationship_count INTEGER NOT NULL,
		unresolved_count INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS snapshot_entities (
		snapshot_id TEXT NOT NULL REFERENCES snapshots(id),
		ordinal INTEGER NOT NULL,
		id TEXT NOT NULL,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		qualified_name TEXT NOT NULL,
		file_path TEXT NOT NULL,
		language TEXT NOT NULL,
		start_line INTEGER NOT NULL,
		end_line INTEGER NOT NULL,
		body TEXT NOT NULL,
		doc_comment TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		imported_names TEXT NOT NULL,
		invoked_names TEXT NOT NULL,
		annotations TEXT NOT NULL,
		attributes TEXT NOT NULL,
		PRIMARY KEY (snapshot_id, ordinal)
	)`,
	`CREATE TABLE IF NOT EXISTS snapshot_relationships (
		snapshot_id TEXT NOT NULL REFERENCES snapshots(id),
		ordinal INTEGER NOT NULL,
		source_id TEXT NOT NULL,
		target_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		line INTEGER NOT NULL,
		resolved BOOLEAN NOT NULL,
		PRIMARY KEY (snapshot_id, ordinal)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_root ON snapshots(root, created_at)`,
}

// entityRow is the flat storage form of models.CodeEntity
type entityRow struct {
	SnapshotID    string `db:"snapshot_id"`
	Ordinal       int    `db:"ordinal"`
	ID            string `db:"id"`
	Kind          string `db:"kind"`
	Name          string `db:"name"`
	QualifiedName string `db:"qualified_name"`
	FilePath      string `db:"file_path"`
	Language      string `db:"language"`
	StartLine     int    `db:"start_line"`
	EndLine       int    `db:"end_line"`
	Body          string `db:"body"`
	DocComment    string `db:"doc_comment"`
	OwnerID       string `db:"owner_id"`
	ImportedNames string `db:"imported_names"`
	InvokedNames  string `db:"invoked_names"`
	Annotations   string `db:"annotations"`
	Attributes    string `db:"attributes"`
}

type relationshipRow struct {
	SnapshotID string `db:"snapshot_id"`
	Ordinal    int    `db:"ordinal"`
	SourceID   string `db:"source_id"`
	TargetID   string `db:"target_id"`
	Kind       string `db:"kind"`
	Line       int    `db:"line"`
	Resolved   bool   `db:"resolved"`
}

// SQLStore implements SnapshotStore on SQLite or PostgreSQL
type SQLStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
	now    func() time.Time
}

// NewSQLStore connects to the database of the given type and initializes the schema
func NewSQLStore(storeType, dsn string, logger *logrus.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
		logger.SetLevel(logrus.WarnLevel)
	}
	driver, ok := drivers[storeType]
	if !ok {
		return nil, errors.ConfigErrorf("unsupported storage type %q", storeType)
	}

	if storeType == TypeSQLite {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, errors.FileSystemError(err, "failed to create database directory")
		}
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, errors.StorageError(err, "failed to connect to snapshot store").WithContext("type", storeType)
	}

	if storeType == TypeSQLite {
		db.SetMaxOpenConns(1)
		db.Exec("PRAGMA foreign_keys = ON")
		db.Exec("PRAGMA journal_mode = WAL")
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	store := &SQLStore{db: db, logger: logger, now: time.Now}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLStore) initSchema() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.StorageError(err, "failed to initialize schema")
		}
	}
	return nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// SaveSnapshot stores entities and relationships under a new snapshot id
func (s *SQLStore) SaveSnapshot(ctx context.Context, root string, entities []models.CodeEntity, relationships []models.Relationship) (*models.SnapshotMetadata, error) {
	meta := &models.SnapshotMetadata{
		ID:                uuid.New().String(),
		Root:              root,
		EntityCount:       len(entities),
		RelationshipCount: len(relationships),
		CreatedAt:         s.now().UTC(),
	}
	for _, r := range relationships {
		if !r.Resolved {
			meta.UnresolvedCount++
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.StorageError(err, "failed to begin snapshot transaction")
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO snapshots (id, root, entity_count, relationship_count, unresolved_count, created_at)
		VALUES (:id, :root, :entity_count, :relationship_count, :unresolved_count, :created_at)
	`, meta)
	if err != nil {
		return nil, errors.StorageError(err, "failed to save snapshot")
	}

	entityStmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO snapshot_entities
		(snapshot_id, ordinal, id, kind, name, qualified_name, file_path, language,
		 start_line, end_line, body, doc_comment, owner_id,
		 imported_names, invoked_names, annotations, attributes)
		VALUES (:snapshot_id, :ordinal, :id, :kind, :name, :qualified_name, :file_path, :language,
		 :start_line, :end_line, :body, :doc_comment, :owner_id,
		 :imported_names, :invoked_names, :annotations, :attributes)
	`)
	if err != nil {
		return nil, errors.StorageError(err, "failed to prepare entity insert")
	}
	defer entityStmt.Close()

	for i, entity := range entities {
		row, err := toEntityRow(meta.ID, i, entity)
		if err != nil {
			return nil, err
		}
		if _, err := entityStmt.ExecContext(ctx, row); err != nil {
			return nil, errors.StorageError(err, "failed to save entity").WithContext("entity_id", entity.ID)
		}
	}

	relStmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO snapshot_relationships
		(snapshot_id, ordinal, source_id, target_id, kind, line, resolved)
		VALUES (:snapshot_id, :ordinal, :source_id, :target_id, :kind, :line, :resolved)
	`)
	if err != nil {
		return nil, errors.StorageError(err, "failed to prepare relationship insert")
	}
	defer relStmt.Close()

	for i, r := range relationships {
		row := relationshipRow{
			SnapshotID: meta.ID,
			Ordinal:    i,
			SourceID:   r.SourceID,
			TargetID:   r.TargetID,
			Kind:       string(r.Kind),
			Line:       r.Line,
			Resolved:   r.Resolved,
		}
		if _, err := relStmt.ExecContext(ctx, row); err != nil {
			return nil, errors.StorageError(err, "failed to save relationship")
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.StorageError(err, "failed to commit snapshot")
	}

	s.logger.WithFields(logrus.Fields{
		"snapshot_id":   meta.ID,
		"root":          root,
		"entities":      meta.EntityCount,
		"relationships": meta.RelationshipCount,
	}).Info("Snapshot saved")
	return meta, nil
}

// LoadSnapshot reads a snapshot by id
func (s *SQLStore) LoadSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	var meta models.SnapshotMetadata
	err := s.db.GetContext(ctx, &meta, s.db.Rebind(`SELECT * FROM snapshots WHERE id = ?`), id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.StorageError(err, "failed to load snapshot").WithContext("snapshot_id", id)
	}
	return s.loadContents(ctx, meta)
}

// LatestSnapshot returns the most recent snapshot of root
func (s *SQLStore) LatestSnapshot(ctx context.Context, root string) (*Snapshot, error) {
	var meta models.SnapshotMetadata
	query := s.db.Rebind(`SELECT * FROM snapshots WHERE root = ? ORDER BY created_at DESC, id LIMIT 1`)
	if err := s.db.GetContext(ctx, &meta, query, root); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.StorageError(err, "failed to load latest snapshot").WithContext("root", root)
	}
	return s.loadContents(ctx, meta)
}

// ListSnapshots returns snapshot metadata, newest first. limit <= 0 means all.
func (s *SQLStore) ListSnapshots(ctx context.Context, limit int) ([]models.SnapshotMetadata, error) {
	query := `SELECT * FROM snapshots ORDER BY created_at DESC, id`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	snapshots := []models.SnapshotMetadata{}
	if err := s.db.SelectContext(ctx, &snapshots, s.db.Rebind(query), args...); err != nil {
		return nil, errors.StorageError(err, "failed to list snapshots")
	}
	return snapshots, nil
}

func (s *SQLStore) loadContents(ctx context.Context, meta models.SnapshotMetadata) (*Snapshot, error) {
	var entityRows []entityRow
	err := s.db.SelectContext(ctx, &entityRows,
		s.db.Rebind(`SELECT * FROM snapshot_entities WHERE snapshot_id = ? ORDER BY ordinal`), meta.ID)
	if err != nil {
		return nil, errors.StorageError(err, "failed to load entities").WithContext("snapshot_id", meta.ID)
	}

	var relRows []relationshipRow
	err = s.db.SelectContext(ctx, &relRows,
		s.db.Rebind(`SELECT * FROM snapshot_relationships WHERE snapshot_id = ? ORDER BY ordinal`), meta.ID)
	if err != nil {
		return nil, errors.StorageError(err, "failed to load relationships").WithContext("snapshot_id", meta.ID)
	}

	snapshot := &Snapshot{
		Metadata:      meta,
		Entities:      make([]models.CodeEntity, 0, len(entityRows)),
		Relationships: make([]models.Relationship, 0, len(relRows)),
	}
	for _, row := range entityRows {
		entity, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		snapshot.Entities = append(snapshot.Entities, entity)
	}
	for _, row := range relRows {
		snapshot.Relationships = append(snapshot.Relationships, models.Relationship{
			SourceID: row.SourceID,
			TargetID: row.TargetID,
			Kind:     models.RelationshipKind(row.Kind),
			Line:     row.Line,
			Resolved: row.Resolved,
		})
	}
	return snapshot, nil
}

func toEntityRow(snapshotID string, ordinal int, e models.CodeEntity) (entityRow, error) {
	row := entityRow{
		SnapshotID:    snapshotID,
		Ordinal:       ordinal,
		ID:            e.ID,
		Kind:          string(e.Kind),
		Name:          e.Name,
		QualifiedName: e.QualifiedName,
		FilePath:      e.FilePath,
		Language:      e.Language,
		StartLine:     e.StartLine,
		EndLine:       e.EndLine,
		Body:          e.Body,
		DocComment:    e.DocComment,
		OwnerID:       e.OwnerID,
	}

	fields := []struct {
		dst *string
		v   interface{}
	}{
		{&row.ImportedNames, e.ImportedNames},
		{&row.InvokedNames, e.InvokedNames},
		{&row.Annotations, e.Annotations},
		{&row.Attributes, e.Attributes},
	}
	for _, f := range fields {
		data, err := json.Marshal(f.v)
		if err != nil {
			return row, errors.Wrap(err, errors.ErrorTypeInternal, errors.SeverityHigh, "failed to encode entity").
				WithContext("entity_id", e.ID)
		}
		*f.dst = string(data)
	}
	return row, nil
}

func (r entityRow) toEntity() (models.CodeEntity, error) {
	e := models.CodeEntity{
		ID:            r.ID,
		Kind:          models.EntityKind(r.Kind),
		Name:          r.Name,
		QualifiedName: r.QualifiedName,
		FilePath:      r.FilePath,
		Language:      r.Language,
		StartLine:     r.StartLine,
		EndLine:       r.EndLine,
		Body:          r.Body,
		DocComment:    r.DocComment,
		OwnerID:       r.OwnerID,
	}

	fields := []struct {
		src string
		dst interface{}
	}{
		{r.ImportedNames, &e.ImportedNames},
		{r.InvokedNames, &e.InvokedNames},
		{r.Annotations, &e.Annotations},
		{r.Attributes, &e.Attributes},
	}
	for _, f := range fields {
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return e, errors.StorageError(err, "corrupt entity row").WithContext("entity_id", r.ID)
		}
	}
	return e, nil
}
