package store

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/contrib/rews"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/pkg/logger"
	"github.com/surrealdb/surrealdb.go/surrealcbor"

	"github.com/raphaelgruber/timepivot/internal/models"
)

func init() {
	// Force HTTP/1.1 for WSS connections to prevent HTTP/2 ALPN negotiation.
	// WebSocket upgrade requires HTTP/1.1 semantics which fail under HTTP/2.
	gorillaws.DefaultDialer.TLSClientConfig = &tls.Config{
		NextProtos: []string{"http/1.1"},
	}
}

// SurrealConfig holds SurrealDB connection configuration.
type SurrealConfig struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
	AuthLevel string // "root" or "database"
}

// schemaSQL defines the entity and source tables. Entities are stored as
// their JSON document plus the denormalized fields the queries filter and
// rank on.
const schemaSQL = `
    DEFINE TABLE IF NOT EXISTS entity SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS eid ON entity TYPE string;
    DEFINE FIELD IF NOT EXISTS dimension ON entity TYPE string;
    DEFINE FIELD IF NOT EXISTS label ON entity TYPE string;
    DEFINE FIELD IF NOT EXISTS description ON entity TYPE string;
    DEFINE FIELD IF NOT EXISTS doc ON entity TYPE string;
    DEFINE FIELD IF NOT EXISTS modified ON entity TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS entity_eid ON entity FIELDS eid UNIQUE;
    DEFINE INDEX IF NOT EXISTS entity_dimension ON entity FIELDS dimension;
    DEFINE ANALYZER IF NOT EXISTS entity_analyzer TOKENIZERS class FILTERS lowercase, ascii;
    DEFINE INDEX IF NOT EXISTS entity_label_ft ON entity FIELDS label FULLTEXT ANALYZER entity_analyzer BM25;
    DEFINE INDEX IF NOT EXISTS entity_desc_ft ON entity FIELDS description FULLTEXT ANALYZER entity_analyzer BM25;

    DEFINE TABLE IF NOT EXISTS source SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS sid ON source TYPE string;
    DEFINE FIELD IF NOT EXISTS doc ON source TYPE string;
    DEFINE INDEX IF NOT EXISTS source_sid ON source FIELDS sid UNIQUE;
`

// Surreal is a Store backed by SurrealDB over an auto-reconnecting
// WebSocket.
type Surreal struct {
	conn   *rews.Connection[*gorillaws.Connection]
	db     *surrealdb.DB
	cfg    SurrealConfig
	logger logger.Logger
}

// OpenSurreal connects, authenticates and initializes the schema.
func OpenSurreal(ctx context.Context, cfg SurrealConfig, log *slog.Logger) (*Surreal, error) {
	var sdkLogger logger.Logger
	if log != nil {
		sdkLogger = logger.New(log.Handler())
	} else {
		sdkLogger = logger.New(slog.Default().Handler())
	}

	codec := surrealcbor.New()

	// gorillaws requires ws:// or wss:// URL without /rpc suffix (it adds
	// /rpc internally).
	baseURL := strings.TrimSuffix(cfg.URL, "/rpc")

	conn := rews.New(
		func(ctx context.Context) (*gorillaws.Connection, error) {
			ws := gorillaws.New(&connection.Config{
				BaseURL:     baseURL,
				Marshaler:   codec,
				Unmarshaler: codec,
				Logger:      sdkLogger,
			})
			return ws, nil
		},
		5*time.Second,
		codec,
		sdkLogger,
	)

	retryer := rews.NewExponentialBackoffRetryer()
	retryer.InitialDelay = 1 * time.Second
	retryer.MaxDelay = 30 * time.Second
	retryer.Multiplier = 2.0
	retryer.MaxRetries = 10
	conn.Retryer = retryer

	sdkLogger.Info("connecting to SurrealDB", "url", cfg.URL)
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("from connection: %w", err)
	}

	if cfg.AuthLevel == "database" {
		_, err = db.SignIn(ctx, surrealdb.Auth{
			Namespace: cfg.Namespace,
			Database:  cfg.Database,
			Username:  cfg.Username,
			Password:  cfg.Password,
		})
	} else {
		_, err = db.SignIn(ctx, surrealdb.Auth{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}
	if err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("signin: %w", err)
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("use: %w", err)
	}

	s := &Surreal{conn: conn, db: db, cfg: cfg, logger: sdkLogger}
	if _, err := surrealdb.Query[any](ctx, db, schemaSQL, nil); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("init schema: %w", err)
	}
	sdkLogger.Info("SurrealDB store ready")
	return s, nil
}

type entityRow struct {
	EID         string `json:"eid"`
	Dimension   string `json:"dimension"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Doc         string `json:"doc"`
}

type sourceRow struct {
	SID string `json:"sid"`
	Doc string `json:"doc"`
}

func (s *Surreal) Get(ctx context.Context, id string) (*models.Entity, error) {
	rows, err := s.queryEntities(ctx, "SELECT * FROM entity WHERE eid = $id LIMIT 1", map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: entity %s", ErrNotFound, id)
	}
	return decodeEntity(rows[0])
}

func (s *Surreal) Put(ctx context.Context, e *models.Entity) error {
	if e.ID == "" {
		return fmt.Errorf("entity ID must not be empty")
	}
	doc, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entity %s: %w", e.ID, err)
	}
	_, err = surrealdb.Query[any](ctx, s.db, `
        UPSERT type::thing("entity", $id) SET
            eid = $id,
            dimension = $dimension,
            label = $label,
            description = $description,
            doc = $doc,
            modified = time::now()
    `, map[string]any{
		"id":          e.ID,
		"dimension":   string(e.Dimension),
		"label":       e.Label("en"),
		"description": e.Description("en"),
		"doc":         string(doc),
	})
	if err != nil {
		return fmt.Errorf("put entity %s: %w", e.ID, wrapQueryError(err))
	}
	return nil
}

func (s *Surreal) List(ctx context.Context, dimension models.Dimension) ([]*models.Entity, error) {
	sql := "SELECT * FROM entity ORDER BY eid"
	vars := map[string]any{}
	if dimension != "" {
		sql = "SELECT * FROM entity WHERE dimension = $dimension ORDER BY eid"
		vars["dimension"] = string(dimension)
	}
	rows, err := s.queryEntities(ctx, sql, vars)
	if err != nil {
		return nil, err
	}
	return decodeEntities(rows)
}

func (s *Surreal) Search(ctx context.Context, dimension models.Dimension, query string, limit int) ([]*models.Entity, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 25
	}
	sql := `
        SELECT *, search::score(0) + search::score(1) AS score FROM entity
        WHERE (label @0@ $q OR description @1@ $q)
    `
	vars := map[string]any{"q": query, "limit": limit}
	if dimension != "" {
		sql += " AND dimension = $dimension"
		vars["dimension"] = string(dimension)
	}
	sql += " ORDER BY score DESC, eid ASC LIMIT $limit"

	rows, err := s.queryEntities(ctx, sql, vars)
	if err != nil {
		return nil, err
	}
	return decodeEntities(rows)
}

// Random draws from all entities and filters client-side; the predicate is
// arbitrary Go code and cannot be pushed into the query.
func (s *Surreal) Random(ctx context.Context, pred Predicate) (*models.Entity, error) {
	all, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}
	candidates := all[:0]
	for _, e := range all {
		if pred == nil || pred(e) {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoMatch
	}
	return candidates[rand.Intn(len(candidates))], nil
}

func (s *Surreal) Source(ctx context.Context, id string) (*models.Source, error) {
	res, err := surrealdb.Query[[]sourceRow](ctx, s.db, "SELECT * FROM source WHERE sid = $id LIMIT 1", map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get source %s: %w", id, wrapQueryError(err))
	}
	rows := collectRows(res)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: source %s", ErrNotFound, id)
	}
	var src models.Source
	if err := json.Unmarshal([]byte(rows[0].Doc), &src); err != nil {
		return nil, fmt.Errorf("decode source %s: %w", id, err)
	}
	return &src, nil
}

func (s *Surreal) PutSource(ctx context.Context, src *models.Source) error {
	if src.ID == "" {
		return fmt.Errorf("source ID must not be empty")
	}
	doc, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("encode source %s: %w", src.ID, err)
	}
	_, err = surrealdb.Query[any](ctx, s.db, `
        UPSERT type::thing("source", $id) SET sid = $id, doc = $doc
    `, map[string]any{"id": src.ID, "doc": string(doc)})
	if err != nil {
		return fmt.Errorf("put source %s: %w", src.ID, wrapQueryError(err))
	}
	return nil
}

func (s *Surreal) Close(ctx context.Context) error {
	s.logger.Info("closing SurrealDB connection")
	return s.conn.Close(ctx)
}

func (s *Surreal) queryEntities(ctx context.Context, sql string, vars map[string]any) ([]entityRow, error) {
	res, err := surrealdb.Query[[]entityRow](ctx, s.db, sql, vars)
	if err != nil {
		return nil, wrapQueryError(err)
	}
	return collectRows(res), nil
}

func collectRows[T any](res *[]surrealdb.QueryResult[[]T]) []T {
	if res == nil {
		return nil
	}
	var out []T
	for _, qr := range *res {
		out = append(out, qr.Result...)
	}
	return out
}

func decodeEntity(row entityRow) (*models.Entity, error) {
	var e models.Entity
	if err := json.Unmarshal([]byte(row.Doc), &e); err != nil {
		return nil, fmt.Errorf("decode entity %s: %w", row.EID, err)
	}
	return &e, nil
}

func decodeEntities(rows []entityRow) ([]*models.Entity, error) {
	out := make([]*models.Entity, 0, len(rows))
	for _, row := range rows {
		e, err := decodeEntity(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// ErrTransactionConflict indicates a SurrealDB transaction conflict.
// Callers should typically retry or skip the operation.
var ErrTransactionConflict = errors.New("transaction conflict")

// wrapQueryError inspects a SurrealDB error and wraps it with the
// appropriate sentinel error if it matches a known query error type.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}
	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) {
		if strings.Contains(queryErr.Message, "Transaction conflict") {
			return fmt.Errorf("%w: %s", ErrTransactionConflict, queryErr.Message)
		}
	}
	return err
}
