package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"realtyassist/internal/model"
	"realtyassist/internal/utils"
)

// ErrNotFound is returned when a listing id does not exist
var ErrNotFound = errors.New("listing not found")

const listingColumns = `
	id, mls_number, title, address, city, category, price, beds, baths, sqft,
	sub_type, property_type, image, features, description, listing_agent,
	brokerage, phone, status, days_on_market, url, source, modified_at`

// PostgresRepository handles database operations
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	// Avoid "unnamed prepared statement does not exist" behind poolers
	if !strings.Contains(dsn, "?") {
		dsn += "?prefer_simple_protocol=true"
	} else {
		dsn += "&prefer_simple_protocol=true"
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// NewPostgresRepositoryFromDB wraps an existing handle
func NewPostgresRepositoryFromDB(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Ping checks connectivity, used by the health endpoint
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// buildListingWhere pushes every set filter field down into SQL. sub_type is
// stored in canonical form, so the requested sub-type is normalised first.
func buildListingWhere(filter model.SearchFilter) (string, []interface{}) {
	whereClauses := []string{"status = 'Active'"}
	args := []interface{}{}
	argIndex := 1

	add := func(clause string, arg interface{}) {
		whereClauses = append(whereClauses, fmt.Sprintf(clause, argIndex))
		args = append(args, arg)
		argIndex++
	}

	if filter.PropertyCategory != "" {
		add("category = $%d", string(filter.PropertyCategory))
	}
	if filter.Location != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("(address ILIKE $%d OR city ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+*filter.Location+"%")
		argIndex++
	}
	if filter.MinPrice != nil {
		add("price >= $%d", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		add("price <= $%d", *filter.MaxPrice)
	}
	if filter.Beds != nil {
		add("beds >= $%d", *filter.Beds)
	}
	if filter.Baths != nil {
		add("baths >= $%d", *filter.Baths)
	}
	if filter.PropertySubType != nil {
		add("sub_type = $%d", utils.NormalizeSubType(*filter.PropertySubType))
	}

	return strings.Join(whereClauses, " AND "), args
}

// FetchListings returns active listings matching filter, most recently
// modified first.
func (r *PostgresRepository) FetchListings(ctx context.Context, filter model.SearchFilter, limit int) ([]model.Listing, error) {
	where, args := buildListingWhere(filter)
	query := fmt.Sprintf(`SELECT %s
		FROM listings
		WHERE %s
		ORDER BY modified_at DESC NULLS LAST
		LIMIT $%d`, listingColumns, where, len(args)+1)
	args = append(args, limit)

	var listings []model.Listing
	if err := r.db.SelectContext(ctx, &listings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch listings: %w", err)
	}
	return listings, nil
}

// GetListingByID retrieves a single listing by its ID
func (r *PostgresRepository) GetListingByID(ctx context.Context, id string) (*model.Listing, error) {
	var listing model.Listing
	query := fmt.Sprintf(`SELECT %s FROM listings WHERE id = $1`, listingColumns)
	if err := r.db.GetContext(ctx, &listing, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &listing, nil
}

// UpdateEmbeddings stores embedding vectors in one transaction. It returns the
// number of rows updated and a message per failed item.
func (r *PostgresRepository) UpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	success := 0
	var failures []string

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, []string{fmt.Sprintf("failed to start transaction: %v", err)}
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `UPDATE listings SET embedding = $1, updated_at = NOW() WHERE id = $2`)
	if err != nil {
		return 0, []string{fmt.Sprintf("failed to prepare statement: %v", err)}
	}
	defer stmt.Close()

	for _, item := range items {
		res, err := stmt.ExecContext(ctx, pgvector.NewVector(item.Embedding), item.ListingID)
		if err != nil {
			failures = append(failures, fmt.Sprintf("listing %s: %v", item.ListingID, err))
			continue
		}
		if n, _ := res.RowsAffected(); n == 0 {
			failures = append(failures, fmt.Sprintf("listing %s: not found", item.ListingID))
			continue
		}
		success++
	}

	if err := tx.Commit(); err != nil {
		return 0, append(failures, fmt.Sprintf("failed to commit transaction: %v", err))
	}
	return success, failures
}

// NearestListings returns active listings ordered by cosine distance to embedding
func (r *PostgresRepository) NearestListings(ctx context.Context, embedding []float32, limit int) ([]model.Listing, error) {
	query := fmt.Sprintf(`SELECT %s
		FROM listings
		WHERE status = 'Active' AND embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2`, listingColumns)

	var listings []model.Listing
	if err := r.db.SelectContext(ctx, &listings, query, pgvector.NewVector(embedding), limit); err != nil {
		return nil, fmt.Errorf("failed to run vector search: %w", err)
	}
	return listings, nil
}

// ChatLog is one chat exchange
type ChatLog struct {
	ID             string
	SessionID      string
	Message        string
	Filter         *model.SearchFilter
	ExtractionPath string
	ListingIDs     []string
	Outcome        string
	ResponseTimeMs int64
}

// LogChat records a chat exchange
func (r *PostgresRepository) LogChat(ctx context.Context, entry ChatLog) error {
	var filterJSON []byte
	if entry.Filter != nil {
		b, err := json.Marshal(entry.Filter)
		if err != nil {
			return fmt.Errorf("failed to encode filter: %w", err)
		}
		filterJSON = b
	}

	query := `
		INSERT INTO chat_logs (id, session_id, message, filter, extraction_path, result_count, listing_ids, outcome, response_time_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.SessionID, entry.Message, filterJSON, entry.ExtractionPath,
		len(entry.ListingIDs), pq.Array(entry.ListingIDs), entry.Outcome, entry.ResponseTimeMs)
	if err != nil {
		return fmt.Errorf("failed to log chat: %w", err)
	}
	return nil
}

// LogFeedback records a user action on a listing shown in a chat reply
func (r *PostgresRepository) LogFeedback(ctx context.Context, chatID, listingID, action string) error {
	query := `INSERT INTO listing_feedback (chat_id, listing_id, action) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, chatID, listingID, action); err != nil {
		return fmt.Errorf("failed to log feedback: %w", err)
	}
	return nil
}
