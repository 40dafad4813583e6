package repository

import (
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtyassist/internal/model"
)

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepositoryFromDB(sqlx.NewDb(db, "postgres")), mock
}

var listingRowColumns = []string{
	"id", "mls_number", "title", "address", "city", "category", "price", "beds", "baths", "sqft",
	"sub_type", "property_type", "image", "features", "description", "listing_agent",
	"brokerage", "phone", "status", "days_on_market", "url", "source", "modified_at",
}

func listingRow(id string, price int64, modified time.Time) []driver.Value {
	return []driver.Value{
		id, "C123", "Downtown Condo", "88 Blue Jays Way", "Toronto", "residential", price, 2, 2, nil,
		"condo", "Condominium", "", []byte(`["Pool","Gym"]`), "", "", "", "", "Active", nil, "", "postgres", modified,
	}
}

func TestBuildListingWhere(t *testing.T) {
	where, args := buildListingWhere(model.SearchFilter{
		PropertyCategory: model.CategoryResidential,
		Location:         model.Ptr("Toronto"),
		MinPrice:         model.Ptr[int64](500_000),
		MaxPrice:         model.Ptr[int64](1_200_000),
		Beds:             model.Ptr(2),
		Baths:            model.Ptr(1),
		PropertySubType:  model.Ptr("Condominium"),
	})

	assert.Equal(t, "status = 'Active' AND category = $1 AND (address ILIKE $2 OR city ILIKE $2) AND price >= $3 AND price <= $4 AND beds >= $5 AND baths >= $6 AND sub_type = $7", where)
	assert.Equal(t, []interface{}{"residential", "%Toronto%", int64(500_000), int64(1_200_000), 2, 1, "condo"}, args)

	where, args = buildListingWhere(model.SearchFilter{})
	assert.Equal(t, "status = 'Active'", where)
	assert.Empty(t, args)
}

func TestFetchListings(t *testing.T) {
	repo, mock := newMockRepo(t)
	modified := time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM listings")).
		WithArgs("%Toronto%", int64(2_000_000), 5).
		WillReturnRows(sqlmock.NewRows(listingRowColumns).AddRow(listingRow("l-1", 1_650_000, modified)...))

	got, err := repo.FetchListings(t.Context(), model.SearchFilter{
		Location: model.Ptr("Toronto"),
		MaxPrice: model.Ptr[int64](2_000_000),
	}, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "l-1", got[0].ID)
	assert.Equal(t, int64(1_650_000), *got[0].Price)
	assert.Nil(t, got[0].Sqft)
	assert.Equal(t, model.JSONArray{"Pool", "Gym"}, got[0].Features)
	assert.True(t, modified.Equal(*got[0].ModifiedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchListings_Error(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("FROM listings").WillReturnError(errors.New("connection reset"))

	_, err := repo.FetchListings(t.Context(), model.SearchFilter{}, 10)
	assert.ErrorContains(t, err, "failed to fetch listings")
}

func TestGetListingByID(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("WHERE id = \\$1").WithArgs("l-1").
		WillReturnRows(sqlmock.NewRows(listingRowColumns).AddRow(listingRow("l-1", 900_000, time.Now())...))
	l, err := repo.GetListingByID(t.Context(), "l-1")
	require.NoError(t, err)
	assert.Equal(t, "Downtown Condo", l.Title)

	mock.ExpectQuery("WHERE id = \\$1").WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(listingRowColumns))
	_, err = repo.GetListingByID(t.Context(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEmbeddings(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("UPDATE listings SET embedding")
	prep.ExpectExec().WithArgs(sqlmock.AnyArg(), "l-1").WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(sqlmock.AnyArg(), "l-2").WillReturnResult(sqlmock.NewResult(0, 0))
	prep.ExpectExec().WithArgs(sqlmock.AnyArg(), "l-3").WillReturnError(errors.New("dimension mismatch"))
	mock.ExpectCommit()

	ok, failures := repo.UpdateEmbeddings(t.Context(), []model.EmbeddingItem{
		{ListingID: "l-1", Embedding: []float32{0.1, 0.2}},
		{ListingID: "l-2", Embedding: []float32{0.3, 0.4}},
		{ListingID: "l-3", Embedding: []float32{0.5}},
	})
	assert.Equal(t, 1, ok)
	assert.Len(t, failures, 2)
	assert.Contains(t, failures[0], "not found")
	assert.Contains(t, failures[1], "dimension mismatch")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNearestListings(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY embedding <=> $1")).
		WithArgs(sqlmock.AnyArg(), 3).
		WillReturnRows(sqlmock.NewRows(listingRowColumns).
			AddRow(listingRow("near", 1, time.Now())...).
			AddRow(listingRow("far", 2, time.Now())...))

	got, err := repo.NearestListings(t.Context(), []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "near", got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogChatAndFeedback(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO chat_logs").
		WithArgs("chat-1", "s-1", "condos in Toronto", sqlmock.AnyArg(), "rules", 2, sqlmock.AnyArg(), "llm", int64(120)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.LogChat(t.Context(), ChatLog{
		ID:             "chat-1",
		SessionID:      "s-1",
		Message:        "condos in Toronto",
		Filter:         &model.SearchFilter{Location: model.Ptr("Toronto")},
		ExtractionPath: "rules",
		ListingIDs:     []string{"a", "b"},
		Outcome:        "llm",
		ResponseTimeMs: 120,
	})
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO listing_feedback").
		WithArgs("chat-1", "a", "click").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.LogFeedback(t.Context(), "chat-1", "a", "click"))

	mock.ExpectExec("INSERT INTO listing_feedback").WillReturnError(errors.New("fk violation"))
	assert.ErrorContains(t, repo.LogFeedback(t.Context(), "chat-1", "zzz", "click"), "failed to log feedback")

	assert.NoError(t, mock.ExpectationsWereMet())
}
