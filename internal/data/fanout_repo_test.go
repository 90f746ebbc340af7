package data_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/technosupport/surveillance-core/internal/data"
	"github.com/technosupport/surveillance-core/internal/surveillance/fanout"
)

func TestEventEmbeddingModelStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := data.EventEmbeddingModel{DB: db}
	mock.ExpectExec("INSERT INTO event_embeddings").WillReturnResult(sqlmock.NewResult(1, 1))

	err = m.StoreEventEmbedding(context.Background(), uuid.New(), []float32{0.1, 0.2})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventEnrichmentModelNoFieldsIsNoop(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := data.EventEnrichmentModel{DB: db}
	err = m.UpdateEventEnrichment(context.Background(), uuid.New(), fanout.EnrichmentFields{})
	require.NoError(t, err)
}

func TestEventEnrichmentModelPartialUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := data.EventEnrichmentModel{DB: db}
	score := 42.0
	mock.ExpectExec("UPDATE events SET anomaly_score").WillReturnResult(sqlmock.NewResult(1, 1))

	err = m.UpdateEventEnrichment(context.Background(), uuid.New(), fanout.EnrichmentFields{AnomalyScore: &score})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityBaselineModelIncrementHourCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := data.ActivityBaselineModel{DB: db}
	mock.ExpectQuery("INSERT INTO activity_baseline").
		WillReturnRows(sqlmock.NewRows([]string{"event_count"}).AddRow(3))

	count, err := m.IncrementHourCount(context.Background(), uuid.New(), time.Now())
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestEntityNamerModelDescribe(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := data.EntityNamerModel{DB: db}
	mock.ExpectQuery("SELECT name, vip, blocked FROM entities").
		WillReturnRows(sqlmock.NewRows([]string{"name", "vip", "blocked"}).AddRow("Alice", true, false))

	name, vip, blocked, err := m.Describe(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Equal(t, "Alice", name)
	require.True(t, vip)
	require.False(t, blocked)
}
