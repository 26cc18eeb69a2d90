package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "banking-router/internal/common/errors"
	"banking-router/internal/common/logger"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, logger.NewTestLogger(t)), mock
}

func TestCountRecords(t *testing.T) {
	tests := []struct {
		name         string
		organization string
		category     string
		count        int
	}{
		{"both dimensions", "meridian bank", "saving account", 4},
		{"organization only", "meridian bank", "", 12},
		{"category only", "", "credit card", 7},
		{"no matches", "unknown bank", "loan", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newTestStore(t)

			mock.ExpectQuery("SELECT COUNT\\(\\*\\)").
				WithArgs(tt.organization, tt.category).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(tt.count))

			got, err := s.CountRecords(context.Background(), tt.organization, tt.category)
			require.NoError(t, err)
			assert.Equal(t, tt.count, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCountRecordsFailureClassified(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\)").
		WithArgs("meridian bank", "").
		WillReturnError(errors.New("connection reset"))

	_, err := s.CountRecords(context.Background(), "meridian bank", "")
	require.Error(t, err)

	se, ok := stderrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeQueryExecutionFailed, se.Code)
	assert.True(t, se.Retryable)
}

func TestListRecords(t *testing.T) {
	s, mock := newTestStore(t)

	rows := sqlmock.NewRows([]string{"name", "organization", "category", "attributes", "summary"}).
		AddRow("Everyday Saver", "meridian bank", "saving account", `{"rate":"3.2%"}`, "Daily-access savings.").
		AddRow("Premium Saver", "meridian bank", "saving account", nil, "Higher rate, notice period.")

	mock.ExpectQuery("SELECT name, organization, category").
		WithArgs("meridian bank", "saving account", 10).
		WillReturnRows(rows)

	records, err := s.ListRecords(context.Background(), "meridian bank", "saving account", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Everyday Saver", records[0].Name)
	assert.Equal(t, "3.2%", records[0].Attributes["rate"])
	assert.Nil(t, records[1].Attributes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRecordsNoLimit(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery("SELECT name, organization, category").
		WithArgs("", "credit card").
		WillReturnRows(sqlmock.NewRows([]string{"name", "organization", "category", "attributes", "summary"}))

	records, err := s.ListRecords(context.Background(), "", "credit card", 0)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByName(t *testing.T) {
	s, mock := newTestStore(t)

	rows := sqlmock.NewRows([]string{"name", "organization", "category", "attributes", "summary"}).
		AddRow("Everyday Saver", "meridian bank", "saving account", `{"rate":"3.2%","fee":"none"}`, "Daily-access savings.")

	mock.ExpectQuery("SELECT name, organization, category").
		WithArgs("everyday saver").
		WillReturnRows(rows)

	rec, err := s.FindByName(context.Background(), "everyday saver")
	require.NoError(t, err)
	assert.Equal(t, "Everyday Saver", rec.Name)
	assert.Equal(t, "none", rec.Attributes["fee"])
}

func TestFindByNameMissing(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery("SELECT name, organization, category").
		WithArgs("ghost product").
		WillReturnRows(sqlmock.NewRows([]string{"name", "organization", "category", "attributes", "summary"}))

	_, err := s.FindByName(context.Background(), "ghost product")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDistinctVocabulary(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery("SELECT DISTINCT organization").
		WillReturnRows(sqlmock.NewRows([]string{"organization"}).
			AddRow("harborview credit union").
			AddRow("meridian bank"))
	mock.ExpectQuery("SELECT DISTINCT category").
		WillReturnRows(sqlmock.NewRows([]string{"category"}).
			AddRow("credit card").
			AddRow("saving account"))

	orgs, err := s.DistinctOrganizations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"harborview credit union", "meridian bank"}, orgs)

	cats, err := s.DistinctCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"credit card", "saving account"}, cats)
	assert.NoError(t, mock.ExpectationsWereMet())
}
