package sink

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mergertracker/dealcrawl/internal/pipeline"
)

func TestPostgresSaveArticle(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewPostgresWithPool(mock, zap.NewNop())
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO news_articles").
		WithArgs("https://example.com/a", "Title", "Body", nil, nil,
			"bloomberg_deals", 2, 1, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := s.Save(context.Background(), &pipeline.RawArticle{
		URL:         "https://example.com/a",
		Title:       "Title",
		Body:        "Body",
		Source:      "bloomberg_deals",
		WordCount:   2,
		ReadingTime: 1,
		FetchedAt:   time.Now(),
	})
	require.NoError(t, err)
	require.Equal(t, "https://example.com/a", id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveDeal(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewPostgresWithPool(mock, zap.NewNop())
	require.NoError(t, err)

	value := 1.2e9
	deal := &pipeline.CandidateDeal{
		Fingerprint: "abcd1234abcd1234",
		Shape:       pipeline.ShapeAcquisition,
		Status:      pipeline.StatusAnnounced,
		Acquirer:    "BigCorp",
		Target:      "SmallCo",
		Value:       &value,
		Currency:    "USD",
		Industry:    "technology",
		Confidence:  0.66,
		ArticleURL:  "https://example.com/a",
		Extractor:   "pattern/v1",
		CreatedAt:   time.Now(),
	}

	mock.ExpectExec("INSERT INTO deals").
		WithArgs("abcd1234abcd1234", "acquisition", "announced",
			"BigCorp", "SmallCo", &value, "USD", "technology", nil,
			nil, nil, pgxmock.AnyArg(), pgxmock.AnyArg(),
			0.66, "https://example.com/a", "pattern/v1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := s.Save(context.Background(), deal)
	require.NoError(t, err)
	require.Equal(t, deal.Fingerprint, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveCompany(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewPostgresWithPool(mock, zap.NewNop())
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO companies").
		WithArgs("BigCorp", "BIG", nil, nil, "crawler", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	_, err = s.Save(context.Background(), &pipeline.CompanyInfo{
		Name:      "BigCorp",
		Ticker:    "BIG",
		Source:    "crawler",
		UpdatedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRequiresPool(t *testing.T) {
	t.Parallel()

	_, err := NewPostgresWithPool(nil, zap.NewNop())
	require.Error(t, err)
}

func TestPostgresSaveBatch(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewPostgresWithPool(mock, zap.NewNop())
	require.NoError(t, err)

	value := 5e8
	eb := mock.ExpectBatch()
	eb.ExpectExec("INSERT INTO news_articles").
		WithArgs("https://example.com/a", "Title", "Body", nil, nil,
			"bloomberg_deals", 2, 1, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	eb.ExpectExec("INSERT INTO deals").
		WithArgs("abcd1234abcd1234", "acquisition", "announced",
			"BigCorp", "SmallCo", &value, "USD", "technology", nil,
			nil, nil, pgxmock.AnyArg(), pgxmock.AnyArg(),
			0.55, "https://example.com/a", "pattern/v1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ids, err := s.SaveBatch(context.Background(), []pipeline.ScrapedItem{
		&pipeline.RawArticle{
			URL:         "https://example.com/a",
			Title:       "Title",
			Body:        "Body",
			Source:      "bloomberg_deals",
			WordCount:   2,
			ReadingTime: 1,
			FetchedAt:   time.Now(),
		},
		&pipeline.CandidateDeal{
			Fingerprint: "abcd1234abcd1234",
			Shape:       pipeline.ShapeAcquisition,
			Status:      pipeline.StatusAnnounced,
			Acquirer:    "BigCorp",
			Target:      "SmallCo",
			Value:       &value,
			Currency:    "USD",
			Industry:    "technology",
			Confidence:  0.55,
			ArticleURL:  "https://example.com/a",
			Extractor:   "pattern/v1",
			CreatedAt:   time.Now(),
		},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com/a", "abcd1234abcd1234"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveBatchEmpty(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewPostgresWithPool(mock, zap.NewNop())
	require.NoError(t, err)

	ids, err := s.SaveBatch(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}
