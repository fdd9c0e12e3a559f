package database

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"place-discovery/internal/common/config"
)

func TestRedisClient_Ping(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()))

	mr.Close()
	assert.Error(t, client.Ping(context.Background()))
}

func TestNewRedis_RequiresAddress(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)
}

func TestPostgresClient_PingAndQuery(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	client := &PostgresClient{DB: db}

	mock.ExpectPing()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectClose()

	require.NoError(t, client.Ping(context.Background()))
	rows, err := client.QueryContext(context.Background(), "SELECT 1")
	require.NoError(t, err)
	rows.Close()
	require.NoError(t, client.Close())

	assert.NoError(t, mock.ExpectationsWereMet())
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestElasticsearchClient_Ping(t *testing.T) {
	status := http.StatusOK
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		h := http.Header{}
		h.Set("X-Elastic-Product", "Elasticsearch")
		return &http.Response{
			StatusCode: status,
			Header:     h,
			Body:       io.NopCloser(strings.NewReader(`{}`)),
		}, nil
	})

	client, err := NewElasticsearch(config.ElasticsearchConfig{URL: "http://es.test:9200"}, transport)
	require.NoError(t, err)

	assert.NoError(t, client.Ping(context.Background()))

	status = http.StatusServiceUnavailable
	assert.Error(t, client.Ping(context.Background()))
}
