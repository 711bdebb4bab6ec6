//go:build integration

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package personstore_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/suparena/personstore"
	"github.com/suparena/personstore/config"
	"github.com/suparena/personstore/datastore/ddb"
	"github.com/suparena/personstore/domain"
	errs "github.com/suparena/personstore/errors"
	"github.com/suparena/personstore/usecase"
)

func TestMain(m *testing.M) {
	// Local overrides such as PERSONSTORE_TEST_DYNAMODB_ENDPOINT may live in .env.
	_ = godotenv.Load()
	os.Exit(m.Run())
}

func setupPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("people"),
		tcpostgres.WithUsername("people"),
		tcpostgres.WithPassword("people"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return url
}

// exercise runs the same lifecycle against any backend.
func exercise(t *testing.T, app *personstore.App) {
	ctx := context.Background()
	people := app.People

	p, err := people.Register(ctx, "Niels Henrik Abel", domain.MustDate("1802-08-05"), nil, []byte("notes"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.Revision)

	found, err := people.Find(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, found.Equal(*p))

	dead, err := people.RecordDeath(ctx, p.ID, 0, domain.MustDate("1829-04-06"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), dead.Revision)

	_, err = people.RecordDeath(ctx, p.ID, 0, domain.MustDate("1829-04-07"))
	assert.True(t, errs.IsConcurrentModification(err))

	t.Run("ConcurrentWriters", func(t *testing.T) {
		var wg sync.WaitGroup
		results := make([]error, 4)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				name := "writer"
				_, results[i] = people.Update(ctx, p.ID, 1, domain.Patch{Name: &name})
			}(i)
		}
		wg.Wait()

		var ok, conflicts int
		for _, err := range results {
			switch {
			case err == nil:
				ok++
			case errs.IsConcurrentModification(err):
				conflicts++
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, len(results)-1, conflicts)
	})

	batch, err := people.BatchImport(ctx, []usecase.NewPerson{
		{Name: "Galois", BirthDate: domain.MustDate("1811-10-25")},
		{Name: "Riemann", BirthDate: domain.MustDate("1826-09-17")},
	})
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	all, err := people.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, people.Unregister(ctx, p.ID, 2))
	_, err = people.Find(ctx, p.ID)
	assert.True(t, errs.IsNotFound(err))
}

func TestPostgresIntegration(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = "postgres"
	cfg.Postgres.URL = setupPostgres(t)
	cfg.Postgres.Migrate = true
	cfg.Cache.Kind = config.CacheLocal

	app, err := personstore.Open(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	defer app.Close()

	exercise(t, app)
}

func TestDynamoDBIntegration(t *testing.T) {
	endpoint := os.Getenv("PERSONSTORE_TEST_DYNAMODB_ENDPOINT")
	if endpoint == "" {
		t.Skip("PERSONSTORE_TEST_DYNAMODB_ENDPOINT not set, skipping DynamoDB integration test")
	}

	cfg := config.Default()
	cfg.Backend = "dynamodb"
	cfg.DynamoDB.Region = "us-east-1"
	cfg.DynamoDB.Endpoint = endpoint
	cfg.DynamoDB.AccessKey = "local"
	cfg.DynamoDB.SecretKey = "local"
	cfg.DynamoDB.Table = "person-it-" + time.Now().Format("20060102150405")

	ctx := context.Background()
	client, err := ddb.NewDynamoDBClient(ctx, ddb.ClientOptions{
		Region:    cfg.DynamoDB.Region,
		AccessKey: cfg.DynamoDB.AccessKey,
		SecretKey: cfg.DynamoDB.SecretKey,
		Endpoint:  endpoint,
	})
	require.NoError(t, err)
	created, err := ddb.EnsureTable(ctx, client, cfg.DynamoDB.Table, time.Minute, nil)
	require.NoError(t, err)
	assert.True(t, created)

	app, err := personstore.Open(ctx, cfg, nil, nil)
	require.NoError(t, err)
	defer app.Close()

	exercise(t, app)
}
