/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/personstore/cache"
	"github.com/suparena/personstore/datastore"
	"github.com/suparena/personstore/datastore/memory"
	"github.com/suparena/personstore/datastore/mock"
	"github.com/suparena/personstore/domain"
	errs "github.com/suparena/personstore/errors"
	"github.com/suparena/personstore/events"
	"github.com/suparena/personstore/metrics"
	"github.com/suparena/personstore/usecase"
)

func TestRegisterVerification(t *testing.T) {
	engine := mock.New().WithGetFunc(func(ctx context.Context, id int64) (*domain.Person, error) {
		return &domain.Person{ID: id, Name: "someone else", BirthDate: domain.MustDate("1900-01-01")}, nil
	})
	runner := mock.NewRunner(engine).WithBackend(datastore.DynamoDB)
	rec := &recorder{}
	svc := usecase.NewPersonService(runner, usecase.WithNotifier(events.NewNotifier(rec, nil, nil)))

	_, err := svc.Register(context.Background(), "Abel", domain.MustDate("1802-08-05"), nil, nil)
	assert.True(t, errs.IsBackendUnavailable(err))
	assert.ErrorIs(t, err, usecase.ErrVerificationFailed)
	assert.Equal(t, 1, runner.Rollbacks())
	assert.Empty(t, rec.types())
	assert.Equal(t, []string{"AllocateID", "Insert", "GetByID"}, engine.Calls())
}

func TestCommitFailureHasNoSideEffects(t *testing.T) {
	runner := mock.NewRunner(mock.New()).WithCommitError(errs.NewBackendUnavailableError("memory", "commit", errors.New("lost")))
	rec := &recorder{}
	local, err := cache.NewLocalStore(cache.DefaultLocalOptions())
	require.NoError(t, err)
	svc := usecase.NewPersonService(runner,
		usecase.WithCache(cache.NewAside(local, nil, nil)),
		usecase.WithNotifier(events.NewNotifier(rec, nil, nil)),
	)

	_, err = svc.Register(context.Background(), "Abel", domain.MustDate("1802-08-05"), nil, nil)
	assert.True(t, errs.IsBackendUnavailable(err))
	assert.Empty(t, rec.types())
	assert.Equal(t, 0, local.Size(), "nothing is cached before a commit succeeds")
}

func TestBackendPassThrough(t *testing.T) {
	engine := mock.New().WithUpdateError(errs.NewConcurrentModificationError(domain.EntityType, 1, 0, 4))
	svc := usecase.NewPersonService(mock.NewRunner(engine).WithBackend(datastore.Postgres))
	assert.Equal(t, datastore.Postgres, svc.Backend())

	name := "x"
	_, err := svc.Update(context.Background(), 1, 0, domain.Patch{Name: &name})
	var cm *errs.ConcurrentModificationError
	require.True(t, errors.As(err, &cm))
	assert.Equal(t, int64(4), cm.Actual)
}

func TestDispatchedSideEffects(t *testing.T) {
	d := events.NewDispatcher(16, nil)
	defer d.Close()
	rec := &recorder{}
	local, err := cache.NewLocalStore(cache.DefaultLocalOptions())
	require.NoError(t, err)

	svc := usecase.NewPersonService(memory.New(memory.NewCounter(0)),
		usecase.WithCache(cache.NewAside(local, nil, nil)),
		usecase.WithNotifier(events.NewNotifier(rec, nil, nil)),
		usecase.WithDispatcher(d),
	)
	ctx := context.Background()

	p, err := svc.Register(ctx, "Abel", domain.MustDate("1802-08-05"), nil, nil)
	require.NoError(t, err)
	_, err = svc.RecordDeath(ctx, p.ID, 0, domain.MustDate("1829-04-06"))
	require.NoError(t, err)
	require.NoError(t, svc.Unregister(ctx, p.ID, 1))

	require.NoError(t, svc.Flush(ctx))
	assert.Equal(t, []events.Type{events.PersonCreated, events.PersonUpdated, events.PersonDeleted}, rec.types())
	assert.Equal(t, 0, local.Size())
}

func TestUnavailableCacheIsSwallowed(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	redisStore, err := cache.NewRedisStore(context.Background(), cache.RedisOptions{
		URL:     "redis://" + mr.Addr(),
		TTL:     time.Minute,
		Timeout: 200 * time.Millisecond,
	})
	require.NoError(t, err)
	defer redisStore.Close()
	mr.Close()

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)
	svc := usecase.NewPersonService(memory.New(nil),
		usecase.WithCache(cache.NewAside(redisStore, nil, m)),
		usecase.WithMetrics(m),
	)
	ctx := context.Background()

	p, err := svc.Register(ctx, "Abel", domain.MustDate("1802-08-05"), nil, nil)
	require.NoError(t, err)
	found, err := svc.Find(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, found.Equal(*p))

	name := "Niels"
	_, err = svc.Update(ctx, p.ID, 0, domain.Patch{Name: &name})
	require.NoError(t, err)
	assert.Greater(t, testutil.ToFloat64(m.CacheRequests.WithLabelValues(metrics.CacheError)), 0.0)
}

func TestFailingPublisherIsSwallowed(t *testing.T) {
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)
	broken := events.PublisherFunc(func(context.Context, *events.Event) error {
		return errors.New("broker unreachable")
	})
	svc := usecase.NewPersonService(memory.New(nil),
		usecase.WithNotifier(events.NewNotifier(broken, nil, m)),
		usecase.WithMetrics(m),
	)

	_, err = svc.Register(context.Background(), "Abel", domain.MustDate("1802-08-05"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues(metrics.OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues(usecase.OpRegister, "memory", metrics.OutcomeSuccess)))
}
