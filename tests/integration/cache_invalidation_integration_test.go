//go:build integration

package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/adapters/cache"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/adapters/events"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/application/services"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/entities"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/domain/providers"
)

func TestRedisCacheAdapterIntegration(t *testing.T) {
	if os.Getenv("TEST_REDIS_HOST") == "" {
		t.Skip("Skipping integration test: TEST_REDIS_HOST not set")
	}

	redisClient := newTestRedisClient(t)
	defer redisClient.Close()

	adapter := cache.NewRedisAdapter(redisClient)
	ctx := context.Background()

	require.NoError(t, adapter.Set(ctx, "coverage:plan-int:drug:D123:2026-03-10", []byte(`{"covered":95}`), 60))
	require.NoError(t, adapter.Set(ctx, "coverage:plan-int:drug:D456:2026-03-10", []byte(`{"covered":80}`), 60))
	require.NoError(t, adapter.Set(ctx, "coverage:plan-int:lab:L789:2026-03-10", []byte(`{"covered":70}`), 60))

	value, err := adapter.Get(ctx, "coverage:plan-int:drug:D123:2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, `{"covered":95}`, string(value))

	// Pattern delete drops only the drug keys
	require.NoError(t, adapter.DeletePattern(ctx, "coverage:plan-int:drug:*"))

	exists, err := adapter.Exists(ctx, "coverage:plan-int:drug:D123:2026-03-10")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = adapter.Exists(ctx, "coverage:plan-int:lab:L789:2026-03-10")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, adapter.Delete(ctx, "coverage:plan-int:lab:L789:2026-03-10"))
}

func TestRedisEventBusFanoutIntegration(t *testing.T) {
	if os.Getenv("TEST_REDIS_HOST") == "" {
		t.Skip("Skipping integration test: TEST_REDIS_HOST not set")
	}

	redisClient := newTestRedisClient(t)
	defer redisClient.Close()

	eventBus := events.NewRedisEventBus(redisClient)
	defer eventBus.Close()

	channel := providers.EventChannelRuleUpdates
	ctx1, cancel1 := context.WithCancel(context.Background())
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel1()
	defer cancel2()

	sub1, err := eventBus.Subscribe(ctx1, channel)
	require.NoError(t, err)
	sub2, err := eventBus.Subscribe(ctx2, channel)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	event := entities.NewRuleChangeEvent(
		entities.ChangeEventExceptionUpserted, "plan-int", entities.CategoryDrug, "D123")

	require.NoError(t, eventBus.Publish(context.Background(), channel, event))

	received1 := waitForChangeEvent(t, sub1)
	received2 := waitForChangeEvent(t, sub2)

	assert.Equal(t, event.ID, received1.ID)
	assert.Equal(t, event.ID, received2.ID)
	assert.Equal(t, entities.ChangeEventExceptionUpserted, received1.EventType)
}

func TestCacheInvalidationEndToEndIntegration(t *testing.T) {
	if os.Getenv("TEST_REDIS_HOST") == "" {
		t.Skip("Skipping integration test: TEST_REDIS_HOST not set")
	}

	redisClient := newTestRedisClient(t)
	defer redisClient.Close()

	cacheAdapter := cache.NewRedisAdapter(redisClient)
	eventBus := events.NewRedisEventBus(redisClient)
	defer eventBus.Close()

	invalidation := services.NewCacheInvalidationService(cacheAdapter, eventBus)
	require.NoError(t, invalidation.Start())
	defer invalidation.Stop()
	time.Sleep(50 * time.Millisecond)

	ctx := context.Background()
	require.NoError(t, cacheAdapter.Set(ctx, "coverage:plan-e2e:drug:D123:2026-03-10", []byte("{}"), 60))
	require.NoError(t, cacheAdapter.Set(ctx, "report:tariff-coverage:-:-:-", []byte("{}"), 60))

	event := entities.NewRuleChangeEvent(
		entities.ChangeEventCategoryDefaultUpdated, "plan-e2e", entities.CategoryDrug, "")
	require.NoError(t, eventBus.Publish(ctx, providers.EventChannelRuleUpdates, event))

	// The subscriber drops dependent keys shortly after the publish
	assert.Eventually(t, func() bool {
		exists, err := cacheAdapter.Exists(ctx, "coverage:plan-e2e:drug:D123:2026-03-10")
		return err == nil && !exists
	}, 2*time.Second, 50*time.Millisecond)

	assert.Eventually(t, func() bool {
		exists, err := cacheAdapter.Exists(ctx, "report:tariff-coverage:-:-:-")
		return err == nil && !exists
	}, 2*time.Second, 50*time.Millisecond)
}

func waitForChangeEvent(t *testing.T, ch <-chan *entities.ChangeEvent) *entities.ChangeEvent {
	t.Helper()

	select {
	case event := <-ch:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
		return nil
	}
}
