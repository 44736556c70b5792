package service

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestAnalyticsLocalCounters(t *testing.T) {
	ctx := context.Background()
	a := NewAnalyticsService(nil, nil)

	a.RecordConversation(ctx)
	a.RecordMessage(ctx)
	a.RecordMessage(ctx)
	a.RecordKBQuery(ctx, true)
	a.RecordKBQuery(ctx, false)
	a.RecordHandoverSuggested(ctx)
	a.RecordProviderFailure(ctx)
	a.RecordProvider(ctx, "mock")
	a.RecordProvider(ctx, "mock")
	a.RecordLatency(ctx, 1500*time.Millisecond)

	snap := a.Snapshot(ctx)
	assert.Equal(t, int64(1), snap.TotalConversations)
	assert.Equal(t, int64(2), snap.TotalMessages)
	assert.Equal(t, int64(2), snap.KBQueries)
	assert.Equal(t, int64(1), snap.KBMatches)
	assert.Equal(t, int64(1), snap.HandoversSuggested)
	assert.Equal(t, int64(1), snap.ProviderFailures)
	assert.Equal(t, map[string]int64{"mock": 2}, snap.ProviderCounts)
	assert.Equal(t, []int64{1500}, snap.Latencies)
}

func TestAnalyticsKeepsLatestLatencies(t *testing.T) {
	ctx := context.Background()
	a := NewAnalyticsService(nil, nil)
	for i := 0; i < maxLatencySamples+10; i++ {
		a.RecordLatency(ctx, time.Duration(i)*time.Millisecond)
	}
	lat := a.Snapshot(ctx).Latencies
	assert.Len(t, lat, maxLatencySamples)
	assert.Equal(t, int64(10), lat[0])
}

func TestAnalyticsSnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	a := NewAnalyticsService(nil, nil)
	a.RecordProvider(ctx, "mock")

	snap := a.Snapshot(ctx)
	snap.ProviderCounts["mock"] = 99
	assert.Equal(t, int64(1), a.Snapshot(ctx).ProviderCounts["mock"])
}

func TestAnalyticsFallsBackWhenRedisIsDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	ctx := context.Background()
	a := NewAnalyticsService(rdb, nil)
	a.RecordConversation(ctx)
	a.RecordHandoverCompleted(ctx)

	snap := a.Snapshot(ctx)
	assert.Equal(t, int64(1), snap.TotalConversations)
	assert.Equal(t, int64(1), snap.HandoversCompleted)
}
