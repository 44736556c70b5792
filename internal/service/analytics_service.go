package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"bank-support-be/internal/dto"
	"bank-support-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const maxLatencySamples = 100

type IAnalyticsService interface {
	RecordConversation(ctx context.Context)
	RecordMessage(ctx context.Context)
	RecordKBQuery(ctx context.Context, matched bool)
	RecordHandoverSuggested(ctx context.Context)
	RecordHandoverCompleted(ctx context.Context)
	RecordProviderFailure(ctx context.Context)
	RecordLatency(ctx context.Context, d time.Duration)
	RecordProvider(ctx context.Context, name string)
	Snapshot(ctx context.Context) dto.AnalyticsSnapshot
}

// counters is an in-process analytics store.
type counters struct {
	mu        sync.Mutex
	snap      dto.AnalyticsSnapshot
	latencies []int64
}

func newCounters() *counters {
	return &counters{snap: dto.AnalyticsSnapshot{ProviderCounts: map[string]int64{}}}
}

func (c *counters) add(field *int64, n int64) {
	c.mu.Lock()
	*field += n
	c.mu.Unlock()
}

func (c *counters) latency(ms int64) {
	c.mu.Lock()
	c.latencies = append(c.latencies, ms)
	if len(c.latencies) > maxLatencySamples {
		c.latencies = c.latencies[len(c.latencies)-maxLatencySamples:]
	}
	c.mu.Unlock()
}

func (c *counters) provider(name string) {
	c.mu.Lock()
	c.snap.ProviderCounts[name]++
	c.mu.Unlock()
}

func (c *counters) snapshot() dto.AnalyticsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.snap
	out.Latencies = append([]int64(nil), c.latencies...)
	out.ProviderCounts = make(map[string]int64, len(c.snap.ProviderCounts))
	for k, v := range c.snap.ProviderCounts {
		out.ProviderCounts[k] = v
	}
	return out
}

type analyticsService struct {
	local  *counters
	rdb    *redis.Client
	prefix string
	logger logger.ILogger
}

// NewAnalyticsService counts in memory and, when rdb is non-nil, mirrors
// every counter to Redis so all instances report the same totals.
func NewAnalyticsService(rdb *redis.Client, log logger.ILogger) IAnalyticsService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &analyticsService{
		local:  newCounters(),
		rdb:    rdb,
		prefix: "chatbot:analytics",
		logger: log,
	}
}

func (s *analyticsService) RecordConversation(ctx context.Context) {
	s.local.add(&s.local.snap.TotalConversations, 1)
	s.incr(ctx, "totalConversations")
}

func (s *analyticsService) RecordMessage(ctx context.Context) {
	s.local.add(&s.local.snap.TotalMessages, 1)
	s.incr(ctx, "totalMessages")
}

func (s *analyticsService) RecordKBQuery(ctx context.Context, matched bool) {
	s.local.add(&s.local.snap.KBQueries, 1)
	s.incr(ctx, "kbQueries")
	if matched {
		s.local.add(&s.local.snap.KBMatches, 1)
		s.incr(ctx, "kbMatches")
	}
}

func (s *analyticsService) RecordHandoverSuggested(ctx context.Context) {
	s.local.add(&s.local.snap.HandoversSuggested, 1)
	s.incr(ctx, "handoversSuggested")
}

func (s *analyticsService) RecordHandoverCompleted(ctx context.Context) {
	s.local.add(&s.local.snap.HandoversCompleted, 1)
	s.incr(ctx, "handoversCompleted")
}

func (s *analyticsService) RecordProviderFailure(ctx context.Context) {
	s.local.add(&s.local.snap.ProviderFailures, 1)
	s.incr(ctx, "providerFailures")
}

func (s *analyticsService) RecordLatency(ctx context.Context, d time.Duration) {
	ms := d.Milliseconds()
	s.local.latency(ms)
	if s.rdb == nil {
		return
	}
	key := s.prefix + ":latencies"
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, key, ms)
	pipe.LTrim(ctx, key, -maxLatencySamples, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		s.warn("latency", err)
	}
}

func (s *analyticsService) RecordProvider(ctx context.Context, name string) {
	s.local.provider(name)
	if s.rdb == nil {
		return
	}
	if err := s.rdb.HIncrBy(ctx, s.prefix+":providers", name, 1).Err(); err != nil {
		s.warn("provider", err)
	}
}

// Snapshot prefers the shared Redis view and falls back to local counters.
func (s *analyticsService) Snapshot(ctx context.Context) dto.AnalyticsSnapshot {
	if s.rdb == nil {
		return s.local.snapshot()
	}
	snap, err := s.redisSnapshot(ctx)
	if err != nil {
		s.warn("snapshot", err)
		return s.local.snapshot()
	}
	return snap
}

func (s *analyticsService) redisSnapshot(ctx context.Context) (dto.AnalyticsSnapshot, error) {
	pipe := s.rdb.Pipeline()
	countersCmd := pipe.HGetAll(ctx, s.prefix)
	latCmd := pipe.LRange(ctx, s.prefix+":latencies", 0, -1)
	provCmd := pipe.HGetAll(ctx, s.prefix+":providers")
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return dto.AnalyticsSnapshot{}, err
	}

	c := countersCmd.Val()
	snap := dto.AnalyticsSnapshot{
		TotalConversations: parseInt(c["totalConversations"]),
		TotalMessages:      parseInt(c["totalMessages"]),
		KBQueries:          parseInt(c["kbQueries"]),
		KBMatches:          parseInt(c["kbMatches"]),
		HandoversSuggested: parseInt(c["handoversSuggested"]),
		HandoversCompleted: parseInt(c["handoversCompleted"]),
		ProviderFailures:   parseInt(c["providerFailures"]),
		Latencies:          make([]int64, 0, len(latCmd.Val())),
		ProviderCounts:     map[string]int64{},
	}
	for _, v := range latCmd.Val() {
		snap.Latencies = append(snap.Latencies, parseInt(v))
	}
	for k, v := range provCmd.Val() {
		snap.ProviderCounts[k] = parseInt(v)
	}
	return snap, nil
}

func (s *analyticsService) incr(ctx context.Context, field string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.HIncrBy(ctx, s.prefix, field, 1).Err(); err != nil {
		s.warn(field, err)
	}
}

func (s *analyticsService) warn(op string, err error) {
	s.logger.Warn("ANALYTICS", "Redis write failed", map[string]interface{}{"op": op, "error": err.Error()})
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
