package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMetrics(t *testing.T) *QueryMetrics {
	t.Helper()
	m, err := NewQueryMetrics(DefaultConfig())
	require.NoError(t, err)
	return m
}

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		d      time.Duration
		bucket LatencyBucket
	}{
		{5 * time.Millisecond, BucketP10},
		{25 * time.Millisecond, BucketP50},
		{75 * time.Millisecond, BucketP100},
		{250 * time.Millisecond, BucketP500},
		{2 * time.Second, BucketP1000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.bucket, LatencyToBucket(tt.d))
	}
}

func TestExtractTerms(t *testing.T) {
	assert.Equal(t, []string{"quick", "fox"}, ExtractTerms("Quick of Fox"))
	assert.Nil(t, ExtractTerms("a of to"))
	assert.Nil(t, ExtractTerms("   "))
}

func TestQueryMetrics_Record(t *testing.T) {
	m := newMetrics(t)

	m.Record(QueryEvent{
		Query:       "quick brown fox",
		ResultCount: 3,
		LexicalHits: 5,
		VectorHits:  4,
		Latency:     20 * time.Millisecond,
		Timestamp:   time.Now(),
	})
	m.Record(QueryEvent{
		Query:       "sourdough starter",
		ResultCount: 0,
		Latency:     5 * time.Millisecond,
		Timestamp:   time.Now(),
	})

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.TotalQueries)
	assert.Equal(t, int64(1), snap.ZeroResultCount)
	assert.Equal(t, int64(5), snap.LexicalHitTotal)
	assert.Equal(t, int64(4), snap.VectorHitTotal)
	assert.Equal(t, int64(1), snap.LatencyDistribution[BucketP50])
	assert.Equal(t, int64(1), snap.LatencyDistribution[BucketP10])
	assert.Equal(t, []string{"sourdough starter"}, snap.ZeroResultQueries)
	assert.InDelta(t, 50.0, snap.ZeroResultPercentage(), 0.001)
}

func TestQueryMetrics_ExactRepeats(t *testing.T) {
	m := newMetrics(t)

	m.Record(QueryEvent{Query: "same query", ResultCount: 1})
	m.Record(QueryEvent{Query: "Same Query", ResultCount: 1}) // case-insensitive repeat
	m.Record(QueryEvent{Query: "different", ResultCount: 1})

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.ExactRepeatCount)
}

func TestQueryMetrics_TopTermsSorted(t *testing.T) {
	m := newMetrics(t)

	m.Record(QueryEvent{Query: "fusion fusion ranking", ResultCount: 1})
	m.Record(QueryEvent{Query: "fusion", ResultCount: 1})

	snap := m.Snapshot()
	require.NotEmpty(t, snap.TopTerms)
	assert.Equal(t, "fusion", snap.TopTerms[0].Term)
	assert.Equal(t, int64(3), snap.TopTerms[0].Count)
}

func TestQueryMetrics_ZeroResultBufferWraps(t *testing.T) {
	m, err := NewQueryMetrics(Config{ZeroResultsCapacity: 2})
	require.NoError(t, err)

	m.Record(QueryEvent{Query: "first miss"})
	m.Record(QueryEvent{Query: "second miss"})
	m.Record(QueryEvent{Query: "third miss"})

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.ZeroResultCount)
	assert.Len(t, snap.ZeroResultQueries, 2)
	assert.Contains(t, snap.ZeroResultQueries, "third miss")
	assert.NotContains(t, snap.ZeroResultQueries, "first miss")
}

func TestQueryMetrics_Reset(t *testing.T) {
	m := newMetrics(t)
	m.Record(QueryEvent{Query: "anything", ResultCount: 1})

	m.Reset()
	snap := m.Snapshot()
	assert.Equal(t, int64(0), snap.TotalQueries)
	assert.Empty(t, snap.TopTerms)
	assert.Empty(t, snap.ZeroResultQueries)
}

func TestQueryMetrics_ConcurrentRecord(t *testing.T) {
	m := newMetrics(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Record(QueryEvent{Query: "concurrent load", ResultCount: 1})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1000), m.Snapshot().TotalQueries)
}
