// Package telemetry collects local query metrics for retrieval tuning.
// Nothing is ever reported externally.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LatencyBucket represents a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent represents a single retrieval for metrics recording.
type QueryEvent struct {
	Query       string
	ResultCount int
	LexicalHits int
	VectorHits  int
	Latency     time.Duration
	Timestamp   time.Time
}

// IsZeroResult returns true if this query returned no results.
func (e QueryEvent) IsZeroResult() bool {
	return e.ResultCount == 0
}

// TermCount represents a term and its frequency count.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// ExtractTerms extracts countable terms from a query string.
// Terms are lowercased and filtered to minimum length 3.
func ExtractTerms(query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	var terms []string
	for _, w := range strings.Fields(query) {
		if len(w) >= 3 {
			terms = append(terms, w)
		}
	}
	if len(terms) == 0 {
		return nil
	}
	return terms
}

// Snapshot is an immutable view of collected metrics.
type Snapshot struct {
	TotalQueries        int64                   `json:"total_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	ExactRepeatCount    int64                   `json:"exact_repeat_count"`
	LexicalHitTotal     int64                   `json:"lexical_hit_total"`
	VectorHitTotal      int64                   `json:"vector_hit_total"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the percentage of zero-result queries.
func (s *Snapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// Config configures the metrics collector.
type Config struct {
	TopTermsCapacity    int // Max terms to track (default: 100)
	ZeroResultsCapacity int // Max zero-result queries to keep (default: 100)
	RecentHashCapacity  int // Max query hashes for repeat detection (default: 500)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TopTermsCapacity:    100,
		ZeroResultsCapacity: 100,
		RecentHashCapacity:  500,
	}
}

// QueryMetrics collects retrieval telemetry. Thread-safe.
type QueryMetrics struct {
	mu sync.RWMutex

	total        int64
	zeroResults  int64
	exactRepeats int64
	lexicalHits  int64
	vectorHits   int64
	latency      map[LatencyBucket]int64
	termCounts   map[string]int64
	since        time.Time

	// recentHashes tracks hashed queries only, raw text never leaves
	// the zero-result buffer below.
	recentHashes *lru.Cache[string, struct{}]
	zeroQueries  []string
	zeroHead     int
	zeroCap      int
}

// NewQueryMetrics creates a metrics collector.
func NewQueryMetrics(cfg Config) (*QueryMetrics, error) {
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = 100
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = 100
	}
	if cfg.RecentHashCapacity <= 0 {
		cfg.RecentHashCapacity = 500
	}

	hashes, err := lru.New[string, struct{}](cfg.RecentHashCapacity)
	if err != nil {
		return nil, err
	}

	return &QueryMetrics{
		latency:      make(map[LatencyBucket]int64),
		termCounts:   make(map[string]int64),
		since:        time.Now(),
		recentHashes: hashes,
		zeroQueries:  make([]string, 0, cfg.ZeroResultsCapacity),
		zeroCap:      cfg.ZeroResultsCapacity,
	}, nil
}

// Record adds one query event to the aggregates.
func (m *QueryMetrics) Record(event QueryEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.lexicalHits += int64(event.LexicalHits)
	m.vectorHits += int64(event.VectorHits)
	m.latency[LatencyToBucket(event.Latency)]++

	hash := hashQuery(event.Query)
	if _, seen := m.recentHashes.Get(hash); seen {
		m.exactRepeats++
	}
	m.recentHashes.Add(hash, struct{}{})

	for _, term := range ExtractTerms(event.Query) {
		m.termCounts[term]++
	}

	if event.IsZeroResult() {
		m.zeroResults++
		if len(m.zeroQueries) < m.zeroCap {
			m.zeroQueries = append(m.zeroQueries, event.Query)
		} else {
			m.zeroQueries[m.zeroHead] = event.Query
		}
		m.zeroHead = (m.zeroHead + 1) % m.zeroCap
	}
}

// Snapshot returns a copy of the current aggregates.
func (m *QueryMetrics) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	latency := make(map[LatencyBucket]int64, len(m.latency))
	for k, v := range m.latency {
		latency[k] = v
	}

	terms := make([]TermCount, 0, len(m.termCounts))
	for t, c := range m.termCounts {
		terms = append(terms, TermCount{Term: t, Count: c})
	}
	sortTermCounts(terms)

	zero := make([]string, len(m.zeroQueries))
	copy(zero, m.zeroQueries)

	return &Snapshot{
		TotalQueries:        m.total,
		ZeroResultCount:     m.zeroResults,
		ExactRepeatCount:    m.exactRepeats,
		LexicalHitTotal:     m.lexicalHits,
		VectorHitTotal:      m.vectorHits,
		LatencyDistribution: latency,
		TopTerms:            terms,
		ZeroResultQueries:   zero,
		Since:               m.since,
	}
}

// Reset clears all aggregates.
func (m *QueryMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total = 0
	m.zeroResults = 0
	m.exactRepeats = 0
	m.lexicalHits = 0
	m.vectorHits = 0
	m.latency = make(map[LatencyBucket]int64)
	m.termCounts = make(map[string]int64)
	m.recentHashes.Purge()
	m.zeroQueries = m.zeroQueries[:0]
	m.zeroHead = 0
	m.since = time.Now()
}

// hashQuery returns a stable hash of the query text.
func hashQuery(query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return hex.EncodeToString(sum[:8])
}

// sortTermCounts orders terms by count descending, then term ascending.
func sortTermCounts(terms []TermCount) {
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Term < terms[j].Term
	})
}
