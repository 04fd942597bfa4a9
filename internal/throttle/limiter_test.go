package throttle

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.data[key], nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.data, key)
	return nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(s Store) (*Limiter, *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	return New(s, WithClock(clk.now)), clk
}

func TestLimiter_FreshIdentifierAllowed(t *testing.T) {
	l, _ := newTestLimiter(newMemStore())

	st := l.Check(context.Background(), "ann@example.com")
	assert.True(t, st.Allowed)
	assert.Equal(t, DefaultMaxAttempts, st.RemainingAttempts)
	assert.True(t, st.BlockedUntil.IsZero())
}

func TestLimiter_BlocksAfterMaxFailures(t *testing.T) {
	l, clk := newTestLimiter(newMemStore())
	ctx := context.Background()
	id := "ann@example.com"

	for i := 0; i < DefaultMaxAttempts; i++ {
		st := l.Check(ctx, id)
		require.True(t, st.Allowed, "attempt %d", i+1)
		assert.Equal(t, DefaultMaxAttempts-i, st.RemainingAttempts)
		l.RecordAttempt(ctx, id)
		clk.advance(time.Minute)
	}

	st := l.Check(ctx, id)
	assert.False(t, st.Allowed)
	// blocked from the fifth failure, one minute ago
	assert.Equal(t, clk.t.Add(DefaultBlockDuration-time.Minute), st.BlockedUntil)
	assert.Equal(t, 0, l.RemainingAttempts(ctx, id))
}

func TestLimiter_BlockExpires(t *testing.T) {
	s := newMemStore()
	l, clk := newTestLimiter(s)
	ctx := context.Background()

	for i := 0; i < DefaultMaxAttempts; i++ {
		l.RecordAttempt(ctx, "bob")
	}
	require.False(t, l.Check(ctx, "bob").Allowed)

	clk.advance(DefaultBlockDuration)
	st := l.Check(ctx, "bob")
	assert.True(t, st.Allowed)
	assert.Equal(t, DefaultMaxAttempts, st.RemainingAttempts)
	assert.Empty(t, s.data, "expired entry removed")
}

func TestLimiter_WindowExpiryStartsOver(t *testing.T) {
	l, clk := newTestLimiter(newMemStore())
	ctx := context.Background()

	for i := 0; i < DefaultMaxAttempts-1; i++ {
		l.RecordAttempt(ctx, "carol")
	}
	assert.Equal(t, 1, l.RemainingAttempts(ctx, "carol"))

	clk.advance(DefaultWindow + time.Second)
	assert.Equal(t, DefaultMaxAttempts, l.RemainingAttempts(ctx, "carol"))

	l.RecordAttempt(ctx, "carol")
	assert.Equal(t, DefaultMaxAttempts-1, l.RemainingAttempts(ctx, "carol"))
}

func TestLimiter_ResetClearsCounter(t *testing.T) {
	l, _ := newTestLimiter(newMemStore())
	ctx := context.Background()

	for i := 0; i < DefaultMaxAttempts-1; i++ {
		l.RecordAttempt(ctx, "dan")
	}
	l.Reset(ctx, "dan")

	st := l.Check(ctx, "dan")
	assert.True(t, st.Allowed)
	assert.Equal(t, DefaultMaxAttempts, st.RemainingAttempts)
}

func TestLimiter_IdentifierIsCaseInsensitive(t *testing.T) {
	l, _ := newTestLimiter(newMemStore())
	ctx := context.Background()

	l.RecordAttempt(ctx, "Eve@Example.com")
	assert.Equal(t, DefaultMaxAttempts-1, l.RemainingAttempts(ctx, " eve@example.com"))
}

func TestLimiter_LegacyEntryWithoutBlockIsDenied(t *testing.T) {
	s := newMemStore()
	l, clk := newTestLimiter(s)
	s.data[KeyPrefix+"frank"] = []byte(`{"attempts":5,"firstAttempt":` +
		strconv.FormatInt(clk.t.Add(-time.Minute).UnixMilli(), 10) + `}`)

	st := l.Check(context.Background(), "frank")
	assert.False(t, st.Allowed)
	assert.Equal(t, clk.t.Add(DefaultBlockDuration), st.BlockedUntil)
}

func TestLimiter_BlockedUntilIsUTC(t *testing.T) {
	riga, err := time.LoadLocation("Europe/Riga")
	require.NoError(t, err)
	s := newMemStore()
	clk := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, riga)}
	l := New(s, WithClock(clk.now))
	ctx := context.Background()

	for i := 0; i < DefaultMaxAttempts; i++ {
		l.RecordAttempt(ctx, "ivan")
	}
	st := l.Check(ctx, "ivan")
	assert.Equal(t, time.UTC, st.BlockedUntil.Location())
	assert.Equal(t, clk.t.Add(DefaultBlockDuration).UTC(), st.BlockedUntil)

	s.data[KeyPrefix+"jane"] = []byte(`{"attempts":5,"firstAttempt":` +
		strconv.FormatInt(clk.t.UnixMilli(), 10) + `}`)
	st = l.Check(ctx, "jane")
	assert.Equal(t, time.UTC, st.BlockedUntil.Location())
	assert.Equal(t, clk.t.Add(DefaultBlockDuration).UTC(), st.BlockedUntil)
}

func TestLimiter_CheckIsReadOnly(t *testing.T) {
	s := newMemStore()
	l, _ := newTestLimiter(s)
	ctx := context.Background()

	l.RecordAttempt(ctx, "gina")
	before := string(s.data[KeyPrefix+"gina"])
	for i := 0; i < 10; i++ {
		l.Check(ctx, "gina")
	}
	assert.Equal(t, before, string(s.data[KeyPrefix+"gina"]))
}

func TestLimiter_TTLCoversBlock(t *testing.T) {
	s := newMemStore()
	l, _ := newTestLimiter(s)
	ctx := context.Background()

	l.RecordAttempt(ctx, "hal")
	assert.Equal(t, DefaultWindow, s.ttls[KeyPrefix+"hal"])

	for i := 1; i < DefaultMaxAttempts; i++ {
		l.RecordAttempt(ctx, "hal")
	}
	assert.Equal(t, DefaultBlockDuration, s.ttls[KeyPrefix+"hal"])
}

func TestLimiter_StorageFailureFailsOpen(t *testing.T) {
	s := newMemStore()
	s.err = errors.New("database is locked")
	l, _ := newTestLimiter(s)
	ctx := context.Background()

	for i := 0; i < DefaultMaxAttempts*2; i++ {
		l.RecordAttempt(ctx, "ivy")
	}
	st := l.Check(ctx, "ivy")
	assert.True(t, st.Allowed)
	l.Reset(ctx, "ivy")
}

func TestLimiter_CorruptEntryFailsOpen(t *testing.T) {
	s := newMemStore()
	s.data[KeyPrefix+"jay"] = []byte("{not json")
	l, _ := newTestLimiter(s)
	ctx := context.Background()

	assert.True(t, l.Check(ctx, "jay").Allowed)

	l.RecordAttempt(ctx, "jay")
	assert.Equal(t, DefaultMaxAttempts-1, l.RemainingAttempts(ctx, "jay"))
}

func TestLimiter_Options(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := New(newMemStore(),
		WithMaxAttempts(2),
		WithWindow(time.Minute),
		WithBlockDuration(time.Hour),
		WithClock(clk.now),
	)
	ctx := context.Background()

	l.RecordAttempt(ctx, "kim")
	l.RecordAttempt(ctx, "kim")
	st := l.Check(ctx, "kim")
	assert.False(t, st.Allowed)
	assert.Equal(t, clk.t.Add(time.Hour), st.BlockedUntil)
}

func TestLimiter_ConcurrentRecordsAreNotLost(t *testing.T) {
	l := New(newMemStore(), WithMaxAttempts(1000))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.RecordAttempt(ctx, "lee")
		}()
	}
	wg.Wait()
	assert.Equal(t, 950, l.RemainingAttempts(ctx, "lee"))
}
