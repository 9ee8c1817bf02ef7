package cache

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	DailyVolume float64            `json:"daily_volume"`
	Weights     map[string]float64 `json:"weights"`
}

type response struct {
	Total float64 `json:"total"`
}

type counter struct {
	hits, misses int
}

func (c *counter) RecordCacheHit(string)  { c.hits++ }
func (c *counter) RecordCacheMiss(string) { c.misses++ }

type failingCache struct {
	calls int
}

func (f *failingCache) Get(context.Context, string) ([]byte, bool, error) {
	f.calls++
	return nil, false, errors.New("connection refused")
}

func (f *failingCache) Set(context.Context, string, []byte, time.Duration) error {
	f.calls++
	return errors.New("connection refused")
}

func TestKeyIsStable(t *testing.T) {
	a, err := Key("composite", request{DailyVolume: 1e6, Weights: map[string]float64{"kyle_lambda": 0.5, "amihud": 0.5}})
	require.NoError(t, err)
	b, err := Key("composite", request{DailyVolume: 1e6, Weights: map[string]float64{"amihud": 0.5, "kyle_lambda": 0.5}})
	require.NoError(t, err)
	c, err := Key("composite", request{DailyVolume: 2e6})
	require.NoError(t, err)
	d, err := Key("depth", request{DailyVolume: 1e6, Weights: map[string]float64{"kyle_lambda": 0.5, "amihud": 0.5}})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Len(t, a, len("composite:")+64)
}

func TestMemoryExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &memory{m: map[string]entry{}, now: func() time.Time { return now }}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	now = now.Add(2 * time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemorySweepsExpiredOnSet(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &memory{m: map[string]entry{}, now: func() time.Time { return now }, sweepEvery: time.Minute}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 30*time.Second))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	assert.Len(t, c.m, 2)

	// expired but inside the sweep interval
	now = now.Add(45 * time.Second)
	require.NoError(t, c.Set(ctx, "c", []byte("3"), time.Hour))
	assert.Len(t, c.m, 3)

	now = now.Add(time.Minute)
	require.NoError(t, c.Set(ctx, "d", []byte("4"), time.Hour))
	assert.Len(t, c.m, 3)
	assert.NotContains(t, c.m, "a")
	assert.Contains(t, c.m, "b")
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestMemoLogsCacheFailures(t *testing.T) {
	logs := captureLogs(t)
	fc := &failingCache{}
	memo := NewMemo(fc, time.Minute, nil)

	var out response
	cached, err := memo.Do(context.Background(), "composite", request{DailyVolume: 1}, &out, func() (interface{}, error) {
		return response{Total: 3}, nil
	})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 3.0, out.Total)
	assert.Equal(t, 2, fc.calls)

	assert.Contains(t, logs.String(), `"message":"Cache read failed"`)
	assert.Contains(t, logs.String(), `"message":"Cache write failed"`)
	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), "connection refused")
}

func TestMemoComputesOnce(t *testing.T) {
	obs := &counter{}
	memo := NewMemo(NewMemory(), time.Minute, obs)
	ctx := context.Background()
	calls := 0
	compute := func() (interface{}, error) {
		calls++
		return response{Total: 125_000}, nil
	}

	var first, second response
	hit, err := memo.Do(ctx, "composite", request{DailyVolume: 1e6}, &first, compute)
	require.NoError(t, err)
	assert.False(t, hit)

	hit, err = memo.Do(ctx, "composite", request{DailyVolume: 1e6}, &second, compute)
	require.NoError(t, err)
	assert.True(t, hit)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, obs.hits)
	assert.Equal(t, 1, obs.misses)
}

func TestMemoPropagatesComputeError(t *testing.T) {
	memo := NewMemo(NewMemory(), time.Minute, nil)
	boom := errors.New("boom")

	var out response
	_, err := memo.Do(context.Background(), "composite", request{}, &out, func() (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestRedisCache(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db, "mmvalue:", time.Second)
	ctx := context.Background()

	t.Run("hit", func(t *testing.T) {
		mock.ExpectGet("mmvalue:k1").SetVal(`{"total":1}`)
		v, ok, err := c.Get(ctx, "k1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.JSONEq(t, `{"total":1}`, string(v))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss", func(t *testing.T) {
		mock.ExpectGet("mmvalue:k2").RedisNil()
		v, ok, err := c.Get(ctx, "k2")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, v)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error", func(t *testing.T) {
		mock.ExpectGet("mmvalue:k3").SetErr(redis.TxFailedErr)
		_, _, err := c.Get(ctx, "k3")
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("set", func(t *testing.T) {
		mock.ExpectSet("mmvalue:k4", []byte("v"), time.Minute).SetVal("OK")
		require.NoError(t, c.Set(ctx, "k4", []byte("v"), time.Minute))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ping", func(t *testing.T) {
		mock.ExpectPing().SetVal("PONG")
		require.NoError(t, c.Ping(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBreakerBypassesFailingCache(t *testing.T) {
	backend := &failingCache{}
	var transitions []string
	cfg := DefaultBreakerConfig()
	cfg.ConsecutiveFailures = 3
	cfg.Timeout = time.Hour

	c := NewBreakerCache(backend, cfg, func(from, to string) {
		transitions = append(transitions, from+"->"+to)
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := c.Get(ctx, "k")
		assert.Error(t, err)
	}
	assert.Equal(t, "open", c.State())
	assert.Equal(t, []string{"closed->open"}, transitions)

	v, ok, err := c.Get(ctx, "k")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
	assert.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	assert.Equal(t, 3, backend.calls)
}

func TestMemoSurvivesOpenBreaker(t *testing.T) {
	cfg := DefaultBreakerConfig()
	cfg.ConsecutiveFailures = 1
	cfg.Timeout = time.Hour
	memo := NewMemo(NewBreakerCache(&failingCache{}, cfg, nil), time.Minute, nil)

	var out response
	for i := 0; i < 3; i++ {
		_, err := memo.Do(context.Background(), "depth", request{DailyVolume: 1}, &out, func() (interface{}, error) {
			return response{Total: 7}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 7.0, out.Total)
	}
}

type flakyPinger struct {
	failures int
	calls    int
}

func (f *flakyPinger) Ping(context.Context) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("not ready")
	}
	return nil
}

func TestWaitReady(t *testing.T) {
	p := &flakyPinger{failures: 2}
	err := WaitReady(context.Background(), p, time.Millisecond, 5*time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, p.calls)

	never := &flakyPinger{failures: 1 << 30}
	err = WaitReady(context.Background(), never, time.Millisecond, 2*time.Millisecond, 20*time.Millisecond)
	assert.ErrorContains(t, err, "redis unavailable")
}
