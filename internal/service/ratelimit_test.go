package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/learnhub/learning-platform/internal/model"
	"github.com/learnhub/learning-platform/internal/repository"
)

// fakeRateLimitStore mirrors the SQL store's atomic semantics in memory:
// every mutation happens under one lock, and the conditional operations
// check the same guards the SQL statements do.
type fakeRateLimitStore struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[string]*model.RateLimit // keyed by identifier+"/"+type
}

func newFakeRateLimitStore() *fakeRateLimitStore {
	return &fakeRateLimitStore{rows: make(map[string]*model.RateLimit)}
}

func (f *fakeRateLimitStore) Get(ctx context.Context, identifier, typ string) (model.RateLimit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[identifier+"/"+typ]
	if !ok {
		return model.RateLimit{}, sql.ErrNoRows
	}
	return *row, nil
}

func (f *fakeRateLimitStore) Create(ctx context.Context, identifier, typ string, windowStart time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := identifier + "/" + typ
	if _, ok := f.rows[key]; ok {
		return repository.ErrDuplicate
	}
	f.nextID++
	f.rows[key] = &model.RateLimit{
		ID:          f.nextID,
		Identifier:  identifier,
		Type:        typ,
		Count:       1,
		WindowStart: windowStart,
	}
	return nil
}

func (f *fakeRateLimitStore) ConditionalIncrement(ctx context.Context, id uint64, max int, windowStart time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ID == id && row.Count < max && row.WindowStart.Equal(windowStart) {
			row.Count++
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRateLimitStore) ResetWindow(ctx context.Context, id uint64, oldWindowStart, newWindowStart time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ID == id && row.WindowStart.Equal(oldWindowStart) {
			row.Count = 1
			row.WindowStart = newWindowStart
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRateLimitStore) Count(ctx context.Context, id uint64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ID == id {
			return row.Count, nil
		}
	}
	return 0, sql.ErrNoRows
}

func (f *fakeRateLimitStore) Delete(ctx context.Context, identifier, typ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, identifier+"/"+typ)
	return nil
}

func (f *fakeRateLimitStore) setWindowStart(identifier, typ string, t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[identifier+"/"+typ]; ok {
		row.WindowStart = t
	}
}

func TestRateLimiterAllowsUpToMax(t *testing.T) {
	store := newFakeRateLimitStore()
	limiter := NewRateLimiter(store, map[string]RateLimitRule{
		model.RateLimitOtpRequest: {Window: time.Hour, Max: 3},
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := limiter.Check(ctx, "a@example.com", model.RateLimitOtpRequest)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if want := 3 - i - 1; res.Remaining != want {
			t.Errorf("request %d: remaining = %d, want %d", i, res.Remaining, want)
		}
	}

	res, err := limiter.Check(ctx, "a@example.com", model.RateLimitOtpRequest)
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatal("4th request should be denied")
	}
	if res.RetryAfter == nil {
		t.Fatal("denied result should carry RetryAfter")
	}
	if res.WaitSeconds <= 0 {
		t.Errorf("WaitSeconds = %d, want > 0", res.WaitSeconds)
	}
}

func TestRateLimiterIsolatesIdentifiersAndTypes(t *testing.T) {
	store := newFakeRateLimitStore()
	limiter := NewRateLimiter(store, nil)
	ctx := context.Background()

	if res, _ := limiter.Check(ctx, "a@example.com", model.RateLimitOtpRequest); !res.Allowed {
		t.Fatal("first request for a@ should pass")
	}
	if res, _ := limiter.Check(ctx, "b@example.com", model.RateLimitOtpRequest); !res.Allowed {
		t.Fatal("b@ must not share a@'s counter")
	}
	if res, _ := limiter.Check(ctx, "a@example.com", model.RateLimitOtpVerify); !res.Allowed {
		t.Fatal("verify must not share the request counter")
	}
}

func TestRateLimiterResetsExpiredWindow(t *testing.T) {
	store := newFakeRateLimitStore()
	limiter := NewRateLimiter(store, map[string]RateLimitRule{
		model.RateLimitOtpRequest: {Window: time.Hour, Max: 2},
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if res, _ := limiter.Check(ctx, "a@example.com", model.RateLimitOtpRequest); !res.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if res, _ := limiter.Check(ctx, "a@example.com", model.RateLimitOtpRequest); res.Allowed {
		t.Fatal("window full, request should be denied")
	}

	// Age the window past its duration; the next request opens a new one.
	store.setWindowStart("a@example.com", model.RateLimitOtpRequest, time.Now().UTC().Add(-2*time.Hour))

	res, err := limiter.Check(ctx, "a@example.com", model.RateLimitOtpRequest)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed {
		t.Fatal("request after window expiry should be allowed")
	}
	if res.Remaining != 1 {
		t.Errorf("fresh window remaining = %d, want 1", res.Remaining)
	}
}

func TestRateLimiterUnknownType(t *testing.T) {
	limiter := NewRateLimiter(newFakeRateLimitStore(), nil)
	if _, err := limiter.Check(context.Background(), "a@example.com", "bogus"); err == nil {
		t.Fatal("unknown type should error")
	}
}

func TestRateLimiterStatusDoesNotConsume(t *testing.T) {
	store := newFakeRateLimitStore()
	limiter := NewRateLimiter(store, map[string]RateLimitRule{
		model.RateLimitOtpRequest: {Window: time.Hour, Max: 2},
	})
	ctx := context.Background()

	if _, err := limiter.Check(ctx, "a@example.com", model.RateLimitOtpRequest); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if _, err := limiter.Status(ctx, "a@example.com", model.RateLimitOtpRequest); err != nil {
			t.Fatal(err)
		}
	}
	res, err := limiter.Check(ctx, "a@example.com", model.RateLimitOtpRequest)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed {
		t.Fatal("status calls must not consume slots")
	}
}

func TestRateLimiterReset(t *testing.T) {
	store := newFakeRateLimitStore()
	limiter := NewRateLimiter(store, map[string]RateLimitRule{
		model.RateLimitOtpRequest: {Window: time.Hour, Max: 1},
	})
	ctx := context.Background()

	if res, _ := limiter.Check(ctx, "a@example.com", model.RateLimitOtpRequest); !res.Allowed {
		t.Fatal("first request should pass")
	}
	if res, _ := limiter.Check(ctx, "a@example.com", model.RateLimitOtpRequest); res.Allowed {
		t.Fatal("second request should be denied")
	}
	if err := limiter.Reset(ctx, "a@example.com", model.RateLimitOtpRequest); err != nil {
		t.Fatal(err)
	}
	if res, _ := limiter.Check(ctx, "a@example.com", model.RateLimitOtpRequest); !res.Allowed {
		t.Fatal("request after reset should pass")
	}
}

// Many concurrent requests against one key must never exceed the window
// maximum, whichever interleaving they hit.
func TestRateLimiterConcurrentNeverExceedsMax(t *testing.T) {
	const goroutines = 50
	const max = 5

	store := newFakeRateLimitStore()
	limiter := NewRateLimiter(store, map[string]RateLimitRule{
		model.RateLimitOtpRequest: {Window: time.Hour, Max: max},
	})
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := limiter.Check(ctx, "burst@example.com", model.RateLimitOtpRequest)
			if err != nil {
				t.Errorf("check: %v", err)
				return
			}
			if res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed > max {
		t.Fatalf("%d requests allowed, max is %d", allowed, max)
	}
	if allowed == 0 {
		t.Fatal("at least one request should have been allowed")
	}

	row, err := store.Get(ctx, "burst@example.com", model.RateLimitOtpRequest)
	if err != nil {
		t.Fatal(err)
	}
	if row.Count > max {
		t.Fatalf("stored count %d exceeds max %d", row.Count, max)
	}
}
