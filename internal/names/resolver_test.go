package names

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mcstats/exporter/internal/models"
)

const testID = "069a79f4-44e9-4726-a5be-fca90e38aaf5"

// MockLookup counts remote lookups
type MockLookup struct {
	LookupFunc func(ctx context.Context, id string) (string, error)
	calls      atomic.Int32
}

func (m *MockLookup) LookupName(ctx context.Context, id string) (string, error) {
	m.calls.Add(1)
	if m.LookupFunc != nil {
		return m.LookupFunc(ctx, id)
	}
	return "Notch", nil
}

func TestResolve_CacheHitSkipsLookup(t *testing.T) {
	lookup := &MockLookup{}
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "lookups_total"}, []string{"result"})
	r := NewResolver(lookup, lookups, zap.NewNop())

	for i := 0; i < 2; i++ {
		name, err := r.Resolve(context.Background(), testID)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if name != "Notch" {
			t.Errorf("name = %q, want Notch", name)
		}
	}

	if got := lookup.calls.Load(); got != 1 {
		t.Errorf("remote lookups = %d, want 1", got)
	}
	if got := testutil.ToFloat64(lookups.WithLabelValues("hit")); got != 1 {
		t.Errorf("hit count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(lookups.WithLabelValues("miss")); got != 1 {
		t.Errorf("miss count = %v, want 1", got)
	}
}

func TestResolve_FailureIsNotCached(t *testing.T) {
	fail := true
	lookup := &MockLookup{
		LookupFunc: func(ctx context.Context, id string) (string, error) {
			if fail {
				return "", errors.New("directory down")
			}
			return "jeb_", nil
		},
	}
	r := NewResolver(lookup, nil, zap.NewNop())

	_, err := r.Resolve(context.Background(), testID)
	if !errors.Is(err, models.ErrNameNotFound) {
		t.Fatalf("err = %v, want ErrNameNotFound", err)
	}
	if r.Len() != 0 {
		t.Errorf("cache size = %d after failure, want 0", r.Len())
	}

	fail = false
	name, err := r.Resolve(context.Background(), testID)
	if err != nil {
		t.Fatalf("Resolve after recovery failed: %v", err)
	}
	if name != "jeb_" {
		t.Errorf("name = %q, want jeb_", name)
	}
	if got := lookup.calls.Load(); got != 2 {
		t.Errorf("remote lookups = %d, want 2", got)
	}
}

func TestResolve_EmptyNameIsNotFound(t *testing.T) {
	lookup := &MockLookup{
		LookupFunc: func(ctx context.Context, id string) (string, error) { return "", nil },
	}
	r := NewResolver(lookup, nil, zap.NewNop())

	if _, err := r.Resolve(context.Background(), testID); !errors.Is(err, models.ErrNameNotFound) {
		t.Errorf("err = %v, want ErrNameNotFound", err)
	}
}

func TestResolve_LookupDoesNotHoldLock(t *testing.T) {
	release := make(chan struct{})
	lookup := &MockLookup{
		LookupFunc: func(ctx context.Context, id string) (string, error) {
			if id == "slow" {
				<-release
			}
			return "name-" + id, nil
		},
	}
	r := NewResolver(lookup, nil, zap.NewNop())

	if _, err := r.Resolve(context.Background(), "fast"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.Resolve(context.Background(), "slow")
	}()

	done := make(chan struct{})
	go func() {
		r.Resolve(context.Background(), "fast")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cache hit blocked behind a slow remote lookup")
	}

	close(release)
	wg.Wait()
}

func TestResolve_ConcurrentMisses(t *testing.T) {
	lookup := &MockLookup{}
	r := NewResolver(lookup, nil, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Resolve(context.Background(), testID); err != nil {
				t.Errorf("Resolve failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if r.Len() != 1 {
		t.Errorf("cache size = %d, want 1", r.Len())
	}
}

func TestMojangClient_LookupName(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantName string
		wantErr  bool
	}{
		{"Profile object", http.StatusOK, `{"id":"069a79f444e94726a5befca90e38aaf5","name":"Notch"}`, "Notch", false},
		{"Name history uses last entry", http.StatusOK, `[{"name":"Old"},{"name":"New","changedToAt":1414059749000}]`, "New", false},
		{"Empty history", http.StatusOK, `[]`, "", true},
		{"No content", http.StatusNoContent, ``, "", true},
		{"Not found", http.StatusNotFound, `{"error":"nope"}`, "", true},
		{"Server error", http.StatusInternalServerError, `boom`, "", true},
		{"Malformed body", http.StatusOK, `{"name":`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewMojangClient(srv.URL+"/profile/", time.Second)
			name, err := c.LookupName(context.Background(), testID)

			if gotPath != "/profile/069a79f444e94726a5befca90e38aaf5" {
				t.Errorf("path = %q, want dashes stripped", gotPath)
			}
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got name %q", name)
				}
				return
			}
			if err != nil {
				t.Fatalf("LookupName failed: %v", err)
			}
			if name != tt.wantName {
				t.Errorf("name = %q, want %q", name, tt.wantName)
			}
		})
	}
}

func TestMojangClient_InvalidID(t *testing.T) {
	c := NewMojangClient("http://127.0.0.1:0", time.Second)
	if _, err := c.LookupName(context.Background(), "not-a-uuid"); err == nil {
		t.Error("expected error for invalid id")
	}
}

// MockNameStore implements NameStore in memory
type MockNameStore struct {
	Values  map[string]string
	GetErr  error
	SetErr  error
	SetTTLs map[string]time.Duration
}

func NewMockNameStore() *MockNameStore {
	return &MockNameStore{
		Values:  make(map[string]string),
		SetTTLs: make(map[string]time.Duration),
	}
}

func (m *MockNameStore) Get(ctx context.Context, key string) *redis.StringCmd {
	if m.GetErr != nil {
		return redis.NewStringResult("", m.GetErr)
	}
	v, ok := m.Values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *MockNameStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if m.SetErr != nil {
		return redis.NewStatusResult("", m.SetErr)
	}
	m.Values[key] = value.(string)
	m.SetTTLs[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestRedisDirectory_WritesThrough(t *testing.T) {
	store := NewMockNameStore()
	fallback := &MockLookup{}
	dir := NewRedisDirectory(store, fallback, time.Hour, zap.NewNop())

	name, err := dir.LookupName(context.Background(), testID)
	if err != nil {
		t.Fatalf("LookupName failed: %v", err)
	}
	if name != "Notch" {
		t.Errorf("name = %q, want Notch", name)
	}
	if store.Values[nameKey(testID)] != "Notch" {
		t.Errorf("directory not populated: %v", store.Values)
	}
	if store.SetTTLs[nameKey(testID)] != time.Hour {
		t.Errorf("ttl = %v, want 1h", store.SetTTLs[nameKey(testID)])
	}

	// Second lookup is served by the directory
	if _, err := dir.LookupName(context.Background(), testID); err != nil {
		t.Fatalf("LookupName failed: %v", err)
	}
	if got := fallback.calls.Load(); got != 1 {
		t.Errorf("fallback lookups = %d, want 1", got)
	}
}

func TestRedisDirectory_StoreErrorsFallBack(t *testing.T) {
	store := NewMockNameStore()
	store.GetErr = errors.New("connection refused")
	store.SetErr = errors.New("connection refused")
	dir := NewRedisDirectory(store, &MockLookup{}, time.Hour, zap.NewNop())

	name, err := dir.LookupName(context.Background(), testID)
	if err != nil {
		t.Fatalf("LookupName failed: %v", err)
	}
	if name != "Notch" {
		t.Errorf("name = %q, want Notch", name)
	}
}

func TestRedisDirectory_FallbackError(t *testing.T) {
	store := NewMockNameStore()
	fallback := &MockLookup{
		LookupFunc: func(ctx context.Context, id string) (string, error) { return "", errNoProfile },
	}
	dir := NewRedisDirectory(store, fallback, time.Hour, zap.NewNop())

	if _, err := dir.LookupName(context.Background(), testID); !errors.Is(err, errNoProfile) {
		t.Errorf("err = %v, want errNoProfile", err)
	}
	if len(store.Values) != 0 {
		t.Errorf("failed lookup was written to the directory: %v", store.Values)
	}
}
