package curve

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/curvelab/yieldstress/pkg/config"
	"github.com/curvelab/yieldstress/pkg/logger"
	"github.com/curvelab/yieldstress/pkg/redis"
)

type stubFetcher struct {
	history *History
	err     error
	calls   int
}

func (s *stubFetcher) FetchHistory(ctx context.Context, from, to time.Time) (*History, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.history, nil
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "json", Env: "development"})
}

func disabledCache() *redis.Cache {
	client, _ := redis.New(&config.Config{}) // redis disabled
	return redis.NewCache(client, "yieldstress")
}

func TestProviderFetchesUpstream(t *testing.T) {
	want := &History{
		Dates: []time.Time{day(0)},
		Rates: [][]float64{fullRow(1.5)},
	}
	fetcher := &stubFetcher{history: want}

	provider := NewProvider(fetcher, nil, disabledCache(), testLogger())

	got, err := provider.History(context.Background(), day(0), day(1))
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	if got.Len() != 1 {
		t.Errorf("History() length = %d, want 1", got.Len())
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher called %d times, want 1", fetcher.calls)
	}
}

func TestProviderUpstreamErrorWithoutArchive(t *testing.T) {
	wantErr := errors.New("ecb unreachable")
	fetcher := &stubFetcher{err: wantErr}

	provider := NewProvider(fetcher, nil, disabledCache(), testLogger())

	_, err := provider.History(context.Background(), day(0), day(1))
	if !errors.Is(err, wantErr) {
		t.Errorf("History() error = %v, want %v", err, wantErr)
	}
}

func TestProviderInvalidateWithDisabledCache(t *testing.T) {
	provider := NewProvider(&stubFetcher{}, nil, disabledCache(), testLogger())

	if err := provider.Invalidate(context.Background()); err != nil {
		t.Errorf("Invalidate() failed: %v", err)
	}
}
