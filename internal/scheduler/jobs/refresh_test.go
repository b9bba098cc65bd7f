package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/curvelab/yieldstress/internal/api"
	"github.com/curvelab/yieldstress/internal/curve"
	"github.com/curvelab/yieldstress/pkg/config"
	"github.com/curvelab/yieldstress/pkg/logger"
	"github.com/curvelab/yieldstress/pkg/redis"
)

type stubFetcher struct {
	history *curve.History
	err     error
	calls   int
}

func (s *stubFetcher) FetchHistory(ctx context.Context, from, to time.Time) (*curve.History, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.history, nil
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "json", Env: "development"})
}

func newTestProvider(fetcher curve.Fetcher) *curve.Provider {
	client, _ := redis.New(&config.Config{}) // redis disabled
	cache := redis.NewCache(client, "yieldstress")
	return curve.NewProvider(fetcher, nil, cache, testLogger())
}

func fullHistory(rows int) *curve.History {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, rows)
	rates := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		dates[i] = start.AddDate(0, 0, i)
		row := make([]float64, len(curve.Maturities))
		for j := range row {
			row[j] = 2.5
		}
		rates[i] = row
	}
	return &curve.History{Dates: dates, Rates: rates}
}

func TestRefreshJobDefaults(t *testing.T) {
	job := NewCurveRefreshJob(&stubFetcher{}, nil, nil, nil, testLogger(), "")

	if job.Name() != "curve_refresh" {
		t.Errorf("Name() = %q, want curve_refresh", job.Name())
	}
	if job.Schedule() != "0 0 18 * * 1-5" {
		t.Errorf("Schedule() = %q, want weekday default", job.Schedule())
	}
}

func TestRefreshJobScheduleOverride(t *testing.T) {
	job := NewCurveRefreshJob(&stubFetcher{}, nil, nil, nil, testLogger(), "@hourly")

	if job.Schedule() != "@hourly" {
		t.Errorf("Schedule() = %q, want @hourly", job.Schedule())
	}
}

func TestRefreshJobRun(t *testing.T) {
	fetcher := &stubFetcher{history: fullHistory(5)}
	provider := newTestProvider(fetcher)
	job := NewCurveRefreshJob(fetcher, nil, provider, nil, testLogger(), "")

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher called %d times, want 1", fetcher.calls)
	}
}

func TestRefreshJobNoNewData(t *testing.T) {
	fetcher := &stubFetcher{history: &curve.History{}}
	job := NewCurveRefreshJob(fetcher, nil, newTestProvider(fetcher), nil, testLogger(), "")

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed on empty refresh: %v", err)
	}
}

func TestRefreshJobNotifiesSubscribers(t *testing.T) {
	hub := api.NewHub(testLogger())
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Clients() != 1 {
		t.Fatalf("hub has %d clients, want 1", hub.Clients())
	}

	history := fullHistory(5)
	fetcher := &stubFetcher{history: history}
	job := NewCurveRefreshJob(fetcher, nil, newTestProvider(fetcher), hub, testLogger(), "")
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event api.RefreshEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Type != "curve_refresh" {
		t.Errorf("event type = %q, want curve_refresh", event.Type)
	}
	if !event.LatestDate.Equal(history.Dates[4]) {
		t.Errorf("event latest date = %v, want %v", event.LatestDate, history.Dates[4])
	}
}

func TestRefreshJobFetchError(t *testing.T) {
	wantErr := errors.New("ecb unreachable")
	fetcher := &stubFetcher{err: wantErr}
	job := NewCurveRefreshJob(fetcher, nil, newTestProvider(fetcher), nil, testLogger(), "")

	err := job.Run(context.Background())
	if !errors.Is(err, wantErr) {
		t.Errorf("Run() error = %v, want wrapped %v", err, wantErr)
	}
}
