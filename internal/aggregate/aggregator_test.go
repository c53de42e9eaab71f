package aggregate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/metricmind/performancecore-backend/internal/sources"
	"github.com/metricmind/performancecore-backend/pkg/enums"
	"github.com/metricmind/performancecore-backend/pkg/logger"
)

type stubSource struct {
	name    string
	metrics sources.Metrics
	err     error
	delay   time.Duration
}

func (s stubSource) Name() string { return s.name }

func (s stubSource) FetchLatest(ctx context.Context, _ uuid.UUID) (sources.Metrics, error) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.metrics, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test"})
}

func TestAggregateIsAdditiveAcrossSources(t *testing.T) {
	agg := NewAggregator([]sources.Source{
		stubSource{name: "a", metrics: sources.Metrics{enums.MetricImpressions: 100}},
		stubSource{name: "b", metrics: sources.Metrics{enums.MetricImpressions: 50}},
	}, testLogger(), 0)

	totals := agg.Aggregate(context.Background(), uuid.New())
	if totals.Impressions != 150 {
		t.Fatalf("expected 150 impressions, got %d", totals.Impressions)
	}
}

func TestAggregateToleratesFailedSource(t *testing.T) {
	agg := NewAggregator([]sources.Source{
		stubSource{name: "ads_import", err: errors.New("provider down")},
		stubSource{name: "custom_integration", metrics: sources.Metrics{
			enums.MetricSpend:  45.30,
			enums.MetricClicks: 10,
		}},
	}, testLogger(), 0)

	totals := agg.Aggregate(context.Background(), uuid.New())
	if totals.Clicks != 10 {
		t.Fatalf("expected 10 clicks, got %d", totals.Clicks)
	}
	if got := totals.Spend.StringFixed(2); got != "45.30" {
		t.Fatalf("expected spend 45.30, got %s", got)
	}
	if totals.Impressions != 0 {
		t.Fatalf("expected 0 impressions, got %d", totals.Impressions)
	}
}

func TestAggregateRoundsCountsAndSpend(t *testing.T) {
	agg := NewAggregator([]sources.Source{
		stubSource{name: "a", metrics: sources.Metrics{
			enums.MetricEngagements: 12.6,
			enums.MetricSpend:       45.305,
		}},
	}, testLogger(), 0)

	totals := agg.Aggregate(context.Background(), uuid.New())
	if totals.Engagements != 13 {
		t.Fatalf("expected engagements 13, got %d", totals.Engagements)
	}
	if got := totals.Spend.StringFixed(2); got != "45.31" {
		t.Fatalf("expected spend 45.31, got %s", got)
	}
}

func TestAggregateBoundsHungSource(t *testing.T) {
	agg := NewAggregator([]sources.Source{
		stubSource{name: "hung", delay: 5 * time.Second, metrics: sources.Metrics{enums.MetricClicks: 99}},
		stubSource{name: "fast", metrics: sources.Metrics{enums.MetricClicks: 1}},
	}, testLogger(), 50*time.Millisecond)

	start := time.Now()
	totals := agg.Aggregate(context.Background(), uuid.New())
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("aggregate did not respect source timeout, took %s", elapsed)
	}
	if totals.Clicks != 1 {
		t.Fatalf("expected only the fast source to contribute, got %d clicks", totals.Clicks)
	}
}

func TestAggregateEmptySourcesIsZero(t *testing.T) {
	agg := NewAggregator(nil, testLogger(), 0)

	totals := agg.Aggregate(context.Background(), uuid.New())
	if totals.HasActivity() {
		t.Fatalf("expected zero totals to fail the gate: %+v", totals)
	}
}

func TestHasActivityGate(t *testing.T) {
	zero := Totals{}
	if zero.HasActivity() {
		t.Fatalf("all-zero totals should not pass the gate")
	}

	spendOnly := NewAggregator([]sources.Source{
		stubSource{name: "a", metrics: sources.Metrics{enums.MetricSpend: 0.01}},
	}, testLogger(), 0).Aggregate(context.Background(), uuid.New())
	if !spendOnly.HasActivity() {
		t.Fatalf("spend of 0.01 should pass the gate")
	}
}
