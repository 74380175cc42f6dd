package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/smartq/internal/actorctx"
	"github.com/geocoder89/smartq/internal/domain/user"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestLogger_AddsTraceIDsInsideSpan(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod")

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	log.InfoContext(ctx, "hello")
	span.End()

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not json: %v", err)
	}
	if rec["trace_id"] != span.SpanContext().TraceID().String() {
		t.Fatalf("missing trace_id, got %v", rec)
	}
	if _, ok := rec["span_id"]; !ok {
		t.Fatalf("missing span_id, got %v", rec)
	}
}

func TestLogger_AddsRequestAndActorIDs(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod")

	ctx := actorctx.WithRequestID(context.Background(), "req-9")
	ctx = actorctx.WithUser(ctx, user.User{ID: "u-7"})
	log.InfoContext(ctx, "hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not json: %v", err)
	}
	if rec["request_id"] != "req-9" || rec["actor_id"] != "u-7" {
		t.Fatalf("missing request-scoped ids, got %v", rec)
	}
	if _, ok := rec["trace_id"]; ok {
		t.Fatalf("no span, so no trace_id expected, got %v", rec)
	}
}

func TestLogger_DebugOnlyInDev(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "prod").Debug("quiet")
	if buf.Len() != 0 {
		t.Fatalf("debug should be dropped outside dev")
	}

	newLogger(&buf, "dev").Debug("loud")
	if buf.Len() == 0 {
		t.Fatalf("debug should be written in dev")
	}
}

func TestProm_ObserveDBClassifiesErrors(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	_ = p.ObserveDB("users.save", func() error { return nil })
	_ = p.ObserveDB("users.save", func() error { return errors.New("i/o timeout") })

	if got := testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("users.save", "timeout")); got != 1 {
		t.Fatalf("expected one timeout error, got %v", got)
	}
}

func TestProm_ProviderAndMailCounters(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	p.ObserveProvider("login", "ok", 10*time.Millisecond)
	p.ObserveProvider("login", "rejected", 10*time.Millisecond)
	p.ObserveMail("sent")

	if got := testutil.ToFloat64(p.ProviderResults.WithLabelValues("login", "ok")); got != 1 {
		t.Fatalf("got %v", got)
	}
	if got := testutil.ToFloat64(p.MailResults.WithLabelValues("sent")); got != 1 {
		t.Fatalf("got %v", got)
	}
}

func TestProm_ObserveDBNoRowsIsNotAnError(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	_ = p.ObserveDB("users.find_by_id", func() error { return pgx.ErrNoRows })

	if got := testutil.CollectAndCount(p.DbErrorsTotal); got != 0 {
		t.Fatalf("no rows should not count as a db error, got %d series", got)
	}
}
