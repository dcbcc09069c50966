// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package audit

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path"
	"runtime/trace"
	"strconv"
	"time"

	servertiming "github.com/mitchellh/go-server-timing"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Span represents an HTTP exchange in flight.
type Span struct {
	// set by Begin and End
	task     *trace.Task
	start    time.Time
	duration time.Duration
	metric   *servertiming.Metric

	Destination TrafficDestination
	RequestID   string
	TraceID     string // set by Begin from an adopted W3C trace context
	Method      string
	URL         string
	StatusCode  int
	Cached      bool
	Error       error
	Body        []byte // only used for response saving

	savedAs string
}

// TrafficDestination describes who is on the other end of a span.
type TrafficDestination string

const (
	// ToUser marks a response served to a browser.
	ToUser TrafficDestination = "user"
	// ToBackend marks a request made to the API server.
	ToBackend TrafficDestination = "backend"

	responseFilePermissions = 0o600
)

var (
	// SaveResponses indicates whether backend response bodies are written to ResponseDirectory.
	SaveResponses bool

	// ResponseDirectory is where saved response bodies go, one file per request ID.
	ResponseDirectory string
)

// ServerTimingName encodes the span as a Server-Timing metric name.
//
// Format: destination$METHOD$base64url(URL)
func (span Span) ServerTimingName() string {
	return string(span.Destination) + "$" + span.Method + "$" + base64.RawURLEncoding.EncodeToString([]byte(span.URL))
}

// Begin starts the trace task and, when the context carries a Server-Timing
// header, a metric for this span.
func (span *Span) Begin(ctx context.Context) context.Context {
	span.start = time.Now()

	if sc := oteltrace.SpanContextFromContext(ctx); sc.HasTraceID() {
		span.TraceID = sc.TraceID().String()
	}

	ctx, span.task = trace.NewTask(ctx, "http."+string(span.Destination))

	if timing := servertiming.FromContext(ctx); timing != nil {
		span.metric = timing.NewMetric(span.ServerTimingName())
		span.metric.Extra = map[string]string{
			"start": strconv.FormatFloat(float64(span.start.UnixNano())/float64(time.Millisecond), 'f', -1, 64),
		}
	}

	return ctx
}

// End records the duration. Calling it more than once is harmless.
func (span *Span) End() {
	if span.task == nil {
		return
	}

	span.duration = time.Since(span.start)
	span.task.End()

	if span.metric != nil {
		span.metric.Duration = span.duration
	}

	span.task = nil
}

// Duration returns the time between Begin and End.
func (span Span) Duration() time.Duration {
	return span.duration
}

// Log writes the span at debug level and saves the body when enabled.
func (span Span) Log() {
	if span.Destination == ToBackend && !span.Cached && len(span.Body) > 0 && SaveResponses {
		filename := path.Join(ResponseDirectory, span.RequestID)

		if err := os.WriteFile(filename, span.Body, responseFilePermissions); err != nil {
			log.Err(err).
				Str("request_id", span.RequestID).
				Msg("Failed to save response")
		} else {
			span.savedAs = filename
		}
	}

	level := zerolog.DebugLevel
	if span.Error != nil {
		level = zerolog.WarnLevel
	}

	event := log.WithLevel(level).
		Str("sys", "http").
		Str("method", span.Method).
		Str("url", span.URL).
		Int("status_code", span.StatusCode).
		Str("len", humanizeSize(len(span.Body))).
		Dur("dur", span.duration).
		Str("destination", string(span.Destination)).
		Str("request_id", span.RequestID)

	if span.TraceID != "" {
		event.Str("trace_id", span.TraceID)
	}

	if span.Cached {
		event.Bool("cached", true)
	}

	if span.savedAs != "" {
		event.Str("response_filename", span.savedAs)
	}

	if span.Error != nil {
		event.Err(span.Error)
	}

	event.Send()
}

const (
	bytesInKB = 1024
	bytesInMB = bytesInKB * bytesInKB
	bytesInGB = bytesInMB * bytesInKB
)

func humanizeSize(x int) string {
	switch {
	case x < bytesInKB:
		return strconv.Itoa(x)
	case x < bytesInMB:
		return fmt.Sprintf("%.2fK", float64(x)/bytesInKB)
	case x < bytesInGB:
		return fmt.Sprintf("%.2fM", float64(x)/bytesInMB)
	default:
		return fmt.Sprintf("%.2fG", float64(x)/bytesInGB)
	}
}
