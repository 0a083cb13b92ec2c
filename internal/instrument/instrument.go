package instrument

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Context keys
type ctxKey int

const (
	traceIDKey ctxKey = iota
	parentSpanIDKey
	instrumenterKey
	userIDKey
)

// Instrumenter interface defines the tracing API.
type Instrumenter interface {
	StartSpan(ctx context.Context, source, component, action string) (context.Context, Span)
}

// Span interface represents a timed operation span.
type Span interface {
	End()
	SetStatus(status string)
	SetMetadata(key string, value any)
	SetEntity(entity, recordID string)
	TraceID() string
	SpanID() string
}

func newUUID() string {
	return uuid.New().String()
}

// WithTraceID sets the trace ID in the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID returns the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// WithParentSpanID sets the parent span ID in the context.
func WithParentSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, parentSpanIDKey, spanID)
}

func getParentSpanID(ctx context.Context) string {
	if v, ok := ctx.Value(parentSpanIDKey).(string); ok {
		return v
	}
	return ""
}

// WithInstrumenter sets the instrumenter in the context.
func WithInstrumenter(ctx context.Context, inst Instrumenter) context.Context {
	return context.WithValue(ctx, instrumenterKey, inst)
}

// GetInstrumenter returns the instrumenter from the context,
// or a NoopInstrumenter if none is set.
func GetInstrumenter(ctx context.Context) Instrumenter {
	if v, ok := ctx.Value(instrumenterKey).(Instrumenter); ok {
		return v
	}
	return &NoopInstrumenter{}
}

// WithUserID sets the user ID in the context for instrumentation.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func getUserID(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// Logger returns the standard logger annotated with the request's trace and user.
func Logger(ctx context.Context) *log.Entry {
	entry := log.NewEntry(log.StandardLogger())
	if ctx == nil {
		return entry
	}
	if traceID := GetTraceID(ctx); traceID != "" {
		entry = entry.WithField("trace_id", traceID)
	}
	if uid := getUserID(ctx); uid != "" {
		entry = entry.WithField("user_id", uid)
	}
	return entry
}

// LogInstrumenter writes every finished span as one structured log line.
// Spans slower than the threshold, or ending with status "error", are
// logged at warn level; the rest at debug.
type LogInstrumenter struct {
	logger *log.Logger
	slow   time.Duration
}

// NewInstrumenter creates a LogInstrumenter. A nil logger means the standard logger.
func NewInstrumenter(logger *log.Logger, slow time.Duration) *LogInstrumenter {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &LogInstrumenter{logger: logger, slow: slow}
}

// StartSpan creates a new span and returns the updated context.
func (i *LogInstrumenter) StartSpan(ctx context.Context, source, component, action string) (context.Context, Span) {
	spanID := newUUID()
	span := &LogSpan{
		inst:         i,
		traceID:      GetTraceID(ctx),
		spanID:       spanID,
		parentSpanID: getParentSpanID(ctx),
		userID:       getUserID(ctx),
		source:       source,
		component:    component,
		action:       action,
		startTime:    time.Now(),
		metadata:     make(map[string]any),
	}

	// Child spans reference this span as parent
	ctx = WithParentSpanID(ctx, spanID)
	return ctx, span
}

// LogSpan implements Span with timing and metadata.
type LogSpan struct {
	inst         *LogInstrumenter
	traceID      string
	spanID       string
	parentSpanID string
	userID       string
	source       string
	component    string
	action       string
	entity       string
	recordID     string
	status       string
	startTime    time.Time
	metadata     map[string]any
	mu           sync.Mutex
	ended        bool
}

func (s *LogSpan) TraceID() string { return s.traceID }
func (s *LogSpan) SpanID() string  { return s.spanID }

func (s *LogSpan) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *LogSpan) SetMetadata(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata[key] = value
}

func (s *LogSpan) SetEntity(entity, recordID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entity = entity
	if recordID != "" {
		s.recordID = recordID
	}
}

func (s *LogSpan) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true

	elapsed := time.Since(s.startTime)
	fields := log.Fields{
		"trace_id":    s.traceID,
		"span_id":     s.spanID,
		"source":      s.source,
		"component":   s.component,
		"action":      s.action,
		"duration_ms": float64(elapsed.Microseconds()) / 1000.0,
	}
	if s.parentSpanID != "" {
		fields["parent_span_id"] = s.parentSpanID
	}
	if s.userID != "" {
		fields["user_id"] = s.userID
	}
	if s.entity != "" {
		fields["entity"] = s.entity
	}
	if s.recordID != "" {
		fields["record_id"] = s.recordID
	}
	if s.status != "" {
		fields["status"] = s.status
	}
	for k, v := range s.metadata {
		fields[k] = v
	}

	entry := s.inst.logger.WithFields(fields)
	if s.status == "error" || (s.inst.slow > 0 && elapsed >= s.inst.slow) {
		entry.Warn("span")
		return
	}
	entry.Debug("span")
}
