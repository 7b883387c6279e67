package log

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentCashbook, Writer: &buf})

	l.Info("Account created", FieldAccountID, "a1")
	out := buf.String()
	if !strings.Contains(out, "component=cashbook") || !strings.Contains(out, "account_id=a1") {
		t.Fatalf("unexpected output: %s", out)
	}

	buf.Reset()
	l.WithComponent(ComponentStorage).Debug("saved")
	if !strings.Contains(buf.String(), "component=storage") {
		t.Fatalf("component not switched: %s", buf.String())
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Component: ComponentApp, Writer: &buf, Format: "json"})
	l.Info("hello")
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"component":"app"`) {
		t.Fatalf("expected json output, got %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().
		WithOperation(OpCreate).
		WithTransaction("t1", "a1", "income", 500).
		WithError(errors.New("boom"), ErrorTypeStorage)

	if f[FieldOperation] != OpCreate || f[FieldTransactionID] != "t1" || f[FieldAmount] != 500.0 {
		t.Fatalf("unexpected fields %v", f)
	}
	if f[FieldError] != "boom" || f[FieldErrorType] != ErrorTypeStorage {
		t.Fatalf("error fields missing: %v", f)
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Fatalf("slice length mismatch")
	}

	if _, ok := NewFields().WithError(nil, ErrorTypeStorage)[FieldError]; ok {
		t.Fatalf("nil error must not add fields")
	}
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Component: ComponentApp, Writer: &buf})

	var seen *Logger
	h := Middleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/summary", nil))

	if seen == nil || seen.Component() != ComponentHTTP {
		t.Fatalf("handler did not get request logger")
	}
	if rr.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("missing request id header")
	}
	out := buf.String()
	if !strings.Contains(out, "status_code=418") || !strings.Contains(out, "level=WARN") {
		t.Fatalf("unexpected log line: %s", out)
	}
}

func TestFromContextDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if l := FromContext(req.Context()); l == nil || l.Component() != "unknown" {
		t.Fatalf("expected fallback logger")
	}
}
