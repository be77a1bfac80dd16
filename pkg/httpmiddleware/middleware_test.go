package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrap_Order(t *testing.T) {
	var calls []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls = append(calls, "handler")
	}), mark("outer"), mark("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, calls)
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		reuse    bool
	}{
		{name: "generated when absent", incoming: "", reuse: false},
		{name: "reused when valid", incoming: "abc-123", reuse: true},
		{name: "replaced when not printable", incoming: "bad\x01id", reuse: false},
		{name: "replaced when too long", incoming: strings.Repeat("a", 129), reuse: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = RequestIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			require.NotEmpty(t, seen)
			assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
			if tt.reuse {
				assert.Equal(t, tt.incoming, seen)
			} else {
				assert.NotEqual(t, tt.incoming, seen)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}), InjectLogger(zap.New(core)), Recovery())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":{"kind":"internal","message":"internal error"}}`, w.Body.String())
	require.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}

func TestInjectLoggerAndLogRequests(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	h := Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zctx.From(r.Context()).Info("inside")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}), RequestID(), InjectLogger(zap.New(core)), LogRequests())

	req := httptest.NewRequest(http.MethodPost, "/api/products", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	inside := logs.FilterMessage("inside").All()
	require.Len(t, inside, 1)
	assert.Equal(t, "req-1", inside[0].ContextMap()["request_id"])

	reqLogs := logs.FilterMessage("Request").All()
	require.Len(t, reqLogs, 1)
	fields := reqLogs[0].ContextMap()
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.Equal(t, int64(len("short and stout")), fields["bytes"])
	assert.Equal(t, "/api/products", fields["path"])
	assert.Equal(t, zapcore.InfoLevel, reqLogs[0].Level)
}

func TestLogRequests_ProbesAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}),
		InjectLogger(zap.New(core)), LogRequests())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))

	reqLogs := logs.FilterMessage("Request").All()
	require.Len(t, reqLogs, 1)
	assert.Equal(t, zapcore.DebugLevel, reqLogs[0].Level)
	assert.Equal(t, int64(http.StatusOK), reqLogs[0].ContextMap()["status"])
}
