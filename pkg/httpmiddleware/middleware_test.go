package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
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

	h := Wrap(okHandler(), mark("outer"), mark("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner"}, calls)
}

func TestRecovery(t *testing.T) {
	h := Recovery()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("vase dropped")
	}))

	w := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/product", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":500,"message":"internal server error"}`, w.Body.String())
}

func TestRecovery_AbortHandler(t *testing.T) {
	h := Recovery()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		reuse    bool
	}{
		{name: "reused", incoming: "req-abc-123", reuse: true},
		{name: "missing", incoming: ""},
		{name: "too long", incoming: strings.Repeat("x", 129)},
		{name: "control char", incoming: "bad\nid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = RequestIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(HeaderRequestID, tt.incoming)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			got := w.Header().Get(HeaderRequestID)
			assert.Equal(t, got, seen)
			if tt.reuse {
				assert.Equal(t, tt.incoming, got)
			} else {
				assert.Len(t, got, 36)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		cfg        CORSConfig
		method     string
		headers    map[string]string
		wantCode   int
		wantOrigin string
		wantExtra  map[string]string
	}{
		{
			name:       "wildcard simple request",
			cfg:        CORSConfig{Origins: []string{"*"}},
			method:     http.MethodGet,
			headers:    map[string]string{"Origin": "https://shop.example"},
			wantCode:   http.StatusOK,
			wantOrigin: "*",
		},
		{
			name:     "listed origin preflight",
			cfg:      CORSConfig{Origins: []string{"https://Shop.example"}, Headers: []string{"Content-Type"}, MaxAge: 600},
			method:   http.MethodOptions,
			headers:  map[string]string{"Origin": "https://shop.example", "Access-Control-Request-Method": "POST"},
			wantCode: http.StatusNoContent,
			// Configured casing is echoed.
			wantOrigin: "https://Shop.example",
			wantExtra: map[string]string{
				"Access-Control-Allow-Headers": "Content-Type",
				"Access-Control-Max-Age":       "600",
				"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
			},
		},
		{
			name:     "unlisted origin",
			cfg:      CORSConfig{Origins: []string{"https://shop.example"}},
			method:   http.MethodGet,
			headers:  map[string]string{"Origin": "https://evil.example"},
			wantCode: http.StatusOK,
		},
		{
			name:       "credentials echo origin",
			cfg:        CORSConfig{Origins: []string{"*"}, AllowCredentials: true},
			method:     http.MethodGet,
			headers:    map[string]string{"Origin": "https://shop.example"},
			wantCode:   http.StatusOK,
			wantOrigin: "https://shop.example",
			wantExtra:  map[string]string{"Access-Control-Allow-Credentials": "true"},
		},
		{
			name:       "preflight echoes requested headers",
			cfg:        CORSConfig{},
			method:     http.MethodOptions,
			headers:    map[string]string{"Origin": "https://a.example", "Access-Control-Request-Method": "POST", "Access-Control-Request-Headers": "X-Request-ID"},
			wantCode:   http.StatusNoContent,
			wantOrigin: "*",
			wantExtra:  map[string]string{"Access-Control-Allow-Headers": "X-Request-ID"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CORS(tt.cfg)(okHandler())
			req := httptest.NewRequest(tt.method, "/api/product", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			for k, v := range tt.wantExtra {
				assert.Equal(t, v, w.Header().Get(k), k)
			}
		})
	}
}

func TestLogRequests(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	lg := zap.New(core)

	r := chi.NewRouter()
	r.Use(LogRequests(), Labeler())
	r.Get("/api/order/{orderId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	h := Wrap(r, InjectLogger(lg), RequestID())

	req := httptest.NewRequest(http.MethodGet, "/api/order/ord-1", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, zapcore.WarnLevel, e.Level)
	fields := e.ContextMap()
	assert.Equal(t, "/api/order/{orderId}", fields["route"])
	assert.Equal(t, int64(http.StatusNotFound), fields["status"])
	assert.Equal(t, "req-1", fields["request_id"])
}

func TestInjectLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := InjectLogger(zap.New(core))(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		zctx.From(r.Context()).Info("hello")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, 1, logs.FilterMessage("hello").Len())
}
