package httphost

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"modelshim/internal/bridge"
	"modelshim/internal/config"
	"modelshim/pkg/types"
)

type fakeHandler struct {
	out     []bridge.Response
	err     error
	gotBody string
	gotCT   string
	calls   int
}

func (f *fakeHandler) Handle(batch []bridge.Request, rc bridge.RequestContext) ([]bridge.Response, error) {
	f.calls++
	if len(batch) > 0 {
		f.gotBody = string(batch[0].Body)
	}
	f.gotCT = rc.ResponseContentType(0)
	return f.out, f.err
}

func (f *fakeHandler) Initialized() bool { return f.calls > 0 }

func staticFactory(h Handler) Factory {
	return func() (Handler, error) { return h, nil }
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func invoke(body string, headers map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/invocations", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func TestPing(t *testing.T) {
	mux := NewMux(staticFactory(&fakeHandler{}), Options{})
	before := testutil.ToFloat64(requestsTotal.WithLabelValues("/ping", "GET", "200"))
	w := do(t, mux, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("ping: status=%d body=%q", w.Code, w.Body.String())
	}
	after := testutil.ToFloat64(requestsTotal.WithLabelValues("/ping", "GET", "200"))
	if after != before+1 {
		t.Fatalf("requests_total: before=%v after=%v", before, after)
	}
}

func TestInvocationsRoundTrip(t *testing.T) {
	fh := &fakeHandler{out: []bridge.Response{{Body: []byte("1\n2\n"), ContentType: "text/csv"}}}
	mux := NewMux(staticFactory(fh), Options{})
	w := do(t, mux, invoke("a,b", map[string]string{"Accept": "text/csv", "Content-Type": "application/json"}))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if w.Body.String() != "1\n2\n" {
		t.Fatalf("body=%q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("content-type=%q", ct)
	}
	if fh.gotBody != "a,b" || fh.gotCT != "text/csv" {
		t.Fatalf("handler saw body=%q ct=%q", fh.gotBody, fh.gotCT)
	}
}

func TestInvocationsContentTypeSelection(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"accept wins", map[string]string{"Accept": "application/x-npy", "Content-Type": "text/csv"}, "application/x-npy"},
		{"content type fallback", map[string]string{"Content-Type": "text/csv"}, "text/csv"},
		{"wildcard accept", map[string]string{"Accept": "*/*", "Content-Type": "text/plain"}, "text/plain"},
		{"default", nil, "application/json"},
	}
	for _, c := range cases {
		fh := &fakeHandler{out: []bridge.Response{{Body: []byte("{}")}}}
		mux := NewMux(staticFactory(fh), Options{})
		w := do(t, mux, invoke("{}", c.headers))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status=%d", c.name, w.Code)
		}
		if fh.gotCT != c.want {
			t.Fatalf("%s: handler ct=%q want %q", c.name, fh.gotCT, c.want)
		}
		// empty response content type falls back to the requested one
		if got := w.Header().Get("Content-Type"); got != c.want {
			t.Fatalf("%s: response ct=%q want %q", c.name, got, c.want)
		}
	}
}

func TestInvocationsTransformError(t *testing.T) {
	fh := &fakeHandler{err: errors.New("bad input")}
	mux := NewMux(staticFactory(fh), Options{})
	before := testutil.ToFloat64(invocationsTotal.WithLabelValues(outcomeTransformError))
	w := do(t, mux, invoke("x", nil))
	if got := testutil.ToFloat64(invocationsTotal.WithLabelValues(outcomeTransformError)); got != before+1 {
		t.Fatalf("transform_error outcomes: before=%v after=%v", before, got)
	}
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Error != "bad input" || body.Code != http.StatusInternalServerError {
		t.Fatalf("body=%+v", body)
	}
}

func TestInvocationsNoContent(t *testing.T) {
	mux := NewMux(staticFactory(&fakeHandler{}), Options{})
	w := do(t, mux, invoke("x", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestFactoryCalledOnce(t *testing.T) {
	var builds atomic.Int32
	fh := &fakeHandler{out: []bridge.Response{{Body: []byte("ok")}}}
	mux := NewMux(func() (Handler, error) {
		builds.Add(1)
		return fh, nil
	}, Options{})

	// the ping probe does not build the bridge
	do(t, mux, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if n := builds.Load(); n != 0 {
		t.Fatalf("builds after ping=%d", n)
	}
	for i := 0; i < 3; i++ {
		if w := do(t, mux, invoke("x", nil)); w.Code != http.StatusOK {
			t.Fatalf("status=%d", w.Code)
		}
	}
	if n := builds.Load(); n != 1 {
		t.Fatalf("builds=%d", n)
	}
}

func TestFactoryError(t *testing.T) {
	mux := NewMux(func() (Handler, error) { return nil, errors.New("no bridge") }, Options{})
	w := do(t, mux, invoke("x", nil))
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), "no bridge") {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestInvocationsBodyTooLarge(t *testing.T) {
	fh := &fakeHandler{}
	mux := NewMux(staticFactory(fh), Options{MaxBodyBytes: 4})
	w := do(t, mux, invoke("123456789", nil))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status=%d", w.Code)
	}
	if fh.calls != 0 {
		t.Fatalf("handler called for oversized body")
	}
}

func TestBridgeUnknownFrameworkIs500(t *testing.T) {
	f := BridgeFactory(bridge.Options{
		Env:    config.ServingEnv{ModuleName: "user", FrameworkModule: "tensorflow:serve"},
		Loader: bridge.StaticLoader{"user": bridge.Symbols{}},
	})
	mux := NewMux(f, Options{})
	before := testutil.ToFloat64(invocationsTotal.WithLabelValues(outcomeInitError))
	w := do(t, mux, invoke("x", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	if got := testutil.ToFloat64(invocationsTotal.WithLabelValues(outcomeInitError)); got != before+1 {
		t.Fatalf("init_error outcomes: before=%v after=%v", before, got)
	}
	if !strings.Contains(w.Body.String(), "tensorflow") {
		t.Fatalf("body=%s", w.Body.String())
	}
}

func TestBridgeGenericRoundTrip(t *testing.T) {
	mod := bridge.Symbols{
		bridge.TransformFnSymbol: bridge.TransformFn(func(model any, body, contentType, accept string) ([]byte, string, error) {
			return []byte(strings.ToUpper(body)), "", nil
		}),
	}
	f := BridgeFactory(bridge.Options{
		Env:    config.ServingEnv{ModuleName: "user"},
		Loader: bridge.StaticLoader{"user": mod},
	})
	mux := NewMux(f, Options{})
	w := do(t, mux, invoke("hello", map[string]string{"Content-Type": "text/plain"}))
	if w.Code != http.StatusOK || w.Body.String() != "HELLO" {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/plain" {
		t.Fatalf("content-type=%q", ct)
	}
}

func TestBridgeInvalidUTF8IsBadRequest(t *testing.T) {
	called := false
	mod := bridge.Symbols{
		bridge.TransformFnSymbol: bridge.TransformFn(func(model any, body, contentType, accept string) ([]byte, string, error) {
			called = true
			return []byte(body), "", nil
		}),
	}
	mux := NewMux(BridgeFactory(bridge.Options{
		Env:    config.ServingEnv{ModuleName: "user"},
		Loader: bridge.StaticLoader{"user": mod},
	}), Options{})
	before := testutil.ToFloat64(invocationsTotal.WithLabelValues(outcomeBadRequest))
	w := do(t, mux, invoke("\xff\xfe", map[string]string{"Content-Type": "text/plain"}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if called {
		t.Fatalf("transform called with invalid UTF-8")
	}
	if got := testutil.ToFloat64(invocationsTotal.WithLabelValues(outcomeBadRequest)); got != before+1 {
		t.Fatalf("bad_request outcomes: before=%v after=%v", before, got)
	}
}

func TestCORSPreflight(t *testing.T) {
	mux := NewMux(staticFactory(&fakeHandler{}), Options{CORS: CORSOptions{
		Enabled:        true,
		AllowedOrigins: []string{"https://example.com"},
		AllowedMethods: []string{http.MethodPost},
	}})
	req := httptest.NewRequest(http.MethodOptions, "/invocations", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := do(t, mux, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Fatalf("allow-origin=%q status=%d", got, w.Code)
	}
}

func TestCORSDisabledByDefault(t *testing.T) {
	mux := NewMux(staticFactory(&fakeHandler{}), Options{})
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://example.com")
	w := do(t, mux, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow-origin=%q", got)
	}
}

func TestSwaggerDocs(t *testing.T) {
	mux := NewMux(staticFactory(&fakeHandler{}), Options{Swagger: true})
	w := do(t, mux, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var doc map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("doc.json: %v", err)
	}
	paths, _ := doc["paths"].(map[string]any)
	if _, ok := paths["/invocations"]; !ok {
		t.Fatalf("paths=%v", paths)
	}

	off := NewMux(staticFactory(&fakeHandler{}), Options{})
	if w := do(t, off, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil)); w.Code != http.StatusNotFound {
		t.Fatalf("swagger disabled: status=%d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mux := NewMux(staticFactory(&fakeHandler{}), Options{})
	do(t, mux, httptest.NewRequest(http.MethodGet, "/ping", nil))
	w := do(t, mux, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "modelshim_bridge_requests_total") {
		t.Fatalf("metrics output missing bridge counter")
	}
}
