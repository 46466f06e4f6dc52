package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/procmeta/pkg/bpmn"
	"github.com/matzehuels/procmeta/pkg/errors"
	"github.com/matzehuels/procmeta/pkg/observability"
	"github.com/matzehuels/procmeta/pkg/observability/metrics"
	"github.com/matzehuels/procmeta/pkg/pipeline"
	"github.com/matzehuels/procmeta/pkg/store"
)

const dangling = `<bpmn:definitions xmlns:bpmn="http://www.omg.org/spec/BPMN/20100524/MODEL" id="defs">
  <bpmn:process id="p">
    <bpmn:task id="t">
      <bpmn:dataInputAssociation><bpmn:sourceRef>nowhere</bpmn:sourceRef></bpmn:dataInputAssociation>
    </bpmn:task>
  </bpmn:process>
</bpmn:definitions>`

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	logger := log.New(os.Stderr)
	logger.SetLevel(log.ErrorLevel)
	s := New(pipeline.NewRunner(nil, nil, logger), store.NewMemoryStore(), logger, opts)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func orderBody(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "bpmn", "testdata", "order.bpmn"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

func do(t *testing.T, method, url string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func create(t *testing.T, ts *httptest.Server) *store.Record {
	t.Helper()
	resp := do(t, http.MethodPost, ts.URL+"/v1/documents?filename=order.bpmn", orderBody(t))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d", resp.StatusCode)
	}
	rec := decode[store.Record](t, resp)
	if got := resp.Header.Get("Location"); got != "/v1/documents/"+rec.ID {
		t.Errorf("Location = %q", got)
	}
	return &rec
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, Options{})
	resp := do(t, http.MethodGet, ts.URL+"/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body := decode[map[string]string](t, resp); body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestCreateAndGet(t *testing.T) {
	ts := newTestServer(t, Options{})
	rec := create(t, ts)

	if rec.Filename != "order.bpmn" || rec.NodeCount != 12 {
		t.Errorf("record = %s with %d nodes", rec.Filename, rec.NodeCount)
	}

	resp := do(t, http.MethodGet, ts.URL+"/v1/documents/"+rec.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET status = %d", resp.StatusCode)
	}
	got := decode[store.Record](t, resp)
	if got.ID != rec.ID || got.Metadata.NodeCount() != 12 {
		t.Errorf("GET record = %s with %d nodes", got.ID, got.Metadata.NodeCount())
	}
}

func TestGetNode(t *testing.T) {
	ts := newTestServer(t, Options{})
	rec := create(t, ts)

	resp := do(t, http.MethodGet, ts.URL+"/v1/documents/"+rec.ID+"/nodes/inner", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	node := decode[bpmn.NodeMetadata](t, resp)
	if node.LaneName() != "Sales" || !node.LaneInherited || node.Parent != "sub" {
		t.Errorf("inner = lane %q inherited %v parent %q", node.LaneName(), node.LaneInherited, node.Parent)
	}

	resp = do(t, http.MethodGet, ts.URL+"/v1/documents/"+rec.ID+"/nodes/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing node status = %d", resp.StatusCode)
	}
	if body := decode[errorResponse](t, resp); body.Code != string(errors.ErrCodeNodeNotFound) {
		t.Errorf("code = %s", body.Code)
	}
}

func TestDiagram(t *testing.T) {
	ts := newTestServer(t, Options{})
	rec := create(t, ts)

	resp := do(t, http.MethodGet, ts.URL+"/v1/documents/"+rec.ID+"/diagram?format=dot&lanes=true", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(buf.String(), "digraph G") || !strings.Contains(buf.String(), "cluster_p0_l0") {
		t.Errorf("unexpected DOT:\n%s", buf.String())
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/vnd.graphviz") {
		t.Errorf("Content-Type = %q", ct)
	}

	for _, format := range []string{"png", "json"} {
		resp := do(t, http.MethodGet, ts.URL+"/v1/documents/"+rec.ID+"/diagram?format="+format, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("format %s status = %d, want 400", format, resp.StatusCode)
		}
	}
}

func TestDelete(t *testing.T) {
	ts := newTestServer(t, Options{})
	rec := create(t, ts)

	if resp := do(t, http.MethodDelete, ts.URL+"/v1/documents/"+rec.ID, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodGet, ts.URL+"/v1/documents/"+rec.ID, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET after DELETE status = %d", resp.StatusCode)
	}
}

func TestErrors(t *testing.T) {
	ts := newTestServer(t, Options{})

	tests := []struct {
		name       string
		method     string
		path       string
		body       []byte
		wantStatus int
		wantCode   errors.Code
	}{
		{"empty body", http.MethodPost, "/v1/documents", nil, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"malformed xml", http.MethodPost, "/v1/documents", []byte("<definitions></process>"), http.StatusUnprocessableEntity, errors.ErrCodeInvalidDocument},
		{"dangling reference", http.MethodPost, "/v1/documents", []byte(dangling), http.StatusUnprocessableEntity, errors.ErrCodeUnresolvedReference},
		{"bad filename", http.MethodPost, "/v1/documents?filename=../x.bpmn", []byte(dangling), http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"unknown process", http.MethodPost, "/v1/documents?process=nope", []byte(dangling), http.StatusNotFound, errors.ErrCodeNotFound},
		{"invalid id", http.MethodGet, "/v1/documents/not-a-uuid", nil, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"unknown id", http.MethodGet, "/v1/documents/6f1c2b54-8f0e-4c1a-9d55-1a2b3c4d5e6f", nil, http.StatusNotFound, errors.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, tt.method, ts.URL+tt.path, tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			body := decode[errorResponse](t, resp)
			if body.Code != string(tt.wantCode) {
				t.Errorf("code = %s, want %s", body.Code, tt.wantCode)
			}
			if body.RequestID == "" {
				t.Error("request id missing from error body")
			}
		})
	}
}

func TestIntegrityErrorNamesNode(t *testing.T) {
	ts := newTestServer(t, Options{})
	resp := do(t, http.MethodPost, ts.URL+"/v1/documents?filename=bad.bpmn", []byte(dangling))
	body := decode[errorResponse](t, resp)
	if body.Node != "t" || body.Filename != "bad.bpmn" || body.Element != "bpmn:task" {
		t.Errorf("error body = %+v", body)
	}
}

func TestRequestID(t *testing.T) {
	ts := newTestServer(t, Options{})

	resp := do(t, http.MethodGet, ts.URL+"/healthz", nil)
	if id := resp.Header.Get(RequestIDHeader); id == "" {
		t.Error("request id not assigned")
	}

	const want = "6f1c2b54-8f0e-4c1a-9d55-1a2b3c4d5e6f"
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set(RequestIDHeader, want)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != want {
		t.Errorf("request id = %q, want %q", got, want)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.Install()
	t.Cleanup(observability.Reset)

	ts := newTestServer(t, Options{Metrics: m.Handler()})
	create(t, ts)

	resp := do(t, http.MethodGet, ts.URL+"/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	for _, want := range []string{
		`procmeta_http_requests_total{method="POST",route="/v1/documents",status="201"} 1`,
		"procmeta_processes_resolved_total",
	} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code errors.Code
		want int
	}{
		{errors.ErrCodeUnresolvedReference, http.StatusUnprocessableEntity},
		{errors.ErrCodeMalformedBounds, http.StatusUnprocessableEntity},
		{errors.ErrCodeInvalidDocument, http.StatusUnprocessableEntity},
		{errors.ErrCodeNotFound, http.StatusNotFound},
		{errors.ErrCodeNodeNotFound, http.StatusNotFound},
		{errors.ErrCodeInvalidInput, http.StatusBadRequest},
		{errors.ErrCodeUnsupported, http.StatusBadRequest},
		{errors.ErrCodeTimeout, http.StatusGatewayTimeout},
		{errors.ErrCodeNetwork, http.StatusBadGateway},
		{errors.ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(errors.New(tt.code, "x")); got != tt.want {
			t.Errorf("statusFor(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}
