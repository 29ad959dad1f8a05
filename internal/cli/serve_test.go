package cli

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	errs "github.com/matzehuels/archviz/pkg/errors"
	"github.com/matzehuels/archviz/pkg/icons"
	"github.com/matzehuels/archviz/pkg/observability"
	"github.com/matzehuels/archviz/pkg/render"
)

const webYAML = `
name: Web
nodes:
  - {id: users, label: Users, category: onprem.client, icon: users}
  - {id: app, label: App, category: aws.compute, icon: ec2}
edges:
  - {from: users, to: app}
`

func newTestServer(t *testing.T, engine render.Engine, metrics http.Handler) *httptest.Server {
	t.Helper()
	r := &render.Renderer{Engine: engine, Resolver: icons.Default(), Logger: testCLI().Logger}
	srv := httptest.NewServer(newRouter(r, testCLI().Logger, metrics))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, contentType, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, contentType, strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Errorf("GET /healthz = %d %v", resp.StatusCode, body)
	}
}

func TestServeRender(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		contentType string
		body        string
		wantType    string
		wantPrefix  string
	}{
		{"toml default svg", "", "application/toml", webDoc, "image/svg+xml", "svg:digraph"},
		{"toml png", "?format=png", "", webDoc, "image/png", "png:digraph"},
		{"yaml by content type", "?format=dot", "application/yaml; charset=utf-8", webYAML, "text/vnd.graphviz; charset=utf-8", "dot:digraph"},
		{"yaml by query", "?type=yaml", "text/plain", webYAML, "image/svg+xml", "svg:digraph"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeEngine{}, nil)
			resp := post(t, srv.URL+"/render"+tt.query, tt.contentType, tt.body)

			data, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, body %s", resp.StatusCode, data)
			}
			if got := resp.Header.Get("Content-Type"); got != tt.wantType {
				t.Errorf("Content-Type = %q, want %q", got, tt.wantType)
			}
			if !strings.HasPrefix(string(data), tt.wantPrefix) {
				t.Errorf("body = %.40q, want prefix %q", data, tt.wantPrefix)
			}
		})
	}
}

func TestServeRenderErrors(t *testing.T) {
	badIcon := strings.Replace(webDoc, `icon = "ec2"`, `icon = "does_not_exist"`, 1)

	tests := []struct {
		name       string
		engine     *fakeEngine
		query      string
		body       string
		wantStatus int
		wantCode   errs.Code
	}{
		{"bad format", &fakeEngine{}, "?format=gif", webDoc, http.StatusBadRequest, errs.ErrCodeInvalidFormat},
		{"bad type", &fakeEngine{}, "?type=json", webDoc, http.StatusBadRequest, errs.ErrCodeInvalidFormat},
		{"invalid document", &fakeEngine{}, "", `name = "x"` + "\nbogus = 1\n", http.StatusBadRequest, errs.ErrCodeInvalidDocument},
		{"dangling edge", &fakeEngine{}, "", webDoc + "\n[[edges]]\nfrom = \"users\"\nto = \"ghost\"\n", http.StatusBadRequest, errs.ErrCodeDanglingReference},
		{"unknown icon", &fakeEngine{}, "", badIcon, http.StatusUnprocessableEntity, errs.ErrCodeIconResolution},
		{"engine failure", &fakeEngine{err: errors.New("boom")}, "", webDoc, http.StatusInternalServerError, errs.ErrCodeRender},
		{"too large", &fakeEngine{}, "", strings.Repeat("#", maxDocumentBytes+1), http.StatusRequestEntityTooLarge, errs.ErrCodeInvalidInput},
		{"attr name not an identifier", &fakeEngine{}, "", webDoc + "\n[graph_attr]\n'x=\"1\"]; \"INJECTED\" [label=\"pwned\"]; \"z\" [y' = \"2\"\n", http.StatusBadRequest, errs.ErrCodeInvalidDocument},
		{"host file attr", &fakeEngine{}, "", webDoc + "\n[graph_attr]\nimagepath = \"/etc\"\n", http.StatusBadRequest, errs.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.engine, nil)
			resp := post(t, srv.URL+"/render"+tt.query, "application/toml", tt.body)

			var body errorBody
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d (%s)", resp.StatusCode, tt.wantStatus, body.Error)
			}
			if body.Code != string(tt.wantCode) {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}

func TestServeRenderMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, nil)
	resp, err := http.Get(srv.URL + "/render")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /render = %d, want 405", resp.StatusCode)
	}
}

func TestServeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	hooks := observability.NewPrometheusHooks(reg)
	observability.SetRenderHooks(hooks)
	observability.SetHTTPHooks(hooks)
	t.Cleanup(observability.Reset)

	srv := newTestServer(t, &fakeEngine{}, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if resp := post(t, srv.URL+"/render", "application/toml", webDoc); resp.StatusCode != http.StatusOK {
		t.Fatalf("render status = %d", resp.StatusCode)
	}

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`archviz_http_requests_total{method="POST",route="/render",status="200"} 1`,
		`archviz_serialize_duration_seconds_count{status="ok"} 1`,
		`archviz_engine_duration_seconds_count{engine="fake",format="svg",status="ok"} 1`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("/metrics lacks %q", want)
		}
	}
}

func TestDocumentFormat(t *testing.T) {
	tests := []struct {
		query, contentType string
		want               string
		wantErr            bool
	}{
		{"", "", "toml", false},
		{"", "application/x-yaml", "yaml", false},
		{"", "text/yaml; charset=utf-8", "yaml", false},
		{"", "not a media type;;", "toml", false},
		{"?type=yml", "application/toml", "yaml", false},
		{"?type=toml", "application/yaml", "toml", false},
		{"?type=xml", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.query+" "+tt.contentType, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/render"+tt.query, nil)
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			got, err := documentFormat(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("documentFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("documentFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}
