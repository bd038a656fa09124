package statusplattform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "s3cr3t"

type recordedRequest struct {
	Method string
	Path   string
	APIKey string
	Body   string
}

// fakeRegistry is an in-memory status registry
type fakeRegistry struct {
	sync.Mutex
	t        *testing.T
	services map[string]uuid.UUID
	statuses []RecordDto
	requests []recordedRequest
	creates  int

	// createAsArray makes POST /rest/Service answer with an array
	createAsArray bool
	// fail, when set, is consulted before every request and may answer it
	fail func(w http.ResponseWriter, r *http.Request) bool
}

func newFakeRegistry(t *testing.T) (*fakeRegistry, *httptest.Server) {
	t.Helper()
	f := &fakeRegistry{t: t, services: make(map[string]uuid.UUID)}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeRegistry) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	if r.Body != nil && r.ContentLength != 0 {
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
	}

	f.Lock()
	defer f.Unlock()
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		APIKey: r.Header.Get(APIKeyHeader),
		Body:   string(body),
	})

	if f.fail != nil && f.fail(w, r) {
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/rest/Services":
		out := make([]ServiceRef, 0, len(f.services))
		for name, id := range f.services {
			out = append(out, ServiceRef{Name: name, ID: uuid.NullUUID{UUID: id, Valid: true}})
		}
		_ = json.NewEncoder(w).Encode(out)
	case r.Method == http.MethodPost && r.URL.Path == "/rest/Service":
		var svc ServiceDto
		require.NoError(f.t, json.Unmarshal(body, &svc))
		f.creates++
		id := uuid.New()
		f.services[svc.Name] = id
		ref := ServiceRef{Name: svc.Name, ID: uuid.NullUUID{UUID: id, Valid: true}}
		if f.createAsArray {
			_ = json.NewEncoder(w).Encode([]ServiceRef{ref})
			return
		}
		_ = json.NewEncoder(w).Encode(ref)
	case r.Method == http.MethodPost && r.URL.Path == "/rest/ServiceStatus":
		var rec RecordDto
		require.NoError(f.t, json.Unmarshal(body, &rec))
		f.statuses = append(f.statuses, rec)
		w.WriteHeader(http.StatusOK)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeRegistry) requestCount() int {
	f.Lock()
	defer f.Unlock()
	return len(f.requests)
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	c, err := NewClient(srv.URL, testAPIKey, opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	for _, tc := range []struct {
		name    string
		baseURL string
		apiKey  string
		wantErr bool
	}{
		{"ok", "http://portalserver", "key", false},
		{"trailing slash", "http://portalserver/", "key", false},
		{"with path", "https://status.example.com/api", "key", false},
		{"empty key", "http://portalserver", "", true},
		{"key with newline", "http://portalserver", "key\r\nX-Injected: 1", true},
		{"relative url", "portalserver", "key", true},
		{"bad url", "http://[::1", "key", true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewClient(tc.baseURL, tc.apiKey)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEndpointURL(t *testing.T) {
	c, err := NewClient("https://status.example.com/api/", "key")
	require.NoError(t, err)
	assert.Equal(t, "https://status.example.com/api/rest/Services", c.endpointURL(servicesEndpoint))
}

func TestResolveOrCreate(t *testing.T) {
	ctx := context.Background()
	f, srv := newFakeRegistry(t)
	c := newTestClient(t, srv)

	id1, err := c.ResolveOrCreate(ctx, "foo", "teamA")
	require.NoError(t, err)
	id2, err := c.ResolveOrCreate(ctx, "foo", "teamA")
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Equal(t, 1, f.creates)

	f.Lock()
	defer f.Unlock()
	require.Len(t, f.requests, 3)
	assert.Equal(t, http.MethodGet, f.requests[0].Method)
	assert.Equal(t, http.MethodPost, f.requests[1].Method)
	assert.Equal(t, "/rest/Service", f.requests[1].Path)
	assert.Equal(t, http.MethodGet, f.requests[2].Method)
	for _, r := range f.requests {
		assert.Equal(t, testAPIKey, r.APIKey)
	}

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(f.requests[1].Body), &got))
	want := map[string]any{
		"name":                                 "foo",
		"type":                                 "TJENESTE",
		"team":                                 "teamA",
		"service_dependencies":                 []any{},
		"component_dependencies":               []any{},
		"areas_containing_this_service":        []any{},
		"services_dependent_on_this_component": []any{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("create body (-want +got):\n%s", diff)
	}
}

func TestResolveOrCreateKnownService(t *testing.T) {
	f, srv := newFakeRegistry(t)
	known := uuid.New()
	f.services["checkout"] = known
	c := newTestClient(t, srv)

	id, err := c.ResolveOrCreate(context.Background(), "checkout", "payments")
	require.NoError(t, err)
	assert.Equal(t, known, id)
	assert.Zero(t, f.creates)
}

func TestResolveOrCreateArrayResponse(t *testing.T) {
	f, srv := newFakeRegistry(t)
	f.createAsArray = true
	c := newTestClient(t, srv)

	id, err := c.ResolveOrCreate(context.Background(), "foo", "teamA")
	require.NoError(t, err)
	assert.Equal(t, f.services["foo"], id)
}

func TestResolveOrCreateConcurrent(t *testing.T) {
	f, srv := newFakeRegistry(t)
	c := newTestClient(t, srv)

	const n = 16
	ids := make([]uuid.UUID, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = c.ResolveOrCreate(context.Background(), "foo", "teamA")
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, 1, f.creates)
}

func TestResolveOrCreateLateCreateResponse(t *testing.T) {
	f, srv := newFakeRegistry(t)
	stored := false
	f.fail = func(w http.ResponseWriter, r *http.Request) bool {
		if r.Method != http.MethodPost || stored {
			return false
		}
		// stored, but answered after the client gave up
		stored = true
		f.creates++
		f.services["foo"] = uuid.New()
		f.Unlock()
		time.Sleep(time.Millisecond * 300)
		f.Lock()
		return true
	}
	c := newTestClient(t, srv, WithRequestTimeout(time.Millisecond*100), WithMaxRetryDuration(time.Second*30))

	id, err := c.ResolveOrCreate(context.Background(), "foo", "teamA")
	require.NoError(t, err)

	f.Lock()
	defer f.Unlock()
	assert.Equal(t, 1, f.creates)
	assert.Equal(t, f.services["foo"], id)
}

func TestResolveOrCreateLooksUpAgainAfterFailedCreate(t *testing.T) {
	f, srv := newFakeRegistry(t)
	failed := false
	f.fail = func(w http.ResponseWriter, r *http.Request) bool {
		if r.Method != http.MethodPost || failed {
			return false
		}
		failed = true
		w.WriteHeader(http.StatusServiceUnavailable)
		return true
	}
	c := newTestClient(t, srv, WithMaxRetryDuration(time.Second*30))

	_, err := c.ResolveOrCreate(context.Background(), "foo", "teamA")
	require.NoError(t, err)

	f.Lock()
	defer f.Unlock()
	var methods []string
	for _, r := range f.requests {
		methods = append(methods, r.Method)
	}
	assert.Equal(t, []string{http.MethodGet, http.MethodPost, http.MethodGet, http.MethodPost}, methods)
	assert.Equal(t, 1, f.creates)
}

func TestResolveOrCreateSkipsNullIDs(t *testing.T) {
	f, srv := newFakeRegistry(t)
	f.fail = func(w http.ResponseWriter, r *http.Request) bool {
		if r.Method != http.MethodGet {
			return false
		}
		_, _ = w.Write([]byte(`[{"name":"foo","id":null},{"name":"bar"}]`))
		return true
	}
	c := newTestClient(t, srv)

	_, err := c.ResolveOrCreate(context.Background(), "foo", "teamA")
	require.NoError(t, err)
	assert.Equal(t, 1, f.creates)
}

func TestReportStatus(t *testing.T) {
	ctx := context.Background()
	f, srv := newFakeRegistry(t)
	c := newTestClient(t, srv)
	id := uuid.MustParse("6f1c1f0e-3f51-4b8a-9a0f-1d5d6c3b2a10")

	require.NoError(t, c.ReportStatus(ctx, id, StatusOK, "1/1 endpoints ready"))
	require.NoError(t, c.ReportStatus(ctx, id, StatusOK, "1/1 endpoints ready"))

	f.Lock()
	defer f.Unlock()
	require.Len(t, f.requests, 2)
	assert.Equal(t, f.requests[0], f.requests[1])
	assert.Equal(t, "/rest/ServiceStatus", f.requests[0].Path)
	assert.JSONEq(t, `{
		"service_id": "6f1c1f0e-3f51-4b8a-9a0f-1d5d6c3b2a10",
		"status": "OK",
		"source": "GCP_POLL",
		"description": "1/1 endpoints ready"
	}`, f.requests[0].Body)
	assert.Len(t, f.statuses, 2)
}

func TestRetryOnServerError(t *testing.T) {
	f, srv := newFakeRegistry(t)
	failures := 2
	f.fail = func(w http.ResponseWriter, _ *http.Request) bool {
		if failures == 0 {
			return false
		}
		failures--
		w.WriteHeader(http.StatusServiceUnavailable)
		return true
	}
	c := newTestClient(t, srv, WithMaxRetryDuration(time.Second*30))

	err := c.ReportStatus(context.Background(), uuid.New(), StatusDown, "0/1 endpoints ready")
	require.NoError(t, err)
	assert.Equal(t, 3, f.requestCount())
}

func TestNoRetryOnClientError(t *testing.T) {
	f, srv := newFakeRegistry(t)
	f.fail = func(w http.ResponseWriter, _ *http.Request) bool {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return true
	}
	c := newTestClient(t, srv, WithMaxRetryDuration(time.Second*30))

	err := c.ReportStatus(context.Background(), uuid.New(), StatusOK, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRegistryUnavailable)

	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusUnauthorized, serr.StatusCode)
	assert.Equal(t, "unauthorized", serr.Body)
	assert.Equal(t, 1, f.requestCount())
}

func TestRetryDisabled(t *testing.T) {
	f, srv := newFakeRegistry(t)
	f.fail = func(w http.ResponseWriter, _ *http.Request) bool {
		w.WriteHeader(http.StatusBadGateway)
		return true
	}
	c := newTestClient(t, srv, WithMaxRetryDuration(0))

	_, err := c.ResolveOrCreate(context.Background(), "foo", "teamA")
	assert.ErrorIs(t, err, ErrRegistryUnavailable)
	assert.Equal(t, 1, f.requestCount())
}

func TestMalformedResponse(t *testing.T) {
	f, srv := newFakeRegistry(t)
	f.fail = func(w http.ResponseWriter, _ *http.Request) bool {
		_, _ = w.Write([]byte("<html>not json</html>"))
		return true
	}
	c := newTestClient(t, srv, WithMaxRetryDuration(time.Second*30))

	_, err := c.ResolveOrCreate(context.Background(), "foo", "teamA")
	assert.ErrorIs(t, err, ErrRegistryUnavailable)
	assert.Equal(t, 1, f.requestCount())
	assert.Zero(t, f.creates)
}

func TestUnreachableRegistry(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(url, testAPIKey, WithMaxRetryDuration(0))
	require.NoError(t, err)
	err = c.ReportStatus(context.Background(), uuid.New(), StatusOK, "")
	assert.True(t, errors.Is(err, ErrRegistryUnavailable))
}

func TestResolveOrCreateCallerCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := newTestClient(t, srv, WithMaxRetryDuration(0))
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*50)
	defer cancel()

	_, err := c.ResolveOrCreate(ctx, "foo", "teamA")
	assert.ErrorIs(t, err, ErrRegistryUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStatusFromReadiness(t *testing.T) {
	assert.Equal(t, StatusOK, StatusFromReadiness(true))
	assert.Equal(t, StatusDown, StatusFromReadiness(false))
}
