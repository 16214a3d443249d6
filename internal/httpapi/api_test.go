package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"arkiva.org/internal/archive"
	"arkiva.org/internal/auth"
	"arkiva.org/internal/storage"
)

const (
	rootEmail  = "root@arkiva.test"
	rootSecret = "root-secret-1"
)

type apiClient struct {
	baseURL   string
	client    *http.Client
	t         *testing.T
	authStore *auth.InMemoryStore
	authSvc   *auth.Service
	docStore  *archive.InMemoryStore
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	authStore := auth.NewInMemoryStore()
	authStore.SeedBuiltins()
	issuer, err := auth.NewTokenIssuer("test-secret", "arkiva")
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	authSvc := auth.NewService(authStore, issuer)
	if _, err := authSvc.CreateIdentity(context.Background(), auth.CreateIdentityInput{
		Name: "Root", Email: rootEmail, Secret: rootSecret,
		RoleID: authStore.MustRoleID(auth.RoleSlugRootAdmin),
	}); err != nil {
		t.Fatalf("seed root identity: %v", err)
	}

	blobs, err := storage.NewLocal(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	docStore := archive.NewInMemoryStore()
	docs := archive.NewService(docStore, blobs)

	api := New(authSvc, docs, ReadyProbe{}, "test", Options{RateBurst: 1000, RatePerSec: 1000})
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL:   srv.URL,
		client:    srv.Client(),
		t:         t,
		authStore: authStore,
		authSvc:   authSvc,
		docStore:  docStore,
	}
}

func (c *apiClient) do(method, path string, body any, token string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, token string) *http.Response {
	return c.do(http.MethodPost, path, body, token)
}

func (c *apiClient) put(path string, body any, token string) *http.Response {
	return c.do(http.MethodPut, path, body, token)
}

func (c *apiClient) get(path string, params url.Values, token string) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

func (c *apiClient) login(email, secret string) string {
	c.t.Helper()
	resp := c.post("/v1/auth/login", map[string]any{"email": email, "secret": secret}, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("login %s: status %d", email, resp.StatusCode)
	}
	var sess auth.Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		c.t.Fatalf("decode session: %v", err)
	}
	if sess.Token == "" {
		c.t.Fatal("empty session token")
	}
	return sess.Token
}

// register creates a member account through the public endpoint and returns
// its session token and identity.
func (c *apiClient) register(name, email, secret string) (string, auth.Identity) {
	c.t.Helper()
	resp := c.post("/v1/auth/register", map[string]any{
		"name": name, "email": email, "secret": secret,
	}, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("register %s: status %d", email, resp.StatusCode)
	}
	var sess auth.Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		c.t.Fatalf("decode session: %v", err)
	}
	return sess.Token, sess.Identity
}

// upload posts a multipart document create and returns the raw response.
func (c *apiClient) upload(token, title string, submit bool) *http.Response {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", title)
	_ = mw.WriteField("author", "A. Author")
	_ = mw.WriteField("year", "2024")
	if submit {
		_ = mw.WriteField("submit_for_review", "true")
	}
	fw, err := mw.CreateFormFile("file", title+".pdf")
	if err != nil {
		c.t.Fatalf("create form file: %v", err)
	}
	_, _ = fw.Write([]byte("%PDF-1.4 test content"))
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/v1/documents", &buf)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do upload: %v", err)
	}
	return resp
}

func (c *apiClient) mustUpload(token, title string, submit bool) archive.Document {
	c.t.Helper()
	resp := c.upload(token, title, submit)
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		c.t.Fatalf("upload %q: status %d: %s", title, resp.StatusCode, body)
	}
	return decode[archive.Document](c.t, resp)
}

// roleID resolves a seeded role slug through the store.
func (c *apiClient) roleID(slug string) string {
	return c.authStore.MustRoleID(slug)
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func wantStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("status = %d, want %d: %s", resp.StatusCode, want, body)
	}
}

func wantErrorCode(t *testing.T, resp *http.Response, status int, code string) {
	t.Helper()
	if resp.StatusCode != status {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("status = %d, want %d: %s", resp.StatusCode, status, body)
	}
	payload := decode[errorResponse](t, resp)
	if payload.Code != code {
		t.Fatalf("error code = %q, want %q", payload.Code, code)
	}
}

func TestHealthzPublic(t *testing.T) {
	api := newTestAPI(t)
	resp := api.get("/healthz", nil, "")
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestProtectedPathsRequireToken(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{"/v1/auth/me", "/v1/documents", "/v1/identities"} {
		resp := api.get(path, nil, "")
		wantErrorCode(t, resp, http.StatusUnauthorized, codeUnauthenticated)
	}
}

func TestGarbageTokenRejected(t *testing.T) {
	api := newTestAPI(t)
	resp := api.get("/v1/auth/me", nil, "not-a-real-token")
	wantErrorCode(t, resp, http.StatusUnauthorized, codeUnauthenticated)
}
