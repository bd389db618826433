package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	Method      string
	Path        string
	ContentType string
	APIKey      string
	Body        string
}

// fakeServer records requests and answers every one with reply.
type fakeServer struct {
	mu       sync.Mutex
	requests []captured
	status   int
	reply    string
}

func newFakeServer(t *testing.T, status int, reply string) (*fakeServer, string) {
	t.Helper()
	f := &fakeServer{status: status, reply: reply}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, captured{
			Method:      r.Method,
			Path:        r.URL.EscapedPath(),
			ContentType: r.Header.Get("Content-Type"),
			APIKey:      r.Header.Get("X-API-Key"),
			Body:        string(body),
		})
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		io.WriteString(w, f.reply)
	}))
	t.Cleanup(srv.Close)
	return f, srv.URL
}

func (f *fakeServer) last(t *testing.T) captured {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{
		{"restock"}, {"sync"}, {"count"}, {"identity"},
		{"product", "add"}, {"product", "remove"}, {"product", "list"},
		{"antipublic", "lookup"}, {"antipublic", "add"}, {"antipublic", "stats"},
	} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, "command %v", path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := run(t, "", "--format", "xml", "sync")
	assert.ErrorContains(t, err, "invalid format")
}

func TestRestockFromStdin(t *testing.T) {
	f, url := newFakeServer(t, http.StatusOK, `{"success":true,"data":{"product":"nfa","added":2,"stock":7}}`)

	out, err := run(t, "a:1\nb:2\n", "--server", url, "--api-key", "k", "restock", "nfa")
	require.NoError(t, err)
	assert.Equal(t, "Added 2 units to nfa (stock: 7)\n", out)

	req := f.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/v1/admin/products/nfa/restock", req.Path)
	assert.True(t, strings.HasPrefix(req.ContentType, "text/plain"))
	assert.Equal(t, "k", req.APIKey)
	assert.Equal(t, "a:1\nb:2\n", req.Body)
}

func TestRestockFiles(t *testing.T) {
	f, url := newFakeServer(t, http.StatusOK, `{"success":true,"data":{"product":"cookies","added":2,"stock":2}}`)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("cookie-a"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("cookie-b"), 0o644))

	_, err := run(t, "", "--server", url, "restock", "cookies", "--files", a, b)
	require.NoError(t, err)

	var body struct {
		Files []restockFile `json:"files"`
	}
	require.NoError(t, json.Unmarshal([]byte(f.last(t).Body), &body))
	assert.Equal(t, []restockFile{{Name: "a.txt", Content: "cookie-a"}, {Name: "b.txt", Content: "cookie-b"}}, body.Files)
}

func TestRestockEmptyInput(t *testing.T) {
	_, err := run(t, "\n  \n", "--server", "http://127.0.0.1:1", "restock", "nfa")
	assert.ErrorContains(t, err, "no stock units")
}

func TestSyncOutput(t *testing.T) {
	_, url := newFakeServer(t, http.StatusOK,
		`{"success":true,"data":{"synced":1,"results":[{"name":"nfa","old_stock":3,"new_stock":5,"difference":2}]}}`)

	out, err := run(t, "", "--server", url, "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "nfa")
	assert.Contains(t, out, "(+2)")

	out, err = run(t, "", "--server", url, "--format", "json", "sync")
	require.NoError(t, err)
	assert.Contains(t, out, `"synced": 1`)
}

func TestProductAdd(t *testing.T) {
	f, url := newFakeServer(t, http.StatusOK,
		`{"success":true,"data":{"name":"nfa","price":1.5,"cooldown_seconds":60,"mode":"line","stock":0}}`)

	_, err := run(t, "", "--server", url, "product", "add", "nfa", "--price", "1.5", "--cooldown", "60", "--precheck-level", "1")
	require.NoError(t, err)

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(f.last(t).Body), &sent))
	assert.Equal(t, "nfa", sent["name"])
	assert.EqualValues(t, 1.5, sent["price"])
	assert.EqualValues(t, 60, sent["cooldown_seconds"])
	assert.EqualValues(t, 1, sent["precheck_level"])
	assert.Equal(t, "line", sent["mode"])
}

func TestProductRemove(t *testing.T) {
	f, url := newFakeServer(t, http.StatusNoContent, "")
	out, err := run(t, "", "--server", url, "product", "remove", "nfa")
	require.NoError(t, err)
	assert.Equal(t, "Removed nfa\n", out)
	assert.Equal(t, http.MethodDelete, f.last(t).Method)
}

func TestAntipublicLookupError(t *testing.T) {
	f, url := newFakeServer(t, http.StatusNotFound,
		`{"success":false,"error":{"code":"NOT_FOUND","message":"identity has not been delivered"}}`)

	_, err := run(t, "", "--server", url, "antipublic", "lookup", "a b")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
	assert.Equal(t, "/api/v1/admin/antipublic/a%20b", f.last(t).Path)
}

func TestAntipublicAddRequiresUser(t *testing.T) {
	_, err := run(t, "", "--server", "http://127.0.0.1:1", "antipublic", "add", "alice")
	assert.Error(t, err)
}

func TestIdentityCommand(t *testing.T) {
	out, err := run(t, "user@mail.com:pw:Alice\n\nnothing-here\n", "identity")
	require.NoError(t, err)
	assert.Equal(t, "Alice\n-\n", out)
}

func TestCountCommand(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "nfa.txt"), []byte("a\nb\n\nc\n"), 0o644))

	out, err := run(t, "", "count", "nfa", "--root", root)
	require.NoError(t, err)
	assert.Equal(t, "nfa: 3\n", out)

	out, err = run(t, "", "--format", "json", "count", "nfa", "--root", root)
	require.NoError(t, err)
	assert.JSONEq(t, `{"product":"nfa","stock":3}`, out)
}
