package coordinator

import (
	"bytes"
	"io"
	"net/http"
	"testing"

	"neofs/cmn"

	"github.com/stretchr/testify/require"
)

// jsonClient is a tiny test-only HTTP client for hitting a Coordinator's
// httptest server with JSON bodies.
type jsonClient struct {
	baseURL string
	http    *http.Client
}

func newJSONClient(baseURL string) *jsonClient {
	return &jsonClient{baseURL: baseURL, http: &http.Client{}}
}

func (c *jsonClient) post(t *testing.T, path string, body interface{}) (status int, respBody string) {
	t.Helper()
	resp, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(cmn.MustMarshal(body)))
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(raw)
}

func (c *jsonClient) postJSON(t *testing.T, path string, body interface{}, out interface{}) {
	t.Helper()
	status, respBody := c.post(t, path, body)
	require.Equal(t, http.StatusOK, status, "unexpected status, body=%s", respBody)
	require.NoError(t, cmn.JSON.Unmarshal([]byte(respBody), out))
}

func (c *jsonClient) get(t *testing.T, path string, out interface{}) {
	t.Helper()
	resp, err := c.http.Get(c.baseURL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, "unexpected status, body=%s", string(raw))
	require.NoError(t, cmn.JSON.Unmarshal(raw, out))
}
