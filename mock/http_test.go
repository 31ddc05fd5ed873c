package mock

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/govm-net/harness/types"
)

func TestLiveHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusAccepted)
		io.WriteString(w, r.Method+" "+r.URL.Path+" "+r.Header.Get("X-Test")+" "+string(body))
	}))
	defer srv.Close()

	table := LiveHTTP(srv.Client())
	resp := table.Request(types.HTTPRequest{
		URI:     srv.URL + "/one",
		Method:  types.MethodPost,
		Headers: []types.HTTPHeader{{Key: "X-Test", Value: "yes"}},
		Body:    "payload",
	})
	assert.Equal(t, http.StatusAccepted, resp.Status)
	assert.Equal(t, "POST /one yes payload", resp.Body)

	many := table.RequestMany([]types.HTTPRequest{
		{URI: srv.URL + "/a", Method: types.MethodGet},
		{URI: srv.URL + "/b", Method: types.MethodDelete},
		{URI: "http://127.0.0.1:0/unreachable", Method: types.MethodGet},
	})
	assert.Len(t, many, 3)
	assert.Equal(t, "GET /a  ", many[0].Body)
	assert.Equal(t, "DELETE /b  ", many[1].Body)
	assert.Equal(t, 0, many[2].Status)
}
