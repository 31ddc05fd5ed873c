package mock

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/govm-net/harness/types"
)

// maxBodyBytes bounds a response body handed back to a contract.
const maxBodyBytes = 256 << 10

// LiveHTTP answers request and requestMany by performing the requests. A
// transport failure is reported to the contract as status 0 with the error
// text as body.
func LiveHTTP(client *http.Client) *Table {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	do := func(ctx context.Context, req types.HTTPRequest) types.HTTPResponse {
		resp, err := doRequest(ctx, client, req)
		if err != nil {
			slog.Warn("contract http request failed", "uri", req.URI, "error", err)
			return types.HTTPResponse{Status: 0, Body: err.Error()}
		}
		return resp
	}
	return &Table{
		Request: func(req types.HTTPRequest) types.HTTPResponse {
			return do(context.Background(), req)
		},
		RequestMany: func(reqs []types.HTTPRequest) []types.HTTPResponse {
			out := make([]types.HTTPResponse, len(reqs))
			g, ctx := errgroup.WithContext(context.Background())
			for i, req := range reqs {
				i, req := i, req
				g.Go(func() error {
					out[i] = do(ctx, req)
					return nil
				})
			}
			_ = g.Wait()
			return out
		},
	}
}

func doRequest(ctx context.Context, client *http.Client, req types.HTTPRequest) (types.HTTPResponse, error) {
	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method.String(), req.URI, body)
	if err != nil {
		return types.HTTPResponse{}, err
	}
	for _, h := range req.Headers {
		httpReq.Header.Add(h.Key, h.Value)
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return types.HTTPResponse{}, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return types.HTTPResponse{}, err
	}
	return types.HTTPResponse{Status: resp.StatusCode, Body: string(data)}, nil
}
