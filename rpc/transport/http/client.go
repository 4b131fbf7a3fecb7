package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ValentinKolb/typedkv/rpc/common"
	"github.com/ValentinKolb/typedkv/rpc/transport"
)

// NewHttpClientTransport creates a client that posts requests to
// <endpoint>/<shardId>. Endpoints without scheme use http.
func NewHttpClientTransport(config common.ClientConfig) transport.IRPCClientTransport {
	timeout := time.Duration(config.Transport.TimeoutSecond) * time.Second
	return &httpClientTransport{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: max(1, config.Transport.ConnectionsPerEndpoint),
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type httpClientTransport struct {
	client *http.Client
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *httpClientTransport) Send(ctx context.Context, endpoint string, shardId uint64, req []byte) ([]byte, error) {
	requestURL := fmt.Sprintf("%s/%d", baseURL(endpoint), shardId)

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(req))
	if err != nil {
		return nil, err
	}
	httpRequest.Header.Set("Content-Type", "application/octet-stream")

	httpResponse, err := t.client.Do(httpRequest)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := httpResponse.Body.Close(); err != nil {
			Logger.Errorf("Failed to close response body: %v", err)
		}
	}()

	if httpResponse.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http error: %s", httpResponse.Status)
	}
	return io.ReadAll(httpResponse.Body)
}

func (t *httpClientTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

// baseURL prefixes endpoint with http:// if it has no scheme
func baseURL(endpoint string) string {
	endpoint = strings.TrimSuffix(endpoint, "/")
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	return "http://" + endpoint
}
