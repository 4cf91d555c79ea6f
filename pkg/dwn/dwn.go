package dwn

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/known-customer/kcc-issuer-service/internal/util"
)

const (
	protocolsConfigurePath = "/protocols-configure"
	recordsWritePath       = "/records-write"
	recordsQueryPath       = "/records-query"
	recordsReadPath        = "/records-read"

	defaultRequestTimeout = 30 * time.Second
)

// Client talks to a single DWN endpoint.
type Client struct {
	endpoint string
	client   *http.Client
}

func NewClient(endpoint string) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("dwn endpoint cannot be empty")
	}
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   defaultRequestTimeout,
		},
	}, nil
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// ConfigureProtocol publishes a protocol definition to the DWN on behalf of the author.
func (c *Client) ConfigureProtocol(ctx context.Context, request ProtocolsConfigureRequest) (*ProtocolsConfigureResponse, error) {
	var response ProtocolsConfigureResponse
	if err := c.post(ctx, protocolsConfigurePath, request, &response); err != nil {
		return nil, errors.Wrap(err, "configuring protocol")
	}
	return &response, nil
}

// WriteRecord creates a record addressed to the request's recipient.
func (c *Client) WriteRecord(ctx context.Context, request RecordsWriteRequest) (*RecordsWriteResponse, error) {
	var response RecordsWriteResponse
	if err := c.post(ctx, recordsWritePath, request, &response); err != nil {
		return nil, errors.Wrap(err, "writing record")
	}
	return &response, nil
}

// QueryRecords returns the records of the target DWN matching the request filter.
func (c *Client) QueryRecords(ctx context.Context, request RecordsQueryRequest) (*RecordsQueryResponse, error) {
	var response RecordsQueryResponse
	if err := c.post(ctx, recordsQueryPath, request, &response); err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	return &response, nil
}

// ReadRecord dereferences a single record's content by ID.
func (c *Client) ReadRecord(ctx context.Context, request RecordsReadRequest) (*RecordsReadResponse, error) {
	var response RecordsReadResponse
	if err := c.post(ctx, recordsReadPath, request, &response); err != nil {
		return nil, errors.Wrap(err, "reading record")
	}
	return &response, nil
}

// post sends a JSON message to the DWN endpoint and decodes the JSON reply.
func (c *Client) post(ctx context.Context, path string, request, response any) error {
	requestBytes, err := json.Marshal(request)
	if err != nil {
		return errors.Wrap(err, "marshalling dwn message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewBuffer(requestBytes))
	if err != nil {
		return errors.Wrap(err, "building dwn request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "posting to dwn")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading dwn response")
	}
	if !util.Is2xxResponse(resp.StatusCode) {
		return errors.Errorf("dwn returned status %d: %s", resp.StatusCode, util.SanitizeLog(string(body)))
	}
	if err = json.Unmarshal(body, response); err != nil {
		return errors.Wrap(err, "unmarshalling dwn response")
	}
	return nil
}
