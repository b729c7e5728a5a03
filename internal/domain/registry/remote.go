package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const (
	mimeJSON          = "application/json"
	headerContentType = "Content-Type"

	// maxRemoteResponse caps how much of a remote response body is read.
	maxRemoteResponse = 4 << 20 // 4MB
)

// invokeRemote issues a single outbound HTTP call against the remote
// target. Args are forwarded as query parameters for GET/DELETE and as a
// JSON body for POST/PUT. A non-2xx status, transport failure or timeout
// surfaces as *InvocationError.
func (r *Registry) invokeRemote(ctx context.Context, name string, target *RemoteTarget, args json.RawMessage) (json.RawMessage, error) {
	req, err := buildRemoteRequest(ctx, target, args)
	if err != nil {
		return nil, &InvocationError{Tool: name, Err: err}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &InvocationError{Tool: name, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteResponse))
	if err != nil {
		return nil, &InvocationError{Tool: name, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &InvocationError{
			Tool:       name,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("remote call failed: %s", truncate(string(body), 256)),
		}
	}

	// Non-JSON responses are wrapped as a JSON string so callers always
	// receive valid JSON.
	if !json.Valid(body) {
		wrapped, marshalErr := json.Marshal(string(body))
		if marshalErr != nil {
			return nil, &InvocationError{Tool: name, Err: marshalErr}
		}
		return wrapped, nil
	}
	return body, nil
}

// buildRemoteRequest maps the args object onto the request per method:
// read-style methods carry args in the query string, write-style methods
// carry them as the JSON body.
func buildRemoteRequest(ctx context.Context, target *RemoteTarget, args json.RawMessage) (*http.Request, error) {
	switch target.Method {
	case http.MethodGet, http.MethodDelete:
		endpoint, err := endpointWithQuery(target.Endpoint, args)
		if err != nil {
			return nil, err
		}
		return http.NewRequestWithContext(ctx, target.Method, endpoint, nil)
	case http.MethodPost, http.MethodPut:
		if len(args) == 0 {
			args = json.RawMessage(`{}`)
		}
		req, err := http.NewRequestWithContext(ctx, target.Method, target.Endpoint, bytes.NewReader(args))
		if err != nil {
			return nil, err
		}
		req.Header.Set(headerContentType, mimeJSON)
		return req, nil
	default:
		// Unreachable for registered descriptors; methods are validated
		// at registration time.
		return nil, fmt.Errorf("unsupported HTTP method: %s", target.Method)
	}
}

// endpointWithQuery merges the args object into the endpoint URL as
// query parameters. Scalar values are rendered with fmt.Sprint;
// composite values are rendered as compact JSON.
func endpointWithQuery(endpoint string, args json.RawMessage) (string, error) {
	if len(args) == 0 {
		return endpoint, nil
	}

	var params map[string]any
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("args must be a JSON object: %w", err)
	}
	if len(params) == 0 {
		return endpoint, nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}

	q := u.Query()
	for key, value := range params {
		switch v := value.(type) {
		case string:
			q.Set(key, v)
		case nil:
			q.Set(key, "")
		case map[string]any, []any:
			raw, marshalErr := json.Marshal(v)
			if marshalErr != nil {
				return "", marshalErr
			}
			q.Set(key, string(raw))
		default:
			q.Set(key, fmt.Sprint(v))
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
