package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// PostJSON marshals in, posts it to url through the Retryer and decodes a
// 2xx JSON response into out. out may be nil to discard the body.
func (r *Retryer) PostJSON(ctx context.Context, url string, header http.Header, in, out any, service string) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", service, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating %s request: %w", service, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	return r.doJSON(ctx, req, out, service)
}

// GetJSON fetches url through the Retryer and decodes a 2xx JSON response
// into out.
func (r *Retryer) GetJSON(ctx context.Context, url string, header http.Header, out any, service string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", service, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	return r.doJSON(ctx, req, out, service)
}

func (r *Retryer) doJSON(ctx context.Context, req *http.Request, out any, service string) error {
	resp, err := r.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%s request: %w", service, err)
	}
	defer resp.Body.Close()

	if err := CheckStatus(resp, service); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", service, err)
	}
	return nil
}
