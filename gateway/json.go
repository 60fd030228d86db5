package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// GetJSON calls endpoint with GET and decodes the body into out
func (g *Gateway) GetJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	resp, err := g.Call(ctx, endpoint, Options{Method: http.MethodGet, Query: query})
	if err != nil {
		return err
	}
	return decodeInto(resp, out)
}

// PostJSON sends in as a JSON body and decodes the reply into out (when non-nil)
func (g *Gateway) PostJSON(ctx context.Context, endpoint string, in, out any) error {
	return g.sendJSON(ctx, http.MethodPost, endpoint, in, out)
}

func (g *Gateway) PatchJSON(ctx context.Context, endpoint string, in, out any) error {
	return g.sendJSON(ctx, http.MethodPatch, endpoint, in, out)
}

func (g *Gateway) Delete(ctx context.Context, endpoint string) error {
	_, err := g.Call(ctx, endpoint, Options{Method: http.MethodDelete})
	return err
}

func (g *Gateway) sendJSON(ctx context.Context, method, endpoint string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding %s body: %w", endpoint, err)
	}

	resp, err := g.Call(ctx, endpoint, Options{
		Method:      method,
		Body:        body,
		ContentType: "application/json",
	})
	if err != nil {
		return err
	}
	return decodeInto(resp, out)
}

func decodeInto(resp *Response, out any) error {
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return resp.DecodeJSON(out)
}
