package api

import (
	"context"
	"net/http"
	"net/url"

	"biblioflow/library"
)

func (c *Client) ListRequests(ctx context.Context, requesterID string) ([]library.LoanRequest, error) {
	var q url.Values
	if requesterID != "" {
		q = url.Values{"requesterId": {requesterID}}
	}
	var out []library.LoanRequest
	if err := c.doJSON(ctx, http.MethodGet, "/requests", q, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRequest files a loan request. The idempotency key lets the service
// drop a replay of the same submission.
func (c *Client) CreateRequest(ctx context.Context, req library.LoanRequest, idempotencyKey string) (*library.LoanRequest, error) {
	var h http.Header
	if idempotencyKey != "" {
		h = http.Header{"Idempotency-Key": {idempotencyKey}}
	}
	out := &library.LoanRequest{}
	if err := c.doJSON(ctx, http.MethodPost, "/requests", nil, h, req, out); err != nil {
		return nil, err
	}
	return out, nil
}
