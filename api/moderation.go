package api

import (
	"context"
	"net/http"
	"net/url"

	"biblioflow/library"
)

// ListReports returns every report for an empty filter, otherwise the ones
// filed by the given user.
func (c *Client) ListReports(ctx context.Context, reportedByUserID string) ([]library.Report, error) {
	var q url.Values
	if reportedByUserID != "" {
		q = url.Values{"reportedByUserId": {reportedByUserID}}
	}
	var out []library.Report
	if err := c.doJSON(ctx, http.MethodGet, "/reports", q, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type reportStatusBody struct {
	Status    library.ReportStatus `json:"status"`
	AdminNote string               `json:"adminNote"`
}

func (c *Client) UpdateReportStatus(ctx context.Context, id string, status library.ReportStatus, adminNote string) (*library.Report, error) {
	path, err := pathID("/reports", id)
	if err != nil {
		return nil, err
	}
	out := &library.Report{}
	body := reportStatusBody{Status: status, AdminNote: adminNote}
	if err := c.doJSON(ctx, http.MethodPatch, path+"/status", nil, nil, body, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListNotifications(ctx context.Context, recipientID string) ([]library.Notification, error) {
	var q url.Values
	if recipientID != "" {
		q = url.Values{"recipientId": {recipientID}}
	}
	var out []library.Notification
	if err := c.doJSON(ctx, http.MethodGet, "/notifications", q, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	path, err := pathID("/notifications", id)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPatch, path+"/read", nil, nil, nil, nil)
}
