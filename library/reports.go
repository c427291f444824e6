package library

import (
	"context"
	"fmt"
	"sync"
)

// CanTransition reports whether a report may move from one status to
// another. en_attente may skip straight to resolu; nothing returns to
// en_attente and resolu is final.
func CanTransition(from, to ReportStatus) bool {
	switch from {
	case ReportPending:
		return to == ReportInProgress || to == ReportResolved
	case ReportInProgress:
		return to == ReportResolved
	}
	return false
}

// NextStatuses lists the statuses reachable from s, in display order.
func NextStatuses(s ReportStatus) []ReportStatus {
	var out []ReportStatus
	for _, to := range []ReportStatus{ReportInProgress, ReportResolved} {
		if CanTransition(s, to) {
			out = append(out, to)
		}
	}
	return out
}

// Dashboard lists reports and notifications for the session user. An admin
// sees everything and moderates; everyone else sees what they filed or
// received.
type Dashboard struct {
	user    User
	service ModerationService

	mu            sync.RWMutex
	reports       []Report
	notifications []Notification
}

func NewDashboard(user User, service ModerationService) *Dashboard {
	return &Dashboard{user: user, service: service}
}

func (d *Dashboard) IsAdmin() bool { return IsAdmin(d.user) }

// scope is the filter value sent to the service; empty means everything.
func (d *Dashboard) scope() string {
	if d.IsAdmin() {
		return ""
	}
	return d.user.ID
}

// Load fetches both lists.
func (d *Dashboard) Load(ctx context.Context) error {
	if d.user.IsGuest() {
		return ErrLoginRequired
	}

	reports, err := d.service.ListReports(ctx, d.scope())
	if err != nil {
		return fmt.Errorf("load reports: %w", err)
	}
	notifications, err := d.service.ListNotifications(ctx, d.scope())
	if err != nil {
		return fmt.Errorf("load notifications: %w", err)
	}

	d.mu.Lock()
	d.reports = reports
	d.notifications = notifications
	d.mu.Unlock()
	return nil
}

func (d *Dashboard) Reports() []Report {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Report(nil), d.reports...)
}

func (d *Dashboard) Notifications() []Notification {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Notification(nil), d.notifications...)
}

// Report looks a loaded report up by id.
func (d *Dashboard) Report(id string) (Report, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, r := range d.reports {
		if r.ID == id {
			return r, true
		}
	}
	return Report{}, false
}

func (d *Dashboard) UnreadCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, notif := range d.notifications {
		if !notif.Read() {
			n++
		}
	}
	return n
}

// UpdateStatus moves a report to a new status with an optional admin note,
// then reloads both lists.
func (d *Dashboard) UpdateStatus(ctx context.Context, id string, to ReportStatus, adminNote string) error {
	if !d.IsAdmin() {
		return fmt.Errorf("update report status: %w", ErrForbidden)
	}
	if !to.Valid() {
		return invalid("status", fmt.Sprintf("unknown status %q", to))
	}

	report, ok := d.Report(id)
	if !ok {
		return fmt.Errorf("report %s: %w", id, ErrUnknownItem)
	}
	if !CanTransition(report.Status, to) {
		return fmt.Errorf("%s -> %s: %w", report.Status, to, ErrInvalidTransition)
	}

	if _, err := d.service.UpdateReportStatus(ctx, id, to, adminNote); err != nil {
		return fmt.Errorf("update report %s: %w", id, err)
	}
	return d.Load(ctx)
}

// MarkRead flags one of the user's notifications as read. Admins see every
// user's notifications and may not mark them. Reading is one way; an already
// read notification is left alone without a network call.
func (d *Dashboard) MarkRead(ctx context.Context, id string) error {
	if d.IsAdmin() {
		return fmt.Errorf("mark notification read: %w", ErrForbidden)
	}
	d.mu.RLock()
	var found, read bool
	for _, n := range d.notifications {
		if n.ID == id {
			found, read = true, n.Read()
			break
		}
	}
	d.mu.RUnlock()

	if !found {
		return fmt.Errorf("notification %s: %w", id, ErrUnknownItem)
	}
	if read {
		return nil
	}
	if err := d.service.MarkNotificationRead(ctx, id); err != nil {
		return fmt.Errorf("mark notification %s read: %w", id, err)
	}
	return d.Load(ctx)
}
