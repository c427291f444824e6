package library_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biblioflow/library"
)

func seedModeration(f *fixture, userID string) (library.Report, library.Notification) {
	rep := f.srv.AddReport(library.Report{BookTitle: "Dune", ReportedBy: userID, Reason: library.ReasonDamaged, Status: library.ReportPending})
	f.srv.AddReport(library.Report{BookTitle: "Emma", ReportedBy: "someone-else", Status: library.ReportInProgress})
	notif := f.srv.AddNotification(library.Notification{RecipientID: userID, Subject: "Rappel", Type: library.NotificationReminder})
	f.srv.AddNotification(library.Notification{RecipientID: "someone-else", Subject: "Autre"})
	return rep, notif
}

func TestDashboardGuest(t *testing.T) {
	f := newFixture(t, "")
	assert.ErrorIs(t, f.mgr.Dashboard(context.Background()).Load(context.Background()), library.ErrLoginRequired)
	assert.Zero(t, f.srv.TotalCalls())
}

func TestDashboardScopesNonAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	me := f.loginAs(t, library.User{Email: "bo@example.com", Name: "Bo", Role: library.RoleBorrower})
	rep, notif := seedModeration(f, me.ID)

	d := f.mgr.Dashboard(ctx)
	require.NoError(t, d.Load(ctx))
	assert.False(t, d.IsAdmin())
	require.Len(t, d.Reports(), 1)
	assert.Equal(t, rep.ID, d.Reports()[0].ID)
	require.Len(t, d.Notifications(), 1)
	assert.Equal(t, 1, d.UnreadCount())

	assert.ErrorIs(t, d.UpdateStatus(ctx, rep.ID, library.ReportResolved, ""), library.ErrForbidden)

	require.NoError(t, d.MarkRead(ctx, notif.ID))
	assert.Zero(t, d.UnreadCount())
	calls := f.srv.Calls("PATCH /notifications/{id}/read")
	require.NoError(t, d.MarkRead(ctx, notif.ID))
	assert.Equal(t, calls, f.srv.Calls("PATCH /notifications/{id}/read"), "reading twice makes no call")

	assert.ErrorIs(t, d.MarkRead(ctx, "n-missing"), library.ErrUnknownItem)
	assert.Equal(t, calls, f.srv.Calls("PATCH /notifications/{id}/read"))
}

func TestDashboardAdminModerates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	f.loginAs(t, library.User{Email: "root@example.com", Name: "Root", Role: library.RoleAdmin})
	rep, notif := seedModeration(f, "u-bo")

	d := f.mgr.Dashboard(ctx)
	require.NoError(t, d.Load(ctx))
	assert.True(t, d.IsAdmin())
	assert.Len(t, d.Reports(), 2)
	assert.Len(t, d.Notifications(), 2)

	err := d.UpdateStatus(ctx, rep.ID, "archive", "")
	assert.ErrorIs(t, err, library.ErrValidation)

	assert.ErrorIs(t, d.UpdateStatus(ctx, "r-missing", library.ReportResolved, ""), library.ErrUnknownItem)
	assert.ErrorIs(t, d.MarkRead(ctx, notif.ID), library.ErrForbidden)
	assert.Zero(t, f.srv.Calls("PATCH /notifications/{id}/read"))

	require.NoError(t, d.UpdateStatus(ctx, rep.ID, library.ReportResolved, "livre remplacé"))
	got, ok := d.Report(rep.ID)
	require.True(t, ok)
	assert.Equal(t, library.ReportResolved, got.Status)
	assert.Equal(t, "livre remplacé", got.AdminNote)

	calls := f.srv.Calls("PATCH /reports/{id}/status")
	err = d.UpdateStatus(ctx, rep.ID, library.ReportInProgress, "")
	assert.ErrorIs(t, err, library.ErrInvalidTransition)
	assert.Equal(t, calls, f.srv.Calls("PATCH /reports/{id}/status"))
}
