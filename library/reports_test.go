package library

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to ReportStatus
		want     bool
	}{
		{ReportPending, ReportInProgress, true},
		{ReportPending, ReportResolved, true},
		{ReportInProgress, ReportResolved, true},
		{ReportInProgress, ReportPending, false},
		{ReportResolved, ReportPending, false},
		{ReportResolved, ReportInProgress, false},
		{ReportPending, ReportPending, false},
		{ReportResolved, ReportResolved, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestNextStatuses(t *testing.T) {
	if got := NextStatuses(ReportPending); len(got) != 2 {
		t.Fatalf("en_attente: got %v", got)
	}
	if got := NextStatuses(ReportInProgress); len(got) != 1 || got[0] != ReportResolved {
		t.Fatalf("traite: got %v", got)
	}
	if got := NextStatuses(ReportResolved); len(got) != 0 {
		t.Fatalf("resolu is terminal, got %v", got)
	}
}
