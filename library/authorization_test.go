package library

import "testing"

func TestIsOwner(t *testing.T) {
	ana := User{ID: "u1", Name: "Ana", Role: RoleLender}
	namesake := User{ID: "u2", Name: "Ana", Role: RoleLender}

	tests := []struct {
		name   string
		rule   OwnershipRule
		book   Book
		user   User
		expect bool
	}{
		{"id match", OwnershipByID, Book{OwnerID: "u1"}, ana, true},
		{"id mismatch", OwnershipByID, Book{OwnerID: "u1", Owner: "Ana"}, namesake, false},
		{"name only ignored by id rule", OwnershipByID, Book{Owner: "Ana"}, ana, false},
		{"legacy owner name", OwnershipLegacy, Book{Owner: "Ana"}, namesake, true},
		{"legacy ownerName", OwnershipLegacy, Book{OwnerName: "Ana"}, ana, true},
		{"legacy id still wins", OwnershipLegacy, Book{OwnerID: "u1", Owner: "Zoé"}, ana, true},
		{"legacy nothing matches", OwnershipLegacy, Book{OwnerID: "u9", Owner: "Zoé", OwnerName: "Zoé"}, ana, false},
		{"guest never owns", OwnershipLegacy, Book{Owner: GuestName, OwnerName: GuestName}, Guest(), false},
		{"guest never owns empty id", OwnershipByID, Book{}, Guest(), false},
		{"empty owner name", OwnershipLegacy, Book{}, User{ID: "u3"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.IsOwner(tt.book, tt.user); got != tt.expect {
				t.Errorf("IsOwner() = %v, want %v", got, tt.expect)
			}
		})
	}
}

func TestIsOwnerUsesIdentifierRule(t *testing.T) {
	u := User{ID: "u1", Name: "Ana"}
	if IsOwner(Book{Owner: "Ana"}, u) {
		t.Fatalf("name match must not grant ownership")
	}
	if !IsOwner(Book{OwnerID: "u1"}, u) {
		t.Fatalf("id match must grant ownership")
	}
}

func TestParseOwnershipRule(t *testing.T) {
	for in, want := range map[string]OwnershipRule{"": OwnershipByID, "id": OwnershipByID, "legacy": OwnershipLegacy} {
		got, err := ParseOwnershipRule(in)
		if err != nil || got != want {
			t.Errorf("ParseOwnershipRule(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOwnershipRule("name"); err == nil {
		t.Errorf("want error for unknown rule")
	}
}

func TestRoleGates(t *testing.T) {
	tests := []struct {
		user       User
		canPublish bool
		isAdmin    bool
	}{
		{Guest(), false, false},
		{User{ID: "1", Role: RoleBorrower}, false, false},
		{User{ID: "2", Role: RoleLender}, true, false},
		{User{ID: "3", Role: RoleAdmin}, false, true},
		{User{Role: RoleAdmin}, false, false},
	}
	for _, tt := range tests {
		if got := CanPublish(tt.user); got != tt.canPublish {
			t.Errorf("CanPublish(%+v) = %v", tt.user, got)
		}
		if got := IsAdmin(tt.user); got != tt.isAdmin {
			t.Errorf("IsAdmin(%+v) = %v", tt.user, got)
		}
	}
}
