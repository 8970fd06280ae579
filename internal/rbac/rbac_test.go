package rbac

import "testing"

func TestCanMutate(t *testing.T) {
	cases := []struct {
		name   string
		author string
		caller string
		role   Role
		allow  bool
	}{
		{name: "owner member", author: "u1", caller: "u1", role: RoleMember, allow: true},
		{name: "other member", author: "u1", caller: "u2", role: RoleMember, allow: false},
		{name: "other admin", author: "u1", caller: "u2", role: RoleAdmin, allow: true},
		{name: "other author role", author: "u1", caller: "u2", role: RoleAuthor, allow: true},
		{name: "anonymous", author: "u1", caller: "", role: RoleAdmin, allow: false},
		{name: "unknown role", author: "u1", caller: "u2", role: Role("moderator"), allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanMutate(tc.author, tc.caller, tc.role); got != tc.allow {
				t.Fatalf("CanMutate(%q, %q, %q) = %v, want %v", tc.author, tc.caller, tc.role, got, tc.allow)
			}
		})
	}
}

func TestCanClose(t *testing.T) {
	if !CanClose("u1", "u1") {
		t.Fatal("author should be able to close own post")
	}
	if CanClose("u1", "admin-user") {
		t.Fatal("close has no elevated override")
	}
	if CanClose("", "") {
		t.Fatal("anonymous caller must not close")
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("admin"); got != RoleAdmin {
		t.Fatalf("Normalize(admin) = %q", got)
	}
	if got := Normalize("root"); got != RoleMember {
		t.Fatalf("Normalize(root) = %q, want member", got)
	}
}
