package rbac

import "testing"

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b Role
		want int
	}{
		{RoleOwner, RoleEditor, 1},
		{RoleEditor, RoleOwner, -1},
		{RoleEditor, RoleViewer, 1},
		{RoleViewer, RoleViewer, 0},
		{RoleNone, RoleViewer, -1},
		{Role("admin"), RoleViewer, -1},
	}

	for _, tc := range cases {
		if got := Compare(tc.a, tc.b); got != tc.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestAtLeast(t *testing.T) {
	if !AtLeast(RoleOwner, RoleViewer) {
		t.Error("owner should satisfy viewer")
	}
	if AtLeast(RoleViewer, RoleEditor) {
		t.Error("viewer should not satisfy editor")
	}
	if AtLeast(RoleNone, RoleNone) {
		t.Error("no role should never satisfy anything")
	}
}

func TestCan(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		allow  bool
	}{
		{name: "viewer read", role: RoleViewer, action: ActionRead, allow: true},
		{name: "viewer write", role: RoleViewer, action: ActionWrite, allow: false},
		{name: "editor write", role: RoleEditor, action: ActionWrite, allow: true},
		{name: "editor manage members", role: RoleEditor, action: ActionManageMember, allow: false},
		{name: "owner manage members", role: RoleOwner, action: ActionManageMember, allow: true},
		{name: "owner delete", role: RoleOwner, action: ActionDelete, allow: true},
		{name: "unknown action", role: RoleEditor, action: Action("export"), allow: false},
		{name: "none read", role: RoleNone, action: ActionRead, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.role, tc.action); got != tc.allow {
				t.Fatalf("Can(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.allow)
			}
		})
	}
}

func TestParse(t *testing.T) {
	if r, ok := Parse(" Editor "); !ok || r != RoleEditor {
		t.Errorf("Parse(\" Editor \") = %q, %v", r, ok)
	}
	if _, ok := Parse("admin"); ok {
		t.Error("admin is not a workspace role")
	}
	if _, ok := ParseMemberRole("owner"); ok {
		t.Error("owner must not be grantable through membership")
	}
	if r, ok := ParseMemberRole("viewer"); !ok || r != RoleViewer {
		t.Errorf("ParseMemberRole(viewer) = %q, %v", r, ok)
	}
}

func TestEffectiveMemberRole(t *testing.T) {
	cases := []struct {
		stored Role
		want   Role
		ok     bool
	}{
		{RoleViewer, RoleViewer, true},
		{RoleEditor, RoleEditor, true},
		{RoleOwner, RoleEditor, true},
		{Role("Editor"), RoleEditor, true},
		{Role("admin"), RoleNone, false},
		{RoleNone, RoleNone, false},
	}

	for _, tc := range cases {
		got, ok := EffectiveMemberRole(tc.stored)
		if got != tc.want || ok != tc.ok {
			t.Errorf("EffectiveMemberRole(%q) = %q, %v, want %q, %v", tc.stored, got, ok, tc.want, tc.ok)
		}
	}
}
