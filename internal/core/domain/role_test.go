package domain

import (
	"encoding/json"
	"testing"
)

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"patient":      RolePatient,
		"Doctor":       RoleDoctor,
		" PHARMACIST ": RolePharmacist,
		"admin":        RoleAdmin,
	}
	for in, want := range cases {
		got, err := ParseRole(in)
		if err != nil || got != want {
			t.Fatalf("ParseRole(%q) = %v, %v; want %v", in, got, err, want)
		}
	}

	for _, bad := range []string{"", "nurse", "0"} {
		if _, err := ParseRole(bad); err == nil {
			t.Fatalf("ParseRole(%q): expected error", bad)
		}
	}
}

func TestRole_ValidAndString(t *testing.T) {
	for _, r := range Roles() {
		if !r.Valid() {
			t.Fatalf("%s should be valid", r)
		}
	}
	var zero Role
	if zero.Valid() {
		t.Fatalf("zero role must be invalid")
	}
	if zero.String() != "Role(0)" {
		t.Fatalf("unexpected zero string %q", zero.String())
	}
}

func TestRole_JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Role Role `json:"role"`
	}{RolePharmacist})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"role":"pharmacist"}` {
		t.Fatalf("unexpected json %s", b)
	}

	var out struct {
		Role Role `json:"role"`
	}
	if err := json.Unmarshal([]byte(`{"role":"admin"}`), &out); err != nil || out.Role != RoleAdmin {
		t.Fatalf("unmarshal: %v %v", out.Role, err)
	}
	if err := json.Unmarshal([]byte(`{"role":"janitor"}`), &out); err == nil {
		t.Fatalf("expected error for unknown role")
	}
	if _, err := json.Marshal(Role(0)); err == nil {
		t.Fatalf("expected error marshalling invalid role")
	}
}
