package form

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRegistry_BuiltIns(t *testing.T) {
	reg := NewRegistry()

	if got := reg.Names(); strings.Join(got, ",") != "international,sweden" {
		t.Fatalf("Names = %v", got)
	}
	for _, name := range reg.Names() {
		p, ok := reg.Get(name)
		if !ok {
			t.Fatalf("Get(%q) missing", name)
		}
		want := []string{"Name", "Email", "Phone", "SelectedOption"}
		if got := p.FieldNames(); strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("%s fields = %v", name, got)
		}
		if p.Field("Phone").re == nil || p.Field("Email").re == nil {
			t.Errorf("%s patterns not compiled", name)
		}
	}
	if _, ok := reg.Get("nope"); ok {
		t.Error("Get(nope) should miss")
	}
}

func TestRegistry_RejectsBrokenPolicies(t *testing.T) {
	cases := map[string]*Policy{
		"no fields": {Name: "x"},
		"bad type": {Name: "x", Fields: []FieldRule{
			{Name: "A", Label: "A", Type: "textarea"},
		}},
		"required without message": {Name: "x", Fields: []FieldRule{
			{Name: "A", Label: "A", Type: TypeText, Required: true},
		}},
		"pattern without message": {Name: "x", Fields: []FieldRule{
			{Name: "A", Label: "A", Type: TypeText, Pattern: `^a$`},
		}},
		"bad pattern": {Name: "x", Fields: []FieldRule{
			{Name: "A", Label: "A", Type: TypeText, Pattern: `(?=a)`, PatternMessage: "m"},
		}},
		"duplicate field": {Name: "x", Fields: []FieldRule{
			{Name: "A", Label: "A", Type: TypeText},
			{Name: "A", Label: "B", Type: TypeText},
		}},
	}
	reg := NewRegistry()
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			if err := reg.Register(p); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

const norwayYAML = `
name: norway
fields:
  - name: Name
    label: Navn
    type: text
    required: true
    required_message: Navn er påkrevd
    max_length: 100
  - name: Phone
    label: Telefon
    type: tel
    required: true
    required_message: Telefon er påkrevd
    pattern: '^(\+47)?[2-9]\d{7}$'
    pattern_message: Ugyldig telefonnummer
`

func TestRegistry_LoadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "norway.yaml"), []byte(norwayYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry()
	n, err := reg.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if n != 1 {
		t.Fatalf("loaded %d, want 1", n)
	}

	p, ok := reg.Get("norway")
	if !ok {
		t.Fatal("norway not registered")
	}
	errs := p.Validate(map[string]string{"Name": "Ola", "Phone": "12"}, nil)
	if errs.First("Phone") != "Ugyldig telefonnummer" {
		t.Errorf("Phone error = %q", errs.First("Phone"))
	}
	if errs.Len() != 1 {
		t.Errorf("errors = %v", errs.Fields())
	}
}

func TestRegistry_LoadDirMissingAndBroken(t *testing.T) {
	reg := NewRegistry()
	if n, err := reg.LoadDir(filepath.Join(t.TempDir(), "absent")); err != nil || n != 0 {
		t.Fatalf("missing dir: n=%d err=%v", n, err)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yml"), []byte("name: bad\nfields: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.LoadDir(dir); err == nil {
		t.Fatal("expected error for a policy without fields")
	}
}
