package vault

import (
	"context"
	"errors"
	"testing"
)

type fakeKV struct {
	calls int
	data  map[string]map[string]any // mount/path → data
}

func (f *fakeKV) Get(_ context.Context, mount, path string) (map[string]any, error) {
	f.calls++
	d, ok := f.data[mount+"/"+path]
	if !ok {
		return nil, errors.New("secret not found")
	}
	return d, nil
}

func TestResolve_CachesPerKey(t *testing.T) {
	kv := &fakeKV{data: map[string]map[string]any{
		"secret/onatrix/db": {"password": "s3cret"},
	}}
	c := newClient(kv, nil)

	for i := 0; i < 2; i++ {
		got, err := c.Resolve(context.Background(), "secret/onatrix/db#password")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if got != "s3cret" {
			t.Fatalf("got %q, want s3cret", got)
		}
	}
	if kv.calls != 1 {
		t.Fatalf("backend calls = %d, want 1", kv.calls)
	}
}

func TestResolve_BadReference(t *testing.T) {
	c := newClient(&fakeKV{}, nil)
	for _, ref := range []string{"secret/onatrix/db", "#password", "secret#password"} {
		if _, err := c.Resolve(context.Background(), ref); !errors.Is(err, ErrBadRef) {
			t.Errorf("Resolve(%q) err = %v, want ErrBadRef", ref, err)
		}
	}
}

func TestResolve_MissingKeyAndWrongType(t *testing.T) {
	kv := &fakeKV{data: map[string]map[string]any{
		"secret/app": {"port": 3306},
	}}
	c := newClient(kv, nil)

	if _, err := c.Resolve(context.Background(), "secret/app#password"); err == nil {
		t.Fatal("expected error for missing key")
	}
	if _, err := c.Resolve(context.Background(), "secret/app#port"); err == nil {
		t.Fatal("expected error for non-string value")
	}
}
