package strings

import "testing"

func mustPanic(t *testing.T, want string, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r != want {
			t.Fatalf("panic = %v, want %q", r, want)
		}
	}()
	fn()
}

func TestIfEmpty(t *testing.T) {
	def := []string{"GET", "POST"}
	if got := IfEmpty(nil, def); len(got) != 2 {
		t.Fatalf("nil should fall back, got %v", got)
	}
	if got := IfEmpty([]string{"PUT"}, def); len(got) != 1 || got[0] != "PUT" {
		t.Fatalf("non empty should win, got %v", got)
	}
}

func TestMustPrefix(t *testing.T) {
	for in, want := range map[string]string{
		"models":    "/models",
		"/models/":  "/models",
		" //meta/ ": "/meta",
		"/a/b":      "/a/b",
	} {
		if got := MustPrefix(in); got != want {
			t.Fatalf("MustPrefix(%q) = %q, want %q", in, got, want)
		}
	}
	mustPanic(t, "root path is required", func() { MustPrefix(" / ") })
}
