package ids

import (
	"testing"
	"time"
)

func TestNewIsSortableAndUnique(t *testing.T) {
	prev := ""
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := New()
		if !Valid(id) {
			t.Fatalf("generated id %q is not valid", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
		if prev != "" && id <= prev {
			t.Fatalf("ids not increasing: %q after %q", id, prev)
		}
		prev = id
	}
}

func TestNewAtEncodesTime(t *testing.T) {
	early := NewAt(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	late := NewAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if early >= late {
		t.Fatalf("expected %q < %q", early, late)
	}
}

func TestValid(t *testing.T) {
	for _, bad := range []string{"", "org-a", "not-a-ulid-at-all-0000000000"} {
		if Valid(bad) {
			t.Fatalf("Valid(%q) = true", bad)
		}
	}
}
