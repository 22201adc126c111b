package envutil

import (
	"testing"
	"time"
)

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("ENVUTIL_INT", "abc")
	if got := Int("ENVUTIL_INT", 7); got != 7 {
		t.Fatalf("Int: want=%d got=%d", 7, got)
	}
	t.Setenv("ENVUTIL_INT", " 42 ")
	if got := Int("ENVUTIL_INT", 7); got != 42 {
		t.Fatalf("Int: want=%d got=%d", 42, got)
	}
}

func TestFloat(t *testing.T) {
	t.Setenv("ENVUTIL_FLOAT", "0.35")
	if got := Float("ENVUTIL_FLOAT", 0.5); got != 0.35 {
		t.Fatalf("Float: want=%v got=%v", 0.35, got)
	}
	t.Setenv("ENVUTIL_FLOAT", "")
	if got := Float("ENVUTIL_FLOAT", 0.5); got != 0.5 {
		t.Fatalf("Float default: want=%v got=%v", 0.5, got)
	}
}

func TestBool(t *testing.T) {
	for raw, want := range map[string]bool{"true": true, "ON": true, "0": false, "no": false} {
		t.Setenv("ENVUTIL_BOOL", raw)
		if got := Bool("ENVUTIL_BOOL", !want); got != want {
			t.Fatalf("Bool(%q): want=%v got=%v", raw, want, got)
		}
	}
	t.Setenv("ENVUTIL_BOOL", "maybe")
	if got := Bool("ENVUTIL_BOOL", true); !got {
		t.Fatalf("Bool fallback: want=true got=false")
	}
}

func TestSeconds(t *testing.T) {
	t.Setenv("ENVUTIL_SECONDS", "15")
	if got := Seconds("ENVUTIL_SECONDS", time.Minute); got != 15*time.Second {
		t.Fatalf("Seconds: want=%s got=%s", 15*time.Second, got)
	}
	t.Setenv("ENVUTIL_SECONDS", "-1")
	if got := Seconds("ENVUTIL_SECONDS", time.Minute); got != time.Minute {
		t.Fatalf("Seconds fallback: want=%s got=%s", time.Minute, got)
	}
}
