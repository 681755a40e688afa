package config

import (
	"testing"
	"time"
)

func TestPort(t *testing.T) {
	t.Setenv("TEST_PORT", "8081")
	v, err := Port("TEST_PORT", "8080")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	if v != "8081" {
		t.Fatalf("expected 8081, got %s", v)
	}

	t.Setenv("TEST_PORT", "notaport")
	if _, err := Port("TEST_PORT", "8080"); err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}

func TestDuration(t *testing.T) {
	t.Setenv("TEST_DUR", "250ms")
	if d := Duration("TEST_DUR", time.Second); d != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %s", d)
	}
	t.Setenv("TEST_DUR", "garbage")
	if d := Duration("TEST_DUR", time.Second); d != time.Second {
		t.Fatalf("expected fallback, got %s", d)
	}
}

func TestList(t *testing.T) {
	t.Setenv("TEST_LIST", " a, b ,,c")
	got := List("TEST_LIST")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected list: %v", got)
	}
}
