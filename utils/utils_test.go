package utils_test

import (
	"errors"
	"fmt"
	"net"
	"reflect"
	"testing"

	"github.com/robertof/go-victron-exporter/utils"
)

var (
	errA = errors.New("a")
	errB = errors.New("b")
)

func TestFirstMatch(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", errB)

	if got, ok := utils.FirstMatch(wrapped, errA, errB); !ok || got != errB {
		t.Fatalf("FirstMatch(%v): got %v, %v, wanted %v", wrapped, got, ok, errB)
	}

	if got, ok := utils.FirstMatch(wrapped, errA); ok || got != nil {
		t.Fatalf("FirstMatch(%v, a): got %v, %v, wanted no match", wrapped, got, ok)
	}

	if !utils.ErrorIsAnyOf(wrapped, errA, errB) || utils.ErrorIsAnyOf(nil, errA) {
		t.Fatalf("ErrorIsAnyOf(): wrong result")
	}
}

func TestReversed(t *testing.T) {
	addr := net.HardwareAddr{1, 2, 3, 4, 5, 6}

	got := utils.Reversed(addr)
	want := net.HardwareAddr{6, 5, 4, 3, 2, 1}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Reversed(%v): got %v, wanted %v", addr, got, want)
	}

	if addr[0] != 1 {
		t.Fatalf("Reversed(%v): input was modified", addr)
	}
}

func TestKeyHint(t *testing.T) {
	if got, want := utils.KeyHint([]byte{0xab, 1, 2}), "ab…(3 bytes)"; got != want {
		t.Fatalf("KeyHint(): got %q, wanted %q", got, want)
	}

	if got, want := utils.KeyHint(nil), "<none>"; got != want {
		t.Fatalf("KeyHint(nil): got %q, wanted %q", got, want)
	}
}
