package planner

import "testing"

func TestCanonicalBytes_MapKeyOrderIndependent(t *testing.T) {
	a := CanonicalBytes(map[string]any{"b": 1.0, "a": 2.0})
	b := CanonicalBytes(map[string]any{"a": 2.0, "b": 1.0})
	if string(a) != string(b) {
		t.Error("expected canonical encoding to be independent of map construction order")
	}
}

func TestCanonicalBytes_NumberFormatStable(t *testing.T) {
	a := CanonicalBytes(map[string]any{"n": 5})
	b := CanonicalBytes(map[string]any{"n": 5.0})
	if string(a) != string(b) {
		t.Error("expected int and float64 of the same numeric value to canonicalize identically")
	}
}

func TestCanonicalBytes_DistinctStringVsNumber(t *testing.T) {
	a := CanonicalBytes("1")
	b := CanonicalBytes(1.0)
	if string(a) == string(b) {
		t.Error("expected string \"1\" and number 1 to encode differently")
	}
}
