package tokenhash_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/ploke/ploke-io/internal/tokenhash"
)

func Test_FNV_Same_Inputs_Produce_Equal_Hashes(t *testing.T) {
	h := tokenhash.FNV{}
	ns := "proj-" + uuid.NewString()

	a := h.Hash(ns, "a.go", []byte("package a\n"))
	b := h.Hash(ns, "a.go", []byte("package a\n"))

	if !a.Equal(b) {
		t.Fatalf("got %s, want equal to %s", a, b)
	}
}

func Test_FNV_Different_Namespace_Produces_Different_Hash(t *testing.T) {
	h := tokenhash.FNV{}
	body := []byte("package a\n")

	a := h.Hash("ns-"+uuid.NewString(), "a.go", body)
	b := h.Hash("ns-"+uuid.NewString(), "a.go", body)

	if a.Equal(b) {
		t.Fatalf("got equal hashes %s and %s for different namespaces", a, b)
	}
}

func Test_FNV_Different_Path_Produces_Different_Hash(t *testing.T) {
	h := tokenhash.FNV{}
	ns := "proj-" + uuid.NewString()
	body := []byte("package a\n")

	a := h.Hash(ns, "a.go", body)
	b := h.Hash(ns, "b.go", body)

	if a.Equal(b) {
		t.Fatalf("got equal hashes %s and %s for different paths", a, b)
	}
}

func Test_FNV_Different_Body_Produces_Different_Hash(t *testing.T) {
	h := tokenhash.FNV{}
	ns := "proj-" + uuid.NewString()

	a := h.Hash(ns, "a.go", []byte("package a\n"))
	b := h.Hash(ns, "a.go", []byte("package b\n"))

	if a.Equal(b) {
		t.Fatalf("got equal hashes %s and %s for different bodies", a, b)
	}
}

func Test_FNV_No_Length_Prefix_Collision_Across_Segment_Boundary(t *testing.T) {
	h := tokenhash.FNV{}

	a := h.Hash("ab", "c", []byte("x"))
	b := h.Hash("a", "bc", []byte("x"))

	if a.Equal(b) {
		t.Fatalf("namespace/path segments collided: a=%s b=%s", a, b)
	}
}

func Test_Hash_IsZero(t *testing.T) {
	var zero tokenhash.Hash
	if !zero.IsZero() {
		t.Fatalf("zero value reported non-zero")
	}

	nonZero := tokenhash.FNV{}.Hash("ns", "a.go", []byte("x"))
	if nonZero.IsZero() {
		t.Fatalf("computed hash %s reported as zero", nonZero)
	}
}
