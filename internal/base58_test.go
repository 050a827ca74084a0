package internal

import "testing"

func TestEncodeID(t *testing.T) {
	cases := map[uint64]string{
		0:  "1",
		1:  "2",
		57: "z",
		58: "21",
	}
	for id, want := range cases {
		if got := EncodeID(id); got != want {
			t.Fatalf("EncodeID(%d) = %q, want %q", id, got, want)
		}
	}
}

func TestEncodeIDMaxFitsBuffer(t *testing.T) {
	got := EncodeID(^uint64(0))
	if len(got) != 11 {
		t.Fatalf("expected 11 digits for max uint64, got %q", got)
	}
}
