package sha256

import "testing"

func TestHashIsDeterministicHex(t *testing.T) {
	t.Parallel()

	h := New()
	first, err := h.Hash([]byte("alice/my-first-post"))
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	second, err := h.Hash([]byte("alice/my-first-post"))
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if first != second {
		t.Fatalf("expected deterministic digest, got %q then %q", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(first))
	}
	for _, r := range first {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			t.Fatalf("unexpected digest character %q", r)
		}
	}
}
