package httpmiddleware

import "testing"

func TestTokenBucketExhausts(t *testing.T) {
	l := NewSimpleTokenBucket(3, 3)
	for i := 0; i < 3; i++ {
		if !l.allow("1.2.3.4") {
			t.Fatalf("request %d denied before capacity reached", i+1)
		}
	}
	if l.allow("1.2.3.4") {
		t.Error("request allowed past capacity")
	}
	// A different client has its own bucket.
	if !l.allow("5.6.7.8") {
		t.Error("independent client denied")
	}
}

func TestZeroCapacityDefaultsToRate(t *testing.T) {
	l := NewSimpleTokenBucket(0, 2)
	if !l.allow("a") || !l.allow("a") {
		t.Error("capacity fallback to per-minute rate not applied")
	}
	if l.allow("a") {
		t.Error("third request should be denied")
	}
}
