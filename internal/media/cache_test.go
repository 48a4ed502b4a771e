package media

import (
	"bytes"
	"errors"
	"testing"
)

func TestPutGetRoundTrip(t *testing.T) {
	c := NewCache()
	data := []byte{0x4f, 0x67, 0x67, 0x53}
	c.Put("msg1", data, "audio/ogg")

	got, ok := c.Get("msg1")
	if !ok {
		t.Fatal("Get(msg1) missed after Put")
	}
	if !bytes.Equal(got.Data, data) {
		t.Errorf("data = %v, want %v", got.Data, data)
	}
	if got.Mimetype != "audio/ogg" {
		t.Errorf("mimetype = %q, want audio/ogg", got.Mimetype)
	}
}

func TestGetMiss(t *testing.T) {
	c := NewCache()
	if _, ok := c.Get("absent"); ok {
		t.Error("Get(absent) should miss")
	}
}

func TestPutOverwrites(t *testing.T) {
	c := NewCache()
	c.Put("k", []byte("one"), "text/plain")
	c.Put("k", []byte("two"), "text/html")

	got, _ := c.Get("k")
	if string(got.Data) != "two" || got.Mimetype != "text/html" {
		t.Errorf("got %q/%q, want two/text/html", got.Data, got.Mimetype)
	}
}

func TestGetOrDeriveComputesOnce(t *testing.T) {
	c := NewCache()
	c.Put("msg1", []byte("ogg-bytes"), "audio/ogg")

	calls := 0
	derive := func(orig Blob) (Blob, error) {
		calls++
		return Blob{Data: []byte("mp3-bytes"), Mimetype: "audio/mpeg"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := c.GetOrDerive("msg1", "mp3", derive)
		if err != nil {
			t.Fatalf("GetOrDerive error = %v", err)
		}
		if string(got.Data) != "mp3-bytes" || got.Mimetype != "audio/mpeg" {
			t.Errorf("got %q/%q", got.Data, got.Mimetype)
		}
	}
	if calls != 1 {
		t.Errorf("derive ran %d times, want 1", calls)
	}
}

func TestGetOrDeriveKeepsOriginal(t *testing.T) {
	c := NewCache()
	c.Put("msg1", []byte("ogg-bytes"), "audio/ogg")

	_, err := c.GetOrDerive("msg1", "mp3", func(Blob) (Blob, error) {
		return Blob{Data: []byte("mp3-bytes"), Mimetype: "audio/mpeg"}, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	orig, ok := c.Get("msg1")
	if !ok || string(orig.Data) != "ogg-bytes" {
		t.Error("original entry was clobbered by the derived variant")
	}
	if _, ok := c.Get(DerivedKey("msg1", "mp3")); !ok {
		t.Error("derived entry not stored")
	}
}

func TestGetOrDeriveMissingOriginal(t *testing.T) {
	c := NewCache()
	_, err := c.GetOrDerive("absent", "mp3", func(Blob) (Blob, error) {
		t.Fatal("derive must not run without an original")
		return Blob{}, nil
	})
	if !errors.Is(err, ErrNotCached) {
		t.Errorf("error = %v, want ErrNotCached", err)
	}
}

func TestGetOrDeriveFailureNotCached(t *testing.T) {
	c := NewCache()
	c.Put("msg1", []byte("x"), "audio/ogg")

	boom := errors.New("boom")
	if _, err := c.GetOrDerive("msg1", "mp3", func(Blob) (Blob, error) {
		return Blob{}, boom
	}); !errors.Is(err, boom) {
		t.Errorf("error = %v, want boom", err)
	}

	// A failed derivation must not leave a derived entry behind.
	if _, ok := c.Get(DerivedKey("msg1", "mp3")); ok {
		t.Error("failed derivation left a cache entry")
	}
}

func TestDerivedKey(t *testing.T) {
	if got := DerivedKey("abc", "mp3"); got != "abc:mp3" {
		t.Errorf("DerivedKey = %q, want abc:mp3", got)
	}
}
