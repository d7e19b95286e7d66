package idgen

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateTaskID(t *testing.T) {
	now := time.Now()
	id := GenerateTaskID("tf", "Prepare kickoff deck", "maria", now, 0)
	if !strings.HasPrefix(id, "tf-") {
		t.Errorf("missing prefix: %s", id)
	}
	if len(id) != len("tf-")+DefaultLength {
		t.Errorf("unexpected length: %s", id)
	}

	// Same inputs with a different nonce must produce a different ID.
	other := GenerateTaskID("tf", "Prepare kickoff deck", "maria", now, 1)
	if other == id {
		t.Errorf("nonce did not change the ID")
	}

	// Deterministic for identical inputs.
	again := GenerateTaskID("tf", "Prepare kickoff deck", "maria", now, 0)
	if again != id {
		t.Errorf("same inputs produced different IDs: %s vs %s", id, again)
	}
}

func TestGenerateSubtaskID(t *testing.T) {
	if got := GenerateSubtaskID("tf-a3f8e9", 0); got != "tf-a3f8e9.1" {
		t.Errorf("got %s", got)
	}
	if got := GenerateSubtaskID("tf-a3f8e9", 4); got != "tf-a3f8e9.5" {
		t.Errorf("got %s", got)
	}
}

func TestParentID(t *testing.T) {
	if got := ParentID("tf-a3f8e9.2"); got != "tf-a3f8e9" {
		t.Errorf("got %s", got)
	}
	if got := ParentID("tf-a3f8e9"); got != "tf-a3f8e9" {
		t.Errorf("got %s", got)
	}
}

func TestEncodeBase36Padding(t *testing.T) {
	if got := EncodeBase36([]byte{0}, 4); got != "0000" {
		t.Errorf("got %s", got)
	}
	if got := EncodeBase36([]byte{0xff, 0xff, 0xff, 0xff}, 6); len(got) != 6 {
		t.Errorf("got %s", got)
	}
	for _, c := range EncodeBase36([]byte{0xde, 0xad, 0xbe, 0xef}, 6) {
		if !strings.ContainsRune(base36Alphabet, c) {
			t.Errorf("character %q outside base36 alphabet", c)
		}
	}
}
