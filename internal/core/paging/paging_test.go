package paging

import (
	"errors"
	"testing"
)

func TestNormalizePageSize(t *testing.T) {
	t.Parallel()

	if got, _ := NormalizePageSize(0); got != DefaultPageSize {
		t.Errorf("expected default %d, got %d", DefaultPageSize, got)
	}
	if got, _ := NormalizePageSize(10); got != 10 {
		t.Errorf("expected 10, got %d", got)
	}
	if _, err := NormalizePageSize(MaxPageSize + 1); !errors.Is(err, ErrInvalidPageSize) {
		t.Errorf("expected ErrInvalidPageSize, got %v", err)
	}
}

func TestParsePageToken(t *testing.T) {
	t.Parallel()

	if got, err := ParsePageToken(""); err != nil || got != 0 {
		t.Errorf("expected 0, got %d (%v)", got, err)
	}
	if got, err := ParsePageToken("20"); err != nil || got != 20 {
		t.Errorf("expected 20, got %d (%v)", got, err)
	}
	for _, bad := range []string{"-1", "abc"} {
		if _, err := ParsePageToken(bad); !errors.Is(err, ErrInvalidPageToken) {
			t.Errorf("%q: expected ErrInvalidPageToken, got %v", bad, err)
		}
	}
}

func TestNextToken(t *testing.T) {
	t.Parallel()

	if got := NextToken(0, 2, 3); got != "2" {
		t.Errorf("expected 2, got %q", got)
	}
	if got := NextToken(4, 2, 2); got != "" {
		t.Errorf("expected empty token, got %q", got)
	}
}
