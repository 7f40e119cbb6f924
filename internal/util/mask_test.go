package util_test

import (
	"strings"
	"testing"

	"github.com/govpass/govpass/internal/util"
)

func TestMaskEmail(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"ana@example.org", "a…@e….org"},
		{"A.Long.User@Sub.Example.com", "a…@s….example.com"},
		{"", ""},
		{"ab", "***"},
		{"noatsign", "n…n"},
	}
	for _, c := range cases {
		if got := util.MaskEmail(c.in); got != c.want {
			t.Errorf("MaskEmail(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMaskPhone(t *testing.T) {
	got := util.MaskPhone("+34600000001")
	if !strings.HasPrefix(got, "+34") || !strings.HasSuffix(got, "01") {
		t.Errorf("MaskPhone kept wrong edges: %q", got)
	}
	if strings.Contains(got, "600000") {
		t.Errorf("middle digits leaked: %q", got)
	}
	if util.MaskPhone("") != "" {
		t.Error("empty phone must stay empty")
	}
	if util.MaskPhone("123") != "••••" {
		t.Errorf("short phone not fully masked: %q", util.MaskPhone("123"))
	}
}

func TestMaskNIP(t *testing.T) {
	got := util.MaskNIP("19900101000042")
	if !strings.HasPrefix(got, "1990") {
		t.Errorf("prefix lost: %q", got)
	}
	if strings.Contains(got, "000042") {
		t.Errorf("tail leaked: %q", got)
	}
	if len([]rune(got)) != len("19900101000042") {
		t.Errorf("length changed: %q", got)
	}
	if util.MaskNIP("1234") != "••••" {
		t.Error("short nip not fully masked")
	}
}
