package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nf/sic1/asm"
)

const negateSource = `@loop: subleq @OUT, @IN
       subleq @zero, @zero, @loop
@zero: .data 0
`

func TestSymbols(t *testing.T) {
	p, err := asm.AssembleString(negateSource)
	if err != nil {
		t.Fatal(err)
	}
	syms := programSymbols(p)

	if got := syms.forAddr(0); len(got) != 1 || got[0].label != "@loop" {
		t.Errorf("forAddr(0) = %v, want [@loop]", got)
	}
	if got := syms.forAddr(1); len(got) != 0 {
		t.Errorf("forAddr(1) = %v, want none", got)
	}

	for _, c := range []struct {
		arg   string
		addr  byte
		label string
		ok    bool
	}{
		{"@zero", 6, "@zero", true},
		{"@OUT", 254, "@OUT", true},
		{"6", 6, "@zero", true},
		{"0x03", 3, "", true},
		{"@nope", 0, "", false},
		{"256", 0, "", false},
		{"x", 0, "", false},
	} {
		s, ok := syms.resolve(c.arg)
		if ok != c.ok || s.addr != c.addr || s.label != c.label {
			t.Errorf("resolve(%q) = %v, %v; want %d %q, %v", c.arg, s, ok, c.addr, c.label, c.ok)
		}
	}

	var labels []string
	for _, s := range syms.withLabelPrefix("@") {
		labels = append(labels, s.label)
	}
	if got, want := strings.Join(labels, " "), "@HALT @IN @MAX @OUT @loop @zero"; got != want {
		t.Errorf("withLabelPrefix(@) = %s, want %s", got, want)
	}
}

func TestLoadProgram(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "negate.sic1")
	hex := filepath.Join(dir, "negate.hex")
	bad := filepath.Join(dir, "bad.sic1")
	for name, data := range map[string]string{
		src: negateSource,
		hex: "fefd0306060000\n",
		bad: "subleq 1, 2\nsubleq @nowhere, 0\n",
	} {
		if err := os.WriteFile(name, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	p, err := loadProgram(src, false)
	if err != nil {
		t.Fatal(err)
	}
	q, err := loadProgram(hex, false)
	if err != nil {
		t.Fatal(err)
	}
	if p.Hex() != q.Hex() {
		t.Errorf("assembled %s, decoded %s", p.Hex(), q.Hex())
	}

	_, err = loadProgram(bad, false)
	if err == nil || !strings.HasSuffix(err.Error(), "bad.sic1:2: undefined reference: @nowhere") {
		t.Errorf("loading bad source: error = %v", err)
	}
	if _, err := loadProgram(src, true); err == nil {
		t.Error("loading source as hex succeeded")
	}
}

func TestListing(t *testing.T) {
	p, err := asm.AssembleString(negateSource)
	if err != nil {
		t.Fatal(err)
	}
	var b strings.Builder
	writeListing(&b, p)
	for _, want := range []string{
		"  0: fe fd 03  @loop: subleq @OUT, @IN\n",
		"  6: 00        @zero: .data 0\n",
		"@zero = 6 (0)\n",
		".data -2 -3 3 6 6 0 0\n",
	} {
		if !strings.Contains(b.String(), want) {
			t.Errorf("listing does not contain %q:\n%s", want, b.String())
		}
	}
}
