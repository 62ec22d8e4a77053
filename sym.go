package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nf/sic1/subleq"
)

type symbols []symbol

type symbol struct {
	addr  byte
	label string
}

func (s symbol) String() string {
	if s.label == "" {
		return fmt.Sprintf("[%.2x]", s.addr)
	}
	return fmt.Sprintf("%s (%.2x)", s.label, s.addr)
}

// programSymbols returns the labels of p ordered by address, then label.
func programSymbols(p *subleq.Program) symbols {
	ss := make(symbols, 0, len(p.Labels))
	for l, addr := range p.Labels {
		ss = append(ss, symbol{addr: addr, label: l})
	}
	sort.Slice(ss, func(i, j int) bool {
		if ss[i].addr != ss[j].addr {
			return ss[i].addr < ss[j].addr
		}
		return ss[i].label < ss[j].label
	})
	return ss
}

func (s symbols) forAddr(addr byte) (ss []symbol) {
	i := sort.Search(len(s), func(i int) bool { return s[i].addr >= addr })
	for ; i < len(s) && s[i].addr == addr; i++ {
		ss = append(ss, s[i])
	}
	return ss
}

func (s symbols) withLabelPrefix(prefix string) (ss []symbol) {
	for _, sym := range s {
		if strings.HasPrefix(sym.label, prefix) {
			ss = append(ss, sym)
		}
	}
	sort.Slice(ss, func(i, j int) bool { return ss[i].label < ss[j].label })
	return ss
}

// resolve parses a label or a decimal or 0x-prefixed hex address.
func (s symbols) resolve(arg string) (symbol, bool) {
	if strings.HasPrefix(arg, "@") {
		for _, sym := range s {
			if sym.label == arg {
				return sym, true
			}
		}
		return symbol{}, false
	}
	n, err := strconv.ParseUint(arg, 0, 8)
	if err != nil {
		return symbol{}, false
	}
	sym := symbol{addr: byte(n)}
	if ls := s.forAddr(sym.addr); len(ls) > 0 {
		sym.label = ls[0].label
	}
	return sym, true
}
