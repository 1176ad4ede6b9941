// Package labels resolves statically known entity labels for addresses.
package labels

import (
	"fmt"
	"os"

	"github.com/mbd888/chainrisk/internal/signal"
	"gopkg.in/yaml.v3"
)

// builtin is the default directory of known entities.
var builtin = map[string][]string{
	"0x1234567890abcdef1234567890abcdef12345678": {"Exchange Wallet", "Binance"},
	"0xcafebabecafebabecafebabecafebabecafebabe": {"Reported Scam"},
}

// Directory maps normalized addresses to entity labels. It is read-only
// after construction.
type Directory struct {
	entries map[string][]string
}

// New returns a directory holding only the given entries.
func New(entries map[string][]string) *Directory {
	d := &Directory{entries: make(map[string][]string, len(entries))}
	for addr, l := range entries {
		d.entries[signal.NormalizeAddress(addr)] = append([]string(nil), l...)
	}
	return d
}

// Default returns the built-in directory.
func Default() *Directory {
	return New(builtin)
}

// file is the on-disk YAML shape:
//
//	entities:
//	  "0xabc...": ["Exchange Wallet", "Kraken"]
type file struct {
	Entities map[string][]string `yaml:"entities"`
}

// LoadFile returns the built-in directory extended with the entries of a
// YAML file. File entries replace built-in entries for the same address.
func LoadFile(path string) (*Directory, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("read labels file: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse labels file: %w", err)
	}
	merged := make(map[string][]string, len(builtin)+len(f.Entities))
	for k, v := range builtin {
		merged[k] = v
	}
	for k, v := range f.Entities {
		merged[signal.NormalizeAddress(k)] = v
	}
	return New(merged), nil
}

// Lookup returns a copy of the labels for addr, or nil.
func (d *Directory) Lookup(addr string) []string {
	if d == nil {
		return nil
	}
	l, ok := d.entries[signal.NormalizeAddress(addr)]
	if !ok {
		return nil
	}
	return append([]string(nil), l...)
}

// Len returns the number of labelled addresses.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}
