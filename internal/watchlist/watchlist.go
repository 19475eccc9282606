// Package watchlist holds the sector callsigns the bot announces.
package watchlist

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Watchlist is an ordered, de-duplicated set of upper-case callsigns.
// It is read-only after Load.
type Watchlist struct {
	callsigns []string
	index     map[string]struct{}
}

// New builds a watchlist from the given callsigns
func New(callsigns ...string) *Watchlist {
	w := &Watchlist{index: make(map[string]struct{}, len(callsigns))}
	for _, cs := range callsigns {
		w.add(cs)
	}
	return w
}

// Load reads one callsign per line from path. Blank lines and lines
// starting with # are ignored.
func Load(path string) (*Watchlist, error) {
	f, err := os.Open(path)
	if err != nil {
		return New(), fmt.Errorf("opening callsigns file: %w", err)
	}
	defer f.Close()

	w := New()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		w.add(line)
	}
	if err := scanner.Err(); err != nil {
		return New(), fmt.Errorf("reading callsigns file: %w", err)
	}
	return w, nil
}

func (w *Watchlist) add(cs string) {
	cs = Normalize(cs)
	if cs == "" {
		return
	}
	if _, ok := w.index[cs]; ok {
		return
	}
	w.index[cs] = struct{}{}
	w.callsigns = append(w.callsigns, cs)
}

// Normalize trims and upper-cases a callsign
func Normalize(cs string) string {
	return strings.ToUpper(strings.TrimSpace(cs))
}

// Contains reports whether the callsign is watched
func (w *Watchlist) Contains(cs string) bool {
	_, ok := w.index[Normalize(cs)]
	return ok
}

// Callsigns returns the callsigns in file order
func (w *Watchlist) Callsigns() []string {
	out := make([]string, len(w.callsigns))
	copy(out, w.callsigns)
	return out
}

// Len returns the number of watched callsigns
func (w *Watchlist) Len() int {
	return len(w.callsigns)
}

// Match returns up to limit callsigns containing the query, prefix matches first
func (w *Watchlist) Match(query string, limit int) []string {
	query = Normalize(query)
	var prefix, inner []string
	for _, cs := range w.callsigns {
		switch {
		case strings.HasPrefix(cs, query):
			prefix = append(prefix, cs)
		case strings.Contains(cs, query):
			inner = append(inner, cs)
		}
	}
	out := append(prefix, inner...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
