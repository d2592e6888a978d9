package monitoring

import (
	"log"
	"sort"
	"sync"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Degradation kinds. A degradation is a numeric or sampling condition that is
// handled with a fallback value instead of an error.
const (
	NumericDegenerate = "numeric_degenerate"
	SamplingExhausted = "sampling_exhausted"
)

var (
	degradeMu sync.Mutex
	degrades  = map[string]int{}
)

// Degradef records one degradation of the given kind and logs it.
func Degradef(kind, format string, v ...interface{}) {
	degradeMu.Lock()
	degrades[kind]++
	degradeMu.Unlock()
	Logf("[%s] "+format, append([]interface{}{kind}, v...)...)
}

// DegradationCount returns how many degradations of kind were recorded since
// start-up or the last ResetDegradations.
func DegradationCount(kind string) int {
	degradeMu.Lock()
	defer degradeMu.Unlock()
	return degrades[kind]
}

// Degradations returns the recorded kinds in sorted order with their counts.
func Degradations() []KindCount {
	degradeMu.Lock()
	defer degradeMu.Unlock()
	out := make([]KindCount, 0, len(degrades))
	for k, n := range degrades {
		out = append(out, KindCount{Kind: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// KindCount pairs a degradation kind with its count.
type KindCount struct {
	Kind  string
	Count int
}

// ResetDegradations clears all recorded degradations.
func ResetDegradations() {
	degradeMu.Lock()
	degrades = map[string]int{}
	degradeMu.Unlock()
}
