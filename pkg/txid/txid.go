// Package txid generates the human readable transaction identifiers handed to
// submitters for status lookups, e.g. TX-LXK3Q2A1-7MZ4QD.
package txid

import (
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const prefix = "TX-"

var (
	entropyOnce sync.Once
	entropyMu   sync.Mutex
	entropy     *ulid.MonotonicEntropy
)

func newEntropy() *ulid.MonotonicEntropy {
	entropyOnce.Do(func() {
		source := rand.NewSource(time.Now().UnixNano())
		entropy = ulid.Monotonic(rand.New(source), 0)
	})
	return entropy
}

// New returns prefix + base36 milliseconds of t + six random characters.
func New(t time.Time) string {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(t), newEntropy())
	entropyMu.Unlock()

	s := id.String()
	stamp := strings.ToUpper(strconv.FormatInt(t.UnixMilli(), 36))
	return prefix + stamp + "-" + s[len(s)-6:]
}

// IsValid reports whether value has the shape produced by New.
func IsValid(value string) bool {
	if !strings.HasPrefix(value, prefix) {
		return false
	}
	parts := strings.Split(strings.TrimPrefix(value, prefix), "-")
	if len(parts) != 2 || len(parts[1]) != 6 {
		return false
	}
	if _, err := strconv.ParseInt(parts[0], 36, 64); err != nil {
		return false
	}
	return true
}
