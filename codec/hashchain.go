package codec

import "github.com/qfstools/dbpfrecompress/internal/cpufeat"

// Hop and early-exit tuning for the hash-chain search, per spec.md §4.2.
const (
	baseMaxLoops  = 32
	wideMaxLoops  = 96
	goodLength    = 32
)

// hashChainMatcher is the primary match finder: a 2-byte hash into the
// most recent position, chained through every earlier position sharing
// that hash. Structurally this is the teacher's HCMatcher
// (compress/hc.go's head/chain-table walk), rewritten for QFS's 17-bit
// window, byte-by-byte match extension, and the §4.1 profitability rule
// instead of LZ4's fixed 4-byte minimum.
type hashChainMatcher struct {
	buf  []byte
	head [1 << 16]int32 // most recent position for each 2-byte key, 1-based (0 = empty)
	prev []int32         // prev[pos % maxWindow] = earlier position with same key, 1-based

	lastAdvanced int
	maxLoops     int
}

// NewHashChainMatcher returns the recommended primary Matcher
// implementation.
func NewHashChainMatcher() Matcher {
	m := &hashChainMatcher{maxLoops: baseMaxLoops}
	if cpufeat.WideSearchBudget() {
		m.maxLoops = wideMaxLoops
	}
	return m
}

func (m *hashChainMatcher) Reset(buf []byte) {
	m.buf = buf
	for i := range m.head {
		m.head[i] = 0
	}
	if cap(m.prev) < len(buf) {
		m.prev = make([]int32, len(buf))
	} else {
		m.prev = m.prev[:len(buf)]
		for i := range m.prev {
			m.prev[i] = 0
		}
	}
	m.lastAdvanced = 0
}

func key2(buf []byte, pos int) int {
	return int(buf[pos])<<8 | int(buf[pos+1])
}

func (m *hashChainMatcher) insert(pos int) {
	if pos+2 > len(m.buf) {
		return
	}
	k := key2(m.buf, pos)
	m.prev[pos%maxWindow] = m.head[k]
	m.head[k] = int32(pos + 1)
}

func (m *hashChainMatcher) AdvanceTo(pos int) {
	for p := m.lastAdvanced; p < pos; p++ {
		m.insert(p)
	}
	if pos > m.lastAdvanced {
		m.lastAdvanced = pos
	}
}

func (m *hashChainMatcher) LongestMatch(pos int) (length, offset int) {
	if pos+2 > len(m.buf) {
		return 0, 0
	}
	k := key2(m.buf, pos)
	cand1 := int(m.head[k])
	if cand1 == 0 {
		return 0, 0
	}
	cand := cand1 - 1

	bestLen, bestOff := 0, 0
	loops := m.maxLoops
	prevCand := pos // chain value must strictly decrease; guards stale wrap-around entries
	for loops > 0 && cand < prevCand {
		if pos-cand > maxWindow {
			break
		}
		n := matchLen(m.buf, pos, cand)
		// A farther but unprofitable candidate must never displace a
		// closer profitable one found earlier in the chain.
		if n > bestLen && Profitable(n, pos-cand) {
			bestLen, bestOff = n, pos-cand
			if bestLen >= goodLength {
				break
			}
		}
		loops--
		prevCand = cand
		nextRaw := m.prev[cand%maxWindow]
		if nextRaw == 0 {
			break
		}
		cand = int(nextRaw) - 1
	}
	if bestLen < minMatchLen {
		return 0, 0
	}
	return bestLen, bestOff
}
