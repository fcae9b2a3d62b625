/*
Package mapper rewrites text by a set of pattern to replacement rules in
a single left-to-right pass.

The rules are compiled into a deterministic automaton with one 256-wide
transition table per state, so mapping costs one table lookup per input
byte however many rules there are. Where several patterns end at the
same byte the longest one wins.
*/
package mapper

import (
	"encoding/binary"
	"sort"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/cespare/xxhash/v2"
	"github.com/op/go-logging"

	"github.com/balzaczyy/segstore/metrics"
	"github.com/balzaczyy/segstore/util"
)

var log = logging.MustGetLogger("mapper")

type mapping struct {
	pattern     string
	replacement string
}

// A node of the pattern trie. match is the length of the pattern ending
// here, or zero.
type nstate struct {
	next        map[byte]int
	match       int
	replacement string
}

// A deterministic state. match is the length of the longest pattern
// accepted on entering this state, or zero.
type dstate struct {
	next        [256]int
	match       int
	replacement []byte
}

/*
MultiMapper holds the rules and their compiled automaton. Rules may be
added at any time; the automaton is rebuilt on the next Map after a
change. It is safe for concurrent use.
*/
type MultiMapper struct {
	sync.RWMutex
	mappings []mapping
	dstates  []dstate // dstates[0] is the start state
	dirty    bool
}

func New() *MultiMapper {
	return &MultiMapper{}
}

// Adds a rule. An empty pattern is rejected with util.ErrArgument. A rule
// with the same pattern as an earlier one overrides it.
func (m *MultiMapper) Add(pattern, replacement string) error {
	if len(pattern) == 0 {
		return util.Errorf(util.ErrArgument, "cannot add empty pattern to mapper")
	}
	m.Lock()
	defer m.Unlock()
	m.mappings = append(m.mappings, mapping{pattern, replacement})
	m.dirty = true
	return nil
}

// Number of rules added.
func (m *MultiMapper) Len() int {
	m.RLock()
	defer m.RUnlock()
	return len(m.mappings)
}

// Number of states in the compiled automaton, compiling first if needed.
func (m *MultiMapper) Size() int {
	m.ensureCompiled()
	m.RLock()
	defer m.RUnlock()
	return len(m.dstates)
}

// Builds the automaton now instead of on the next Map.
func (m *MultiMapper) Compile() {
	m.Lock()
	defer m.Unlock()
	m.compile()
}

func (m *MultiMapper) ensureCompiled() {
	m.RLock()
	ok := !m.dirty && m.dstates != nil
	m.RUnlock()
	if !ok {
		m.Compile()
	}
}

func (m *MultiMapper) compile() {
	start := time.Now()
	nstates := buildTrie(m.mappings)

	var alphabet []byte
	var used [256]bool
	for _, mp := range m.mappings {
		for i := 0; i < len(mp.pattern); i++ {
			used[mp.pattern[i]] = true
		}
	}
	for c := 0; c < 256; c++ {
		if used[c] {
			alphabet = append(alphabet, byte(c))
		}
	}

	d := &determinizer{nstates: nstates, index: make(map[uint64][]int)}
	d.add(roaring.BitmapOf(0))
	for i := 0; i < len(d.dstates); i++ {
		set := d.sets[i]
		for _, c := range alphabet {
			next := roaring.BitmapOf(0) // matching may start at any byte
			it := set.Iterator()
			for it.HasNext() {
				if to, ok := nstates[it.Next()].next[c]; ok {
					next.Add(uint32(to))
				}
			}
			to := d.add(next) // may grow d.dstates
			d.dstates[i].next[c] = to
		}
	}

	m.dstates = d.dstates
	m.dirty = false
	elapsed := time.Since(start)
	metrics.MapperCompiles.Inc()
	metrics.MapperCompileSeconds.Observe(elapsed.Seconds())
	log.Debugf("Compiled %v mappings into %v states in %v", len(m.mappings), len(m.dstates), elapsed)
}

func buildTrie(mappings []mapping) []nstate {
	nstates := []nstate{{next: make(map[byte]int)}}
	for _, mp := range mappings {
		node := 0
		for i := 0; i < len(mp.pattern); i++ {
			c := mp.pattern[i]
			to, ok := nstates[node].next[c]
			if !ok {
				to = len(nstates)
				nstates = append(nstates, nstate{next: make(map[byte]int)})
				nstates[node].next[c] = to
			}
			node = to
		}
		nstates[node].match = len(mp.pattern)
		nstates[node].replacement = mp.replacement
	}
	return nstates
}

// Subset construction state: every distinct set of live trie nodes
// becomes one dstate.
type determinizer struct {
	nstates []nstate
	dstates []dstate
	sets    []*roaring.Bitmap
	index   map[uint64][]int // hash of a set to the dstates holding it
}

func hashSet(set *roaring.Bitmap) uint64 {
	h := xxhash.New()
	var buf [4]byte
	it := set.Iterator()
	for it.HasNext() {
		binary.LittleEndian.PutUint32(buf[:], it.Next())
		h.Write(buf[:])
	}
	return h.Sum64()
}

// Returns the dstate for set, creating it if this set is new.
func (d *determinizer) add(set *roaring.Bitmap) int {
	key := hashSet(set)
	for _, i := range d.index[key] {
		if d.sets[i].Equals(set) {
			return i
		}
	}
	ds := dstate{}
	it := set.Iterator()
	for it.HasNext() {
		n := &d.nstates[it.Next()]
		if n.match > ds.match {
			ds.match = n.match
			ds.replacement = []byte(n.replacement)
		}
	}
	i := len(d.dstates)
	d.dstates = append(d.dstates, ds)
	d.sets = append(d.sets, set)
	d.index[key] = append(d.index[key], i)
	return i
}

// Appends the mapping of src to dst, writing at most limit bytes in total
// if limit is not negative.
func (m *MultiMapper) apply(dst, src []byte, limit int) []byte {
	state := 0
	for _, c := range src {
		if limit >= 0 && len(dst) >= limit {
			break
		}
		state = m.dstates[state].next[c]
		ds := &m.dstates[state]
		if ds.match == 0 {
			dst = append(dst, c)
			continue
		}
		// the first match-1 bytes of the pattern were already copied
		dst = dst[:len(dst)-(ds.match-1)]
		rep := ds.replacement
		if limit >= 0 && len(dst)+len(rep) > limit {
			rep = rep[:limit-len(dst)]
		}
		dst = append(dst, rep...)
		state = 0
	}
	return dst
}

/*
Maps src into dst and returns the number of bytes written. The output is
truncated to len(dst).
*/
func (m *MultiMapper) Map(dst, src []byte) int {
	m.ensureCompiled()
	m.RLock()
	defer m.RUnlock()
	return len(m.apply(dst[:0], src, len(dst)))
}

// Maps s, growing the output as needed.
func (m *MultiMapper) MapString(s string) string {
	m.ensureCompiled()
	m.RLock()
	defer m.RUnlock()
	return string(m.apply(make([]byte, 0, len(s)), []byte(s), -1))
}

// Patterns returns the rule patterns, sorted.
func (m *MultiMapper) Patterns() []string {
	m.RLock()
	defer m.RUnlock()
	ans := make([]string, 0, len(m.mappings))
	for _, mp := range m.mappings {
		ans = append(ans, mp.pattern)
	}
	sort.Strings(ans)
	return ans
}
