package seq

import (
	"strings"

	"github.com/grailbio/base/log"
)

// Kmer is a compact 2-bit encoding of a sequence of ACGT, up to 32 bases.
type Kmer uint64

const invalidKmerBits = uint8(255)

var (
	asciiToKmerMap                  [256]uint8
	asciiToReverseComplementKmerMap [256]uint8
	kmerToASCII                     = [4]byte{'A', 'C', 'G', 'T'}
)

func init() {
	for i := range asciiToKmerMap {
		asciiToKmerMap[i] = invalidKmerBits
		asciiToReverseComplementKmerMap[i] = invalidKmerBits
	}
	asciiToKmerMap['A'] = 0
	asciiToKmerMap['a'] = 0
	asciiToKmerMap['C'] = 1
	asciiToKmerMap['c'] = 1
	asciiToKmerMap['G'] = 2
	asciiToKmerMap['g'] = 2
	asciiToKmerMap['T'] = 3
	asciiToKmerMap['t'] = 3

	asciiToReverseComplementKmerMap['A'] = 3
	asciiToReverseComplementKmerMap['a'] = 3
	asciiToReverseComplementKmerMap['C'] = 2
	asciiToReverseComplementKmerMap['c'] = 2
	asciiToReverseComplementKmerMap['G'] = 1
	asciiToReverseComplementKmerMap['g'] = 1
	asciiToReverseComplementKmerMap['T'] = 0
	asciiToReverseComplementKmerMap['t'] = 0
}

// invalidKmer is a sentinel kmer.
const invalidKmer = Kmer(0xffffffffffffffff)

// KmerPos is one position of a k-mer stream: the forward k-mer starting at
// Index, and its reverse complement.
type KmerPos struct {
	Fwd   Kmer
	Rev   Kmer
	Index int
}

// KmerUtil encodes, decodes and streams fixed-length k-mers.
type KmerUtil struct {
	K    int
	mask Kmer // ^0 >> (64 - 2*K)
}

// NewKmerUtil returns a utility for k-mers of length k. k must be in [1, 32].
func NewKmerUtil(k int) KmerUtil {
	if k < 1 || k > 32 {
		log.Panicf("k-mer length %d out of range [1, 32]", k)
	}
	return KmerUtil{
		K:    k,
		mask: ^(invalidKmer << Kmer(k*2 /*2==#bits per base*/)),
	}
}

// Parse encodes an ACGT string of length K. Returns invalidKmer when the
// string contains any other character or has the wrong length.
func (u KmerUtil) Parse(s string) Kmer {
	if len(s) != u.K {
		return invalidKmer
	}
	var k Kmer
	for _, ch := range []byte(s) {
		b := asciiToKmerMap[ch]
		if b == invalidKmerBits {
			return invalidKmer
		}
		k = (k << 2) | Kmer(b)
	}
	return k
}

// String decodes a k-mer back to its ACGT form, mainly for logs.
func (u KmerUtil) String(k Kmer) string {
	buf := strings.Builder{}
	buf.Grow(u.K)
	for i := u.K - 1; i >= 0; i-- {
		buf.WriteByte(kmerToASCII[(k>>Kmer(2*i))&3])
	}
	return buf.String()
}

// ReverseComplement returns the reverse complement of k.
func (u KmerUtil) ReverseComplement(k Kmer) Kmer {
	var rc Kmer
	for i := 0; i < u.K; i++ {
		rc = (rc << 2) | (^k & 3)
		k >>= 2
	}
	return rc
}

// Canonical returns the strand-independent representative of k: the smaller
// of k and its reverse complement.
func (u KmerUtil) Canonical(k Kmer) Kmer {
	if rc := u.ReverseComplement(k); rc < k {
		return rc
	}
	return k
}

// Stream returns the ordered k-mers of seq with their reverse complements and
// 0-based start positions. Windows containing a non-ACGT base are skipped.
func (u KmerUtil) Stream(seq string) []KmerPos {
	var out []KmerPos
	if len(seq) < u.K {
		return out
	}
	out = make([]KmerPos, 0, len(seq)-u.K+1)
	shift := Kmer(u.K-1) * 2
	si := 0
	valid := false // out is nonempty and the previous window ended at si+K-2
	var fwd, rev Kmer
	for si+u.K <= len(seq) {
		if valid {
			nextCh := seq[si+u.K-1]
			if bits := asciiToKmerMap[nextCh]; bits != invalidKmerBits {
				// Fast path: roll the previous window forward by one base.
				fwd = ((fwd << 2) | Kmer(bits)) & u.mask
				rev = (rev >> 2) | (Kmer(asciiToReverseComplementKmerMap[nextCh]) << shift)
				out = append(out, KmerPos{Fwd: fwd, Rev: rev, Index: si})
				si++
				continue
			}
			// The new base is ambiguous. Skip past it.
			si += u.K
			valid = false
			continue
		}
		if fwd = u.Parse(seq[si : si+u.K]); fwd == invalidKmer {
			si = nextAmbiguousPosition(seq, si) + 1
			continue
		}
		rev = u.ReverseComplement(fwd)
		out = append(out, KmerPos{Fwd: fwd, Rev: rev, Index: si})
		si++
		valid = true
	}
	return out
}

// CountKmers returns forward-orientation occurrence counts for every valid
// k-mer of seq.
func (u KmerUtil) CountKmers(seq string) map[Kmer]int {
	counts := map[Kmer]int{}
	for _, kp := range u.Stream(seq) {
		counts[kp.Fwd]++
	}
	return counts
}

func nextAmbiguousPosition(seq string, si int) int {
	for i := si; i < len(seq); i++ {
		if asciiToKmerMap[seq[i]] == invalidKmerBits {
			return i
		}
	}
	return len(seq)
}
