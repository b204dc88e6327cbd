// Package seq contains the genomic interval type, the k-mer utility, and the
// FASTA-backed sequence source used by the inversion scanner.
package seq

import (
	"fmt"

	"github.com/pkg/errors"
)

// Region is a half-open genomic interval [Pos, End) on a named sequence.
// IsRev records the orientation of the aligned contig the region was derived
// from; it does not affect the coordinates themselves.
type Region struct {
	Chrom string
	Pos   int
	End   int
	IsRev bool
}

// NewRegion returns a region after validating its coordinates.
func NewRegion(chrom string, pos, end int) (Region, error) {
	r := Region{Chrom: chrom, Pos: pos, End: end}
	if pos < 0 || end < pos {
		return Region{}, errors.Errorf("invalid region %s:%d-%d", chrom, pos, end)
	}
	return r, nil
}

// Len returns the interval length, End - Pos.
func (r Region) Len() int { return r.End - r.Pos }

// String formats the region with a 1-based start, the convention for regions
// in human-readable text.
func (r Region) String() string {
	return fmt.Sprintf("%s:%d-%d", r.Chrom, r.Pos+1, r.End)
}

// Copy returns a copy of the region. Regions are value types, so this exists
// only to make call sites explicit about preserving the original before an
// Expand.
func (r Region) Copy() Region { return r }

// Expand grows the region by bp bases total. balance is the fraction of
// growth applied upstream (toward Pos); the remainder is applied downstream.
// Pos is clamped at minPos and End at the chromosome length from chromLen
// when the chromosome is present. With shift, growth clipped at one boundary
// is reapplied to the opposite end before re-clamping, so the region grows by
// the full bp whenever the chromosome has room.
func (r *Region) Expand(bp, minPos int, chromLen map[string]int, shift bool, balance float64) {
	expandUp := int(float64(bp) * balance)
	expandDn := bp - expandUp

	newPos := r.Pos - expandUp
	newEnd := r.End + expandDn

	if newPos < minPos {
		if shift {
			newEnd += minPos - newPos
		}
		newPos = minPos
	}

	if maxEnd, ok := chromLen[r.Chrom]; ok && newEnd > maxEnd {
		if shift {
			newPos -= newEnd - maxEnd
			if newPos < minPos {
				newPos = minPos
			}
		}
		newEnd = maxEnd
	}

	if newEnd < newPos {
		newEnd = newPos
	}

	r.Pos = newPos
	r.End = newEnd
}
