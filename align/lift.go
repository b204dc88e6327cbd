// Package align builds a coordinate lift between a reference assembly and
// the contigs aligned to it. The lift is derived from the match operations of
// each alignment's CIGAR, so it maps positions exactly where the contig
// aligns and snaps to the nearest aligned base across indel gaps.
package align

import (
	"github.com/biogo/store/llrb"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"

	"github.com/asmvar/invscan/seq"
)

// block is the run of exactly aligned bases produced by one CIGAR
// match/mismatch op. Query coordinates are in the original contig
// orientation and ascending even when rev is set.
type block struct {
	subChrom string
	subStart int
	subEnd   int
	qryName  string
	qryStart int
	qryEnd   int
	rev      bool

	// Subject and query span of the whole alignment record this block came
	// from, used to snap positions that fall inside indel gaps.
	recSubEnd int
	recQryEnd int
}

func (b *block) liftToQry(pos int) int {
	if b.rev {
		return b.qryEnd - 1 - (pos - b.subStart)
	}
	return b.qryStart + (pos - b.subStart)
}

func (b *block) liftToSub(pos int) int {
	if b.rev {
		return b.subStart + (b.qryEnd - 1 - pos)
	}
	return b.subStart + (pos - b.qryStart)
}

// subKey indexes blocks by (subject chrom, subject start) for llrb Floor
// lookups. qryKey does the same on the query side.
type subKey struct {
	chrom string
	start int
	b     *block
}

func (k subKey) Compare(c llrb.Comparable) int {
	k2 := c.(subKey)
	if k.chrom != k2.chrom {
		if k.chrom < k2.chrom {
			return -1
		}
		return 1
	}
	return k.start - k2.start
}

type qryKey struct {
	name  string
	start int
	b     *block
}

func (k qryKey) Compare(c llrb.Comparable) int {
	k2 := c.(qryKey)
	if k.name != k2.name {
		if k.name < k2.name {
			return -1
		}
		return 1
	}
	return k.start - k2.start
}

// Lift maps positions and regions between reference (subject) and contig
// (query) coordinates. Safe for concurrent use after construction.
type Lift struct {
	bySub llrb.Tree
	byQry llrb.Tree
}

// NewLift builds a lift from contig-to-reference alignment records.
// Unmapped and secondary records are ignored.
func NewLift(records []*sam.Record) (*Lift, error) {
	l := &Lift{}
	for _, rec := range records {
		if rec.Ref == nil || rec.Flags&sam.Unmapped != 0 || rec.Flags&sam.Secondary != 0 {
			continue
		}
		if err := l.addRecord(rec); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *Lift) addRecord(rec *sam.Record) error {
	// Original contig length: every op that consumes query bases, clips
	// included, contributes to it.
	qryLen := 0
	for _, co := range rec.Cigar {
		switch co.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch,
			sam.CigarInsertion, sam.CigarSoftClipped, sam.CigarHardClipped:
			qryLen += co.Len()
		}
	}

	rev := rec.Flags&sam.Reverse != 0
	var blocks []*block
	pos := rec.Pos // subject coordinate
	qoff := 0      // query offset in record orientation, clips included
	for _, co := range rec.Cigar {
		cLen := co.Len()
		switch co.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			b := &block{
				subChrom: rec.Ref.Name(),
				subStart: pos,
				subEnd:   pos + cLen,
				qryName:  rec.Name,
				rev:      rev,
			}
			if rev {
				b.qryStart = qryLen - qoff - cLen
				b.qryEnd = qryLen - qoff
			} else {
				b.qryStart = qoff
				b.qryEnd = qoff + cLen
			}
			blocks = append(blocks, b)
			pos += cLen
			qoff += cLen
		case sam.CigarInsertion, sam.CigarSoftClipped, sam.CigarHardClipped:
			qoff += cLen
		case sam.CigarDeletion, sam.CigarSkipped:
			pos += cLen
		case sam.CigarPadded, sam.CigarBack:
			// No coordinate movement in either space.
		default:
			return errors.Errorf("record %s: unexpected CIGAR op %v", rec.Name, co)
		}
	}
	if len(blocks) == 0 {
		return nil
	}

	recSubEnd := pos
	recQryStart, recQryEnd := blocks[0].qryStart, blocks[0].qryEnd
	for _, b := range blocks[1:] {
		if b.qryStart < recQryStart {
			recQryStart = b.qryStart
		}
		if b.qryEnd > recQryEnd {
			recQryEnd = b.qryEnd
		}
	}
	for _, b := range blocks {
		b.recSubEnd = recSubEnd
		b.recQryEnd = recQryEnd
		l.bySub.Insert(subKey{b.subChrom, b.subStart, b})
		l.byQry.Insert(qryKey{b.qryName, b.qryStart, b})
	}
	return nil
}

// LiftToQry lifts one reference position onto a contig. ok is false when no
// alignment covers the position.
func (l *Lift) LiftToQry(chrom string, pos int) (name string, qpos int, rev bool, ok bool) {
	c := l.bySub.Floor(subKey{chrom: chrom, start: pos})
	if c == nil {
		return "", 0, false, false
	}
	b := c.(subKey).b
	if b.subChrom != chrom {
		return "", 0, false, false
	}
	if pos < b.subEnd {
		return b.qryName, b.liftToQry(pos), b.rev, true
	}
	if pos < b.recSubEnd {
		// Inside a deletion gap of the same record: snap to the aligned base
		// preceding the gap in subject order.
		return b.qryName, b.liftToQry(b.subEnd - 1), b.rev, true
	}
	return "", 0, false, false
}

// LiftToSub lifts one contig position onto the reference. ok is false when no
// alignment covers the position.
func (l *Lift) LiftToSub(name string, pos int) (chrom string, spos int, rev bool, ok bool) {
	c := l.byQry.Floor(qryKey{name: name, start: pos})
	if c == nil {
		return "", 0, false, false
	}
	b := c.(qryKey).b
	if b.qryName != name {
		return "", 0, false, false
	}
	if pos < b.qryEnd {
		return b.subChrom, b.liftToSub(pos), b.rev, true
	}
	if pos < b.recQryEnd {
		// Inside an insertion gap: snap to the last aligned base of the
		// block.
		return b.subChrom, b.liftToSub(b.qryEnd - 1), b.rev, true
	}
	return "", 0, false, false
}

// LiftRegionToQry lifts a reference region onto contig coordinates. Both ends
// must land on the same contig in the same orientation.
func (l *Lift) LiftRegionToQry(r seq.Region) (seq.Region, bool) {
	if r.Len() == 0 {
		return seq.Region{}, false
	}
	name1, q1, rev1, ok := l.LiftToQry(r.Chrom, r.Pos)
	if !ok {
		return seq.Region{}, false
	}
	name2, q2, rev2, ok := l.LiftToQry(r.Chrom, r.End-1)
	if !ok || name1 != name2 || rev1 != rev2 {
		return seq.Region{}, false
	}
	if q2 < q1 {
		q1, q2 = q2, q1
	}
	return seq.Region{Chrom: name1, Pos: q1, End: q2 + 1, IsRev: rev1}, true
}

// LiftRegionToSub lifts a contig region onto reference coordinates. Both ends
// must land on the same chromosome in the same orientation.
func (l *Lift) LiftRegionToSub(r seq.Region) (seq.Region, bool) {
	if r.Len() == 0 {
		return seq.Region{}, false
	}
	chrom1, s1, rev1, ok := l.LiftToSub(r.Chrom, r.Pos)
	if !ok {
		return seq.Region{}, false
	}
	chrom2, s2, rev2, ok := l.LiftToSub(r.Chrom, r.End-1)
	if !ok || chrom1 != chrom2 || rev1 != rev2 {
		return seq.Region{}, false
	}
	if s2 < s1 {
		s1, s2 = s2, s1
	}
	return seq.Region{Chrom: chrom1, Pos: s1, End: s2 + 1, IsRev: rev1}, true
}
