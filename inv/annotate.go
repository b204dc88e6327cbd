package inv

import (
	"github.com/grailbio/bio/encoding/fasta"

	"github.com/asmvar/invscan/seq"
)

// Flank indicates which flanking duplication, if any, a k-mer physically
// lies in on the contig.
type Flank int

const (
	FlankNone Flank = iota
	FlankUp
	FlankDn
)

func (f Flank) String() string {
	switch f {
	case FlankUp:
		return "UP"
	case FlankDn:
		return "DN"
	}
	return ""
}

// Match labels a flank k-mer as belonging to the reference duplication copy
// on its own side (SAME) or the opposite side (OTHER). K-mers in both copies
// or neither are left unlabeled.
type Match int

const (
	MatchNone Match = iota
	MatchSame
	MatchOther
)

func (m Match) String() string {
	switch m {
	case MatchSame:
		return "SAME"
	case MatchOther:
		return "OTHER"
	}
	return ""
}

// AnnotatedKmer is a smoothed state table row augmented with the flank
// duplication annotation.
type AnnotatedKmer struct {
	StateRow
	Flank Flank
	Match Match
}

// matchState maps membership in the own-side and opposite-side duplication
// k-mer sets to a Match label. The ambiguous diagonal, membership in both
// copies or in neither, stays unlabeled.
func matchState(inOwn, inOther bool) Match {
	switch {
	case inOwn && !inOther:
		return MatchSame
	case inOther && !inOwn:
		return MatchOther
	}
	return MatchNone
}

// annotateInvDupMers annotates the inverted duplications that often flank
// inversions, marking k-mers that belong strictly to the upstream or
// downstream reference copy. The input rows are not modified; a new
// annotated table is returned.
func annotateInvDupMers(
	rows []StateRow,
	refOuter, refInner, tigOuter, tigInner, tigDiscovery seq.Region,
	refFa fasta.Fasta,
	kutil seq.KmerUtil,
) ([]AnnotatedKmer, error) {
	dupRefUp := seq.Region{Chrom: refOuter.Chrom, Pos: refOuter.Pos, End: refInner.Pos}
	dupRefDn := seq.Region{Chrom: refOuter.Chrom, Pos: refInner.End, End: refOuter.End}
	dupTigUp := seq.Region{Chrom: tigOuter.Chrom, Pos: tigOuter.Pos, End: tigInner.Pos}
	dupTigDn := seq.Region{Chrom: tigOuter.Chrom, Pos: tigInner.End, End: tigOuter.End}

	refSetUp, err := canonicalRefKmers(refFa, dupRefUp, kutil)
	if err != nil {
		return nil, err
	}
	refSetDn, err := canonicalRefKmers(refFa, dupRefDn, kutil)
	if err != nil {
		return nil, err
	}

	annotated := make([]AnnotatedKmer, len(rows))
	for i, row := range rows {
		km := AnnotatedKmer{StateRow: row}
		tigIndex := row.Index + tigDiscovery.Pos
		switch {
		case tigIndex >= dupTigUp.Pos && tigIndex < dupTigUp.End-kutil.K:
			km.Flank = FlankUp
		case tigIndex >= dupTigDn.Pos && tigIndex < dupTigDn.End-kutil.K:
			km.Flank = FlankDn
		}
		if km.Flank != FlankNone {
			can := kutil.Canonical(row.Kmer)
			inUp, inDn := refSetUp[can], refSetDn[can]
			if km.Flank == FlankUp {
				km.Match = matchState(inUp, inDn)
			} else {
				km.Match = matchState(inDn, inUp)
			}
		}
		annotated[i] = km
	}
	return annotated, nil
}

// canonicalRefKmers builds the strand-collapsed reference k-mer set for one
// duplication region. Regions shorter than one k-mer yield an empty set.
func canonicalRefKmers(refFa fasta.Fasta, region seq.Region, kutil seq.KmerUtil) (map[seq.Kmer]bool, error) {
	set := map[seq.Kmer]bool{}
	if region.Len() < kutil.K {
		return set, nil
	}
	counts, err := seq.RefKmers(refFa, region, kutil)
	if err != nil {
		return nil, err
	}
	for km := range counts {
		set[kutil.Canonical(km)] = true
	}
	return set, nil
}
