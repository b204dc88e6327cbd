package inv

import (
	"fmt"

	"github.com/asmvar/invscan/seq"
)

// InvCall describes an inversion call with the data supporting it. It is
// immutable once constructed.
//
// RegionRefOuter spans the outer flanks of the inversion including the
// inverted repeats, if present, that likely drove it. The actual breakpoints
// are likely between the outer and inner coordinates; the outer coordinate
// is the one most inversion callers report. RegionRefInner delineates the
// outermost boundary of strictly inverted sequence, excluding reference and
// inverted repeats on the outer flanks. RegionTigOuter and RegionTigInner
// are the corresponding contig coordinates.
//
// RegionRefDiscovery is the reference region, including the inversion and
// surrounding unique sequence, where the inversion was called;
// RegionTigDiscovery is the matching contig region. RegionFlag is the
// original flagged region before any expansion.
type InvCall struct {
	RegionRefOuter seq.Region
	RegionRefInner seq.Region
	RegionTigOuter seq.Region
	RegionTigInner seq.Region

	RegionRefDiscovery seq.Region
	RegionTigDiscovery seq.Region

	RegionFlag seq.Region

	// Kmers is the annotated k-mer state table, with contig offsets relative
	// to RegionTigDiscovery.
	Kmers []AnnotatedKmer

	// SVLen is the outer reference region length.
	SVLen int
	// ID is a stable identifier: chrom, 1-based start, and length.
	ID string
	// MaxInvDenDiff is the maximum margin of the REV density over the best
	// other state across REV-labeled k-mers. Summarizes call strength for
	// downstream filtering.
	MaxInvDenDiff float64
}

func newInvCall(
	refOuter, refInner, tigOuter, tigInner, refDiscovery, tigDiscovery, flag seq.Region,
	kmers []AnnotatedKmer,
) *InvCall {
	call := &InvCall{
		RegionRefOuter:     refOuter,
		RegionRefInner:     refInner,
		RegionTigOuter:     tigOuter,
		RegionTigInner:     tigInner,
		RegionRefDiscovery: refDiscovery,
		RegionTigDiscovery: tigDiscovery,
		RegionFlag:         flag,
		Kmers:              kmers,
		SVLen:              refOuter.Len(),
	}
	call.ID = fmt.Sprintf("%s-%d-INV-%d", refOuter.Chrom, refOuter.Pos+1, call.SVLen)
	call.MaxInvDenDiff = maxInvDenDiff(kmers)
	return call
}

func maxInvDenDiff(kmers []AnnotatedKmer) float64 {
	diff := 0.0
	first := true
	for _, km := range kmers {
		if km.State != StateRev {
			continue
		}
		other := km.Kern[StateFwd]
		if km.Kern[StateFwdRev] > other {
			other = km.Kern[StateFwdRev]
		}
		d := km.Kern[StateRev] - other
		if first || d > diff {
			diff = d
			first = false
		}
	}
	return diff
}

func (c *InvCall) String() string { return c.ID }
