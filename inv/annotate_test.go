package inv

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/grailbio/bio/encoding/fasta"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"

	"github.com/asmvar/invscan/seq"
)

func randSeq(r *rand.Rand, n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = "ACGT"[r.Intn(4)]
	}
	return string(buf)
}

func TestMatchState(t *testing.T) {
	expect.EQ(t, matchState(true, false), MatchSame)
	expect.EQ(t, matchState(false, true), MatchOther)
	// The ambiguous diagonal stays unlabeled.
	expect.EQ(t, matchState(true, true), MatchNone)
	expect.EQ(t, matchState(false, false), MatchNone)
}

func TestAnnotateInvDupMers(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	refSeq := []byte(randSeq(r, 1000))
	// Plant a 12-base copy of upstream-duplication sequence in the
	// downstream duplication so one k-mer lands in both sets.
	copy(refSeq[250:262], refSeq[100:112])

	refFa, err := fasta.New(strings.NewReader(">chr1\n" + string(refSeq) + "\n"))
	require.NoError(t, err)

	kutil := seq.NewKmerUtil(9)
	refOuter := seq.Region{Chrom: "chr1", Pos: 100, End: 300}
	refInner := seq.Region{Chrom: "chr1", Pos: 150, End: 250}
	tigOuter := seq.Region{Chrom: "tig1", Pos: 100, End: 300}
	tigInner := seq.Region{Chrom: "tig1", Pos: 150, End: 250}
	tigDiscovery := seq.Region{Chrom: "tig1", Pos: 0, End: 1000}

	refMer := func(pos int) seq.Kmer {
		return kutil.Parse(string(refSeq[pos : pos+kutil.K]))
	}
	rows := []StateRow{
		{Index: 50, Kmer: refMer(50)},    // outside both flanks
		{Index: 115, Kmer: refMer(115)},  // upstream flank, upstream copy
		{Index: 120, Kmer: refMer(270)},  // upstream flank, downstream copy
		{Index: 125, Kmer: refMer(500)},  // upstream flank, neither copy
		{Index: 130, Kmer: refMer(100)},  // upstream flank, both copies (planted)
		{Index: 135, Kmer: kutil.ReverseComplement(refMer(115))}, // canonical match
		{Index: 141, Kmer: refMer(141)},  // past the last full k-mer window of the flank
		{Index: 255, Kmer: refMer(270)},  // downstream flank, downstream copy
		{Index: 265, Kmer: refMer(115)},  // downstream flank, upstream copy
	}

	annotated, err := annotateInvDupMers(
		rows, refOuter, refInner, tigOuter, tigInner, tigDiscovery, refFa, kutil)
	expect.NoError(t, err)
	require.Equal(t, len(rows), len(annotated))

	expect.EQ(t, annotated[0].Flank, FlankNone)
	expect.EQ(t, annotated[0].Match, MatchNone)

	expect.EQ(t, annotated[1].Flank, FlankUp)
	expect.EQ(t, annotated[1].Match, MatchSame)

	expect.EQ(t, annotated[2].Flank, FlankUp)
	expect.EQ(t, annotated[2].Match, MatchOther)

	expect.EQ(t, annotated[3].Flank, FlankUp)
	expect.EQ(t, annotated[3].Match, MatchNone)

	expect.EQ(t, annotated[4].Flank, FlankUp)
	expect.EQ(t, annotated[4].Match, MatchNone) // member of both sets

	// Membership is canonical, so a reverse-complemented k-mer still counts
	// as its forward form.
	expect.EQ(t, annotated[5].Flank, FlankUp)
	expect.EQ(t, annotated[5].Match, MatchSame)

	expect.EQ(t, annotated[6].Flank, FlankNone)

	expect.EQ(t, annotated[7].Flank, FlankDn)
	expect.EQ(t, annotated[7].Match, MatchSame)

	expect.EQ(t, annotated[8].Flank, FlankDn)
	expect.EQ(t, annotated[8].Match, MatchOther)

	// The input table is never mutated.
	expect.EQ(t, rows[1].Kmer, refMer(115))
}

func TestAnnotateInvDupMersShortFlanks(t *testing.T) {
	r := rand.New(rand.NewSource(8))
	refFa, err := fasta.New(strings.NewReader(">chr1\n" + randSeq(r, 1000) + "\n"))
	require.NoError(t, err)

	kutil := seq.NewKmerUtil(9)
	// Outer and inner coincide: both duplication regions are empty and no
	// k-mer gets a flank label.
	outer := seq.Region{Chrom: "chr1", Pos: 100, End: 300}
	rows := []StateRow{{Index: 150}, {Index: 200}}
	annotated, err := annotateInvDupMers(
		rows, outer, outer,
		seq.Region{Chrom: "tig1", Pos: 100, End: 300},
		seq.Region{Chrom: "tig1", Pos: 100, End: 300},
		seq.Region{Chrom: "tig1", Pos: 0, End: 1000},
		refFa, kutil)
	expect.NoError(t, err)
	for _, km := range annotated {
		expect.EQ(t, km.Flank, FlankNone)
		expect.EQ(t, km.Match, MatchNone)
	}
}
