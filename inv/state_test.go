package inv

import (
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/grailbio/testutil/h"

	"github.com/asmvar/invscan/seq"
)

func TestClassifyKmers(t *testing.T) {
	u := seq.NewKmerUtil(4)
	refKmers := map[seq.Kmer]int{
		u.Parse("ACGG"): 3, // forward only
		u.Parse("CCAA"): 1, // reverse complement of TTGG
		u.Parse("ATAT"): 2, // own reverse complement: both orientations
	}

	stream := u.Stream("ACGG") // FWD
	records := classifyKmers(stream, refKmers)
	expect.That(t, records, h.ElementsAre(
		KmerRecord{Kmer: u.Parse("ACGG"), Index: 0, State: StateFwd}))

	records = classifyKmers(u.Stream("TTGG"), refKmers)
	expect.That(t, records, h.ElementsAre(
		KmerRecord{Kmer: u.Parse("TTGG"), Index: 0, State: StateRev}))

	records = classifyKmers(u.Stream("ATAT"), refKmers)
	expect.That(t, records, h.ElementsAre(
		KmerRecord{Kmer: u.Parse("ATAT"), Index: 0, State: StateFwdRev}))

	// Uninformative k-mers never appear in the output.
	records = classifyKmers(u.Stream("GGGG"), refKmers)
	expect.EQ(t, len(records), 0)
}

func TestClassifyKmersOrder(t *testing.T) {
	u := seq.NewKmerUtil(3)
	// Reference holds every 3-mer of the contig, so all positions are
	// informative and order must match the stream.
	contig := "ACGTTGCA"
	refKmers := u.CountKmers(contig)
	records := classifyKmers(u.Stream(contig), refKmers)
	expect.EQ(t, len(records), len(contig)-u.K+1)
	for i, rec := range records {
		expect.EQ(t, rec.Index, i)
		expect.True(t, rec.State == StateFwd || rec.State == StateFwdRev || rec.State == StateRev)
	}
}
