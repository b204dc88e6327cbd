package seq

import (
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestRegionBasics(t *testing.T) {
	r, err := NewRegion("chr1", 100, 250)
	expect.NoError(t, err)
	expect.EQ(t, r.Len(), 150)
	expect.EQ(t, r.String(), "chr1:101-250")

	_, err = NewRegion("chr1", -1, 10)
	expect.True(t, err != nil)
	_, err = NewRegion("chr1", 10, 5)
	expect.True(t, err != nil)
}

func TestRegionExpandBalance(t *testing.T) {
	lens := map[string]int{"chr1": 100000}

	r := Region{Chrom: "chr1", Pos: 1000, End: 2000}
	r.Expand(1000, 0, lens, true, 0.5)
	expect.EQ(t, r, Region{Chrom: "chr1", Pos: 500, End: 2500})

	r = Region{Chrom: "chr1", Pos: 1000, End: 2000}
	r.Expand(1000, 0, lens, true, 0.25)
	expect.EQ(t, r, Region{Chrom: "chr1", Pos: 750, End: 2750})

	r = Region{Chrom: "chr1", Pos: 1000, End: 2000}
	r.Expand(1000, 0, lens, true, 0.75)
	expect.EQ(t, r, Region{Chrom: "chr1", Pos: 250, End: 2250})
}

func TestRegionExpandClamp(t *testing.T) {
	lens := map[string]int{"chr1": 3000}

	// Clipped at the start; shift reapplies the loss downstream.
	r := Region{Chrom: "chr1", Pos: 100, End: 1000}
	r.Expand(400, 0, lens, true, 0.5)
	expect.EQ(t, r, Region{Chrom: "chr1", Pos: 0, End: 1300})

	// Clipped at the start without shift.
	r = Region{Chrom: "chr1", Pos: 100, End: 1000}
	r.Expand(400, 0, lens, false, 0.5)
	expect.EQ(t, r, Region{Chrom: "chr1", Pos: 0, End: 1200})

	// Clipped at the chromosome end; shift reapplies upstream.
	r = Region{Chrom: "chr1", Pos: 2000, End: 2900}
	r.Expand(400, 0, lens, true, 0.5)
	expect.EQ(t, r, Region{Chrom: "chr1", Pos: 1700, End: 3000})

	// Both boundaries hit: the region saturates the chromosome and further
	// expansion has no effect.
	r = Region{Chrom: "chr1", Pos: 0, End: 3000}
	r.Expand(1000, 0, lens, true, 0.5)
	expect.EQ(t, r, Region{Chrom: "chr1", Pos: 0, End: 3000})
}

func TestRegionExpandMonotonic(t *testing.T) {
	lens := map[string]int{"chr1": 50000}
	r := Region{Chrom: "chr1", Pos: 20000, End: 21000}
	for i := 0; i < 20; i++ {
		last := r.Len()
		r.Expand(int(float64(r.Len())*1.5), 0, lens, true, 0.5)
		expect.True(t, r.Len() >= last, "expansion shrank the region")
		expect.True(t, r.Pos >= 0 && r.End <= 50000)
	}
	expect.EQ(t, r.Len(), 50000)
}
