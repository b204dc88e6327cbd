package seq

import (
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/bio/biosimd"
	"github.com/grailbio/bio/encoding/fasta"
	"github.com/pkg/errors"
)

// ReverseComplement computes the reverse complement of a DNA string.
func ReverseComplement(seq string) string {
	buf := make([]byte, len(seq))
	biosimd.ReverseComp8NoValidate(buf, gunsafe.StringToBytes(seq))
	return gunsafe.BytesToString(buf)
}

// RegionSeq extracts the sequence of region from fa, reverse-complemented
// when rev.
func RegionSeq(fa fasta.Fasta, region Region, rev bool) (string, error) {
	s, err := fa.Get(region.Chrom, uint64(region.Pos), uint64(region.End))
	if err != nil {
		return "", errors.Wrapf(err, "extracting %v", region)
	}
	if rev {
		s = ReverseComplement(s)
	}
	return s, nil
}

// RefKmers returns forward-orientation k-mer counts for a reference region.
func RefKmers(fa fasta.Fasta, region Region, kutil KmerUtil) (map[Kmer]int, error) {
	s, err := RegionSeq(fa, region, false)
	if err != nil {
		return nil, err
	}
	return kutil.CountKmers(s), nil
}

// ChromLens builds the chromosome length table used to clamp region
// expansion.
func ChromLens(fa fasta.Fasta) map[string]int {
	lens := make(map[string]int)
	for _, name := range fa.SeqNames() {
		n, err := fa.Len(name)
		if err != nil {
			continue
		}
		lens[name] = int(n)
	}
	return lens
}
