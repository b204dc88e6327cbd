package inv

import (
	"github.com/asmvar/invscan/seq"
)

// State labels the orientation of a contig k-mer relative to the reference
// region: found in forward orientation only, in both forward and
// reverse-complement, or in reverse-complement only.
type State int

const (
	StateFwd State = iota
	StateFwdRev
	StateRev
	numStates
)

func (s State) String() string {
	switch s {
	case StateFwd:
		return "FWD"
	case StateFwdRev:
		return "FWDREV"
	case StateRev:
		return "REV"
	}
	return "INVALID"
}

// KmerRecord is one informative contig k-mer: its value, its 0-based offset
// within the extracted contig sequence, and its raw orientation state.
type KmerRecord struct {
	Kmer  seq.Kmer
	Index int
	State State
}

// classifyKmers labels each contig k-mer by orientation against the
// reference k-mer counts. K-mers found in neither orientation are
// uninformative and dropped. Order of the stream is preserved.
func classifyKmers(stream []seq.KmerPos, refKmers map[seq.Kmer]int) []KmerRecord {
	records := make([]KmerRecord, 0, len(stream))
	for _, kp := range stream {
		fwd := refKmers[kp.Fwd] > 0
		rev := refKmers[kp.Rev] > 0
		var state State
		switch {
		case fwd && rev:
			state = StateFwdRev
		case fwd:
			state = StateFwd
		case rev:
			state = StateRev
		default:
			continue
		}
		records = append(records, KmerRecord{Kmer: kp.Fwd, Index: kp.Index, State: state})
	}
	return records
}
