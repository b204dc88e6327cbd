// Package inv calls genomic inversions by comparing k-mer content between a
// reference region and the assembled contig aligned over it. Starting from a
// flagged candidate region, the scanner classifies contig k-mers by
// orientation against the reference, smooths the states with per-state
// kernel density estimates, and grows the region until the inverted signal
// is flanked by forward-oriented sequence on both sides.
package inv

import (
	"fmt"
	"io"

	"github.com/grailbio/base/log"
	"github.com/grailbio/bio/encoding/fasta"

	"github.com/asmvar/invscan/align"
	"github.com/asmvar/invscan/seq"
)

// Scanner scans flagged regions for inversions. A Scanner holds no per-scan
// state, so one Scanner may serve concurrent Scan calls as long as Log is
// nil or safe for concurrent writes.
type Scanner struct {
	// RefFasta and TigFasta are the reference and contig sequence sources.
	RefFasta fasta.Fasta
	TigFasta fasta.Fasta
	// Lift maps regions between reference and contig coordinates.
	Lift *align.Lift
	// Opts holds the scan thresholds, normally DefaultOpts.
	Opts Opts
	// Log receives human-readable progress and failure messages. nil
	// disables scan logging.
	Log io.Writer
}

// scanState carries one Scan invocation so concurrent scans never share
// mutable state.
type scanState struct {
	*Scanner
	kutil     seq.KmerUtil
	chromLens map[string]int
	flagID    string
}

func (s *scanState) logf(format string, args ...interface{}) {
	if s.Log == nil {
		return
	}
	fmt.Fprintf(s.Log, format+"\n", args...)
}

// Scan scans a flagged region for an inversion, expanding the region as
// necessary until the inverted signal is flanked by reference-oriented
// k-mers or the search is exhausted. flagID identifies the flagged region in
// logs.
//
// Returns the inversion found, or nil when the region does not support an
// inversion call. A nil return is the normal negative outcome, not an error.
func (s *Scanner) Scan(region seq.Region, flagID string) *InvCall {
	if flagID == "" {
		flagID = "<No ID>"
	}
	st := &scanState{
		Scanner:   s,
		kutil:     seq.NewKmerUtil(s.Opts.K),
		chromLens: seq.ChromLens(s.RefFasta),
		flagID:    flagID,
	}
	return st.scan(region)
}

func (s *scanState) scan(region seq.Region) *InvCall {
	s.logf("Scanning for inversions in flagged region: %v (flagged region record id = %s)", region, s.flagID)

	regionFlag := region.Copy()

	regionRef := region.Copy()
	regionRef.Expand(s.Opts.InitialExpand, 0, s.chromLens, true, 0.5)

	var (
		regionTig      seq.Region
		runs           []stateRun
		rows           []StateRow
		expansionCount int
	)

	for {
		var ok bool
		regionTig, ok = s.Lift.LiftRegionToQry(regionRef)
		if !ok {
			s.logf("Could not lift reference region onto contigs: %v", regionRef)
			return nil
		}

		expansionCount++

		s.logf("Scanning region: %v", regionRef)

		refKmerCount, err := seq.RefKmers(s.RefFasta, regionRef, s.kutil)
		if err != nil || len(refKmerCount) == 0 {
			s.logf("No reference k-mers")
			return nil
		}

		// Skip low-complexity sites with repetitive k-mers.
		maxMer, maxMerCount := maxCountKmer(refKmerCount)
		if maxMerCount > s.Opts.MaxRefKmerCount {
			s.logf("K-mer count exceeds max in %v: %d > %d (%s)",
				regionFlag, maxMerCount, s.Opts.MaxRefKmerCount, s.kutil.String(maxMer))
			return nil
		}

		seqTig, err := seq.RegionSeq(s.TigFasta, regionTig, region.IsRev)
		if err != nil {
			s.logf("Could not extract contig sequence for %v: %v", regionTig, err)
			return nil
		}

		records := classifyKmers(s.kutil.Stream(seqTig), refKmerCount)
		rows = smoothStates(records, s.Opts)

		if len(rows) == 0 {
			s.logf("No informative reference k-mers in forward or reverse orientation in region")
			return nil
		}

		runs = rlEncode(rows)

		if len(runs) == 1 && runs[0].state == StateFwd && expansionCount >= s.Opts.MinExpCount {
			s.logf("Found no inverted k-mer states after %d expansion(s)", expansionCount)
			return nil
		}

		// Done if reference-oriented k-mers flank the signal on both sides.
		if len(runs) > 2 && runs[0].state == StateFwd && runs[len(runs)-1].state == StateFwd {
			break
		}

		// Expand. When forward anchor signal was already found on one end
		// only, bias growth toward the other end.
		lastLen := regionRef.Len()
		expandBp := int(float64(lastLen) * s.Opts.ExpandFactor)

		balance := 0.5
		if len(runs) > 2 {
			if runs[0].state == StateFwd {
				balance = 0.25 // ref upstream: +25% upstream, +75% downstream
			} else if runs[len(runs)-1].state == StateFwd {
				balance = 0.75 // ref downstream: +75% upstream, +25% downstream
			}
		}
		regionRef.Expand(expandBp, 0, s.chromLens, true, balance)

		if regionRef.Len() > s.Opts.MaxRegionSize {
			s.logf("Region size exceeds maximum (%d): %v", s.Opts.MaxRegionSize, regionRef)
			return nil
		}

		if regionRef.Len() == lastLen {
			// Expansion had no effect.
			s.logf("Reached reference limits, cannot expand")
			return nil
		}
	}

	// Stop if no inverted sequence was found.
	maxInvRun := 0
	var invRuns []stateRun
	for _, run := range runs {
		if run.state == StateRev {
			invRuns = append(invRuns, run)
			if run.count > maxInvRun {
				maxInvRun = run.count
			}
		}
	}
	if len(invRuns) == 0 {
		s.logf("No inverted states found")
		return nil
	}

	if maxInvRun < s.Opts.MinInvKmerRun {
		s.logf("Longest run of strictly inverted k-mers (%d) does not meet the minimum threshold (%d)",
			maxInvRun, s.Opts.MinInvKmerRun)
		return nil
	}

	// Code check - must be flanked by reference sequence.
	if runs[0].state != StateFwd || runs[len(runs)-1].state != StateFwd {
		log.Panicf("found inversion region not flanked by reference sequence (program bug): %v", regionRef)
	}

	// Outer breakpoints exclude only the outermost pure-forward anchors;
	// inner breakpoints bound the strictly inverted sequence. Both extend by
	// one k-mer length to cover the full span of the last k-mer.
	regionTigOuter := seq.Region{
		Chrom: regionTig.Chrom,
		Pos:   runs[1].firstIndex + regionTig.Pos,
		End:   runs[len(runs)-2].lastIndex + regionTig.Pos + s.kutil.K,
	}
	regionTigInner := seq.Region{
		Chrom: regionTig.Chrom,
		Pos:   invRuns[0].firstIndex + regionTig.Pos,
		End:   invRuns[len(invRuns)-1].lastIndex + regionTig.Pos + s.kutil.K,
	}

	regionRefOuter, ok := s.Lift.LiftRegionToSub(regionTigOuter)
	if !ok {
		s.logf("Could not lift outer contig breakpoints onto the reference: %v", regionTigOuter)
		return nil
	}
	regionRefInner, ok := s.Lift.LiftRegionToSub(regionTigInner)
	if !ok {
		s.logf("Could not lift inner contig breakpoints onto the reference: %v", regionTigInner)
		return nil
	}

	// Check size proportions. A large imbalance means the event is likely
	// unbalanced (INS or DEL) and already in the callset.
	if float64(regionRefOuter.Len()) < float64(regionTigOuter.Len())*s.Opts.MinTigRefProp {
		s.logf("Reference region too short: Reference region length (%d) is not within %.2f%% of the contig region length (%d)",
			regionRefOuter.Len(), s.Opts.MinTigRefProp*100, regionTigOuter.Len())
		return nil
	}
	if float64(regionTigOuter.Len()) < float64(regionRefOuter.Len())*s.Opts.MinTigRefProp {
		s.logf("Contig region too short: Contig region length (%d) is not within %.2f%% of the reference region length (%d)",
			regionTigOuter.Len(), s.Opts.MinTigRefProp*100, regionRefOuter.Len())
		return nil
	}

	// Where there is an inverted duplication on the flanks, flag k-mers that
	// belong strictly to the upstream or downstream flanking copy.
	annotated, err := annotateInvDupMers(
		rows, regionRefOuter, regionRefInner, regionTigOuter, regionTigInner, regionTig,
		s.RefFasta, s.kutil)
	if err != nil {
		s.logf("Could not annotate flanking duplications: %v", err)
		return nil
	}

	return newInvCall(
		regionRefOuter, regionRefInner,
		regionTigOuter, regionTigInner,
		regionRef, regionTig,
		regionFlag,
		annotated,
	)
}

func maxCountKmer(counts map[seq.Kmer]int) (seq.Kmer, int) {
	var maxMer seq.Kmer
	maxCount := 0
	for km, count := range counts {
		if count > maxCount {
			maxMer, maxCount = km, count
		}
	}
	return maxMer, maxCount
}
