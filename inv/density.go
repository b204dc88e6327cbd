package inv

import (
	"math"

	"github.com/asmvar/invscan/seq"
)

// StateRow is one row of the smoothed state table: an informative k-mer, the
// kernel density estimate of each state at its position, and the final state
// label.
type StateRow struct {
	Kmer     seq.Kmer
	Index    int
	RawState State
	// Kern[s] is state s's density at Index, weighted by the state's share
	// of informative k-mers so the three values are directly comparable.
	Kern  [numStates]float64
	State State
}

// smoothStates converts raw per-position orientation states into a
// run-stable label sequence. Repetitive and ambiguous k-mers make the raw
// states jitter; a per-state kernel density estimate turns them into
// contiguous orientation blocks suitable for run-length breakpoint
// inference.
//
// Returns nil when the region has fewer than MinInformativeKmers informative
// k-mers, which signals the caller to try a larger region.
func smoothStates(records []KmerRecord, opts Opts) []StateRow {
	n := len(records)
	if n < opts.MinInformativeKmers {
		return nil
	}

	var statePos [numStates][]float64
	rows := make([]StateRow, n)
	eval := make([]float64, n)
	for i, rec := range records {
		statePos[rec.State] = append(statePos[rec.State], float64(rec.Index))
		rows[i] = StateRow{Kmer: rec.Kmer, Index: rec.Index, RawState: rec.State}
		eval[i] = float64(rec.Index)
	}

	for s := StateFwd; s < numStates; s++ {
		dens := gaussianKDE(statePos[s], eval, opts.SmoothFactor, n)
		for i := range rows {
			rows[i].Kern[s] = dens[i]
		}
	}

	active := [numStates]bool{true, true, true}
	for i := range rows {
		s, _ := maxState(rows[i].Kern, active)
		rows[i].State = s
	}

	// Drop states with too few k-mers to be a real orientation block,
	// reassigning their rows to the best remaining state. Reassignment only
	// grows the surviving states, so this converges.
	for {
		var counts [numStates]int
		for i := range rows {
			counts[rows[i].State]++
		}
		changed := false
		for s := StateFwd; s < numStates; s++ {
			if active[s] && counts[s] > 0 && counts[s] < opts.MinStateCount {
				active[s] = false
				changed = true
			}
		}
		if !changed {
			break
		}
		for i := range rows {
			if !active[rows[i].State] {
				s, ok := maxState(rows[i].Kern, active)
				if !ok {
					return nil
				}
				rows[i].State = s
			}
		}
	}
	return rows
}

// maxState returns the active state with the highest density. Exact ties
// resolve to the earlier state in FWD, FWDREV, REV order so smoothing is
// reproducible.
func maxState(kern [numStates]float64, active [numStates]bool) (State, bool) {
	best := State(-1)
	for s := StateFwd; s < numStates; s++ {
		if !active[s] {
			continue
		}
		if best < 0 || kern[s] > kern[best] {
			best = s
		}
	}
	return best, best >= 0
}

// gaussianKDE evaluates a Gaussian kernel density over the sample positions
// xs at every point of eval. Both slices must be ascending. The bandwidth is
// Scott's rule scaled by smoothFactor, floored at one base. The result is
// weighted by len(xs)/total, i.e. it is the state's share of the mixture
// density, so densities of different states compare directly.
//
// The kernel is truncated at four bandwidths; with ascending inputs a
// sliding window keeps the evaluation near linear.
func gaussianKDE(xs, eval []float64, smoothFactor float64, total int) []float64 {
	out := make([]float64, len(eval))
	ns := len(xs)
	if ns == 0 || total == 0 {
		return out
	}
	bw := scottBandwidth(xs) * smoothFactor
	if bw < 1 {
		bw = 1
	}
	// weight*sum(kernels) == (ns/total) * (1/(ns*bw*sqrt(2pi))) * sum.
	weight := 1 / (float64(total) * bw * math.Sqrt(2*math.Pi))
	cutoff := 4 * bw

	lo, hi := 0, 0
	for i, x := range eval {
		for lo < ns && xs[lo] < x-cutoff {
			lo++
		}
		if hi < lo {
			hi = lo
		}
		for hi < ns && xs[hi] <= x+cutoff {
			hi++
		}
		sum := 0.0
		for j := lo; j < hi; j++ {
			z := (x - xs[j]) / bw
			sum += math.Exp(-0.5 * z * z)
		}
		out[i] = weight * sum
	}
	return out
}

// scottBandwidth estimates a kernel bandwidth for xs by Scott's rule,
// sigma * n^(-1/5).
func scottBandwidth(xs []float64) float64 {
	n := float64(len(xs))
	if n < 2 {
		return 1
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= n
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	sigma := math.Sqrt(ss / (n - 1))
	return sigma * math.Pow(n, -0.2)
}

// stateRun is one run of identical smoothed states: the state, the number of
// k-mers in the run, and the contig offsets of the first and last k-mer
// (inclusive).
type stateRun struct {
	state      State
	count      int
	firstIndex int
	lastIndex  int
}

// rlEncode run-length encodes the smoothed state labels.
func rlEncode(rows []StateRow) []stateRun {
	var runs []stateRun
	for _, row := range rows {
		if len(runs) > 0 && runs[len(runs)-1].state == row.State {
			last := &runs[len(runs)-1]
			last.count++
			last.lastIndex = row.Index
			continue
		}
		runs = append(runs, stateRun{
			state:      row.State,
			count:      1,
			firstIndex: row.Index,
			lastIndex:  row.Index,
		})
	}
	return runs
}
