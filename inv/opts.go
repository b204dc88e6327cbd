package inv

// Opts holds the tunable thresholds of the inversion scanner. Scanner takes
// Opts by value, so alternate thresholds in tests never leak between scans.
type Opts struct {
	// K is the k-mer length used to compare reference and contig sequence.
	K int
	// InitialExpand is the number of bases the flagged region is expanded by
	// before the first scan iteration.
	InitialExpand int
	// ExpandFactor scales the current region length into the number of bases
	// added on each failed iteration.
	ExpandFactor float64
	// MaxRegionSize caps the search region. Expansion past this size abandons
	// the scan.
	MaxRegionSize int
	// MaxRefKmerCount skips low-complexity sites: if any reference k-mer
	// occurs more than this many times in the region, the scan is abandoned.
	MaxRefKmerCount int
	// MinInformativeKmers is the minimum number of contig k-mers matching the
	// reference region in either orientation for density smoothing to run.
	MinInformativeKmers int
	// MinStateCount removes states with fewer than this many k-mers after
	// smoothing. Eliminates spikes in density.
	MinStateCount int
	// SmoothFactor adjusts the kernel bandwidth after Scott's rule estimates
	// it.
	SmoothFactor float64
	// MinInvKmerRun is the minimum length of a continuous run of strictly
	// inverted k-mers.
	MinInvKmerRun int
	// MinTigRefProp is the minimum reciprocal length proportion between the
	// contig and reference outer regions. A violation means the event is
	// likely unbalanced (INS or DEL) and already in the callset.
	MinTigRefProp float64
	// MinExpCount is the number of region expansions to try while finding
	// only forward k-mer states before giving up on the region.
	MinExpCount int
}

// DefaultOpts sets the default values for Opts.
var DefaultOpts = Opts{
	K:                   31,
	InitialExpand:       4000,
	ExpandFactor:        1.5,
	MaxRegionSize:       1000000,
	MaxRefKmerCount:     100,
	MinInformativeKmers: 2000,
	MinStateCount:       20,
	SmoothFactor:        1,
	MinInvKmerRun:       100,
	MinTigRefProp:       0.6,
	MinExpCount:         3,
}
