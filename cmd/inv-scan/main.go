package main

/*
inv-scan scans flagged genomic regions for inversions by comparing k-mer
content between a reference and an assembly aligned to it. It reads the
reference and contig FASTAs, the contig-to-reference alignments (SAM), and a
BED of flagged candidate regions, and writes one TSV row per inversion call.
*/

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/bio/encoding/fasta"
	"github.com/grailbio/hts/sam"

	"github.com/asmvar/invscan/align"
	"github.com/asmvar/invscan/inv"
	"github.com/asmvar/invscan/seq"
)

var (
	bedPath     = flag.String("bed", "", "Input BED path of flagged regions; required. Column 4 (if present) is the flag id, column 6 a +/- strand")
	outPath     = flag.String("out", "", "Output TSV path; defaults to standard output")
	logPath     = flag.String("log", "", "Per-region scan log path; defaults to no scan logging")
	kmerLength  = flag.Int("k", inv.DefaultOpts.K, "K-mer length")
	parallelism = flag.Int("parallelism", 0, "Maximum number of simultaneous region scans; 0 = runtime.NumCPU()")
)

func invScanUsage() {
	fmt.Printf("Usage: %s [OPTIONS] ref.fa tig.fa align.sam\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

// flaggedRegion is one BED row: the candidate region and its id for log
// traceability.
type flaggedRegion struct {
	region seq.Region
	flagID string
}

func parseBed(r io.Reader) ([]flaggedRegion, error) {
	var regions []flaggedRegion
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "track") {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 3 {
			return nil, fmt.Errorf("line %d: expected at least 3 BED columns, got %d", lineNo, len(cols))
		}
		start, err := strconv.Atoi(cols[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad start: %v", lineNo, err)
		}
		end, err := strconv.Atoi(cols[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad end: %v", lineNo, err)
		}
		region, err := seq.NewRegion(cols[0], start, end)
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", lineNo, err)
		}
		fr := flaggedRegion{region: region}
		if len(cols) > 3 {
			fr.flagID = cols[3]
		}
		if len(cols) > 5 && cols[5] == "-" {
			fr.region.IsRev = true
		}
		regions = append(regions, fr)
	}
	return regions, scanner.Err()
}

func openFasta(path string) fasta.Fasta {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("open %s: %v", path, err)
	}
	if fai, err2 := os.Open(path + ".fai"); err2 == nil {
		fa, err2 := fasta.NewIndexed(f, fai)
		if err2 != nil {
			log.Fatalf("read %s with index: %v", path, err2)
		}
		return fa
	}
	fa, err := fasta.New(f)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("close %s: %v", path, err)
	}
	return fa
}

func readAlignments(path string) []*sam.Record {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("open %s: %v", path, err)
	}
	defer f.Close() // nolint: errcheck
	r, err := sam.NewReader(f)
	if err != nil {
		log.Fatalf("read %s: failed to open SAM: %v", path, err)
	}
	var records []*sam.Record
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("read %s: %v", path, err)
		}
		records = append(records, rec)
	}
	return records
}

// syncWriter serializes scan-log writes from concurrent region scans.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func writeCalls(w io.Writer, calls []*inv.InvCall) error {
	tsvw := tsv.NewWriter(w)
	tsvw.WriteString("#ID\tCHROM\tPOS\tEND\tSVLEN\tTIG_REGION\tREF_INNER\tTIG_INNER\tFLAG_REGION\tMAX_INV_DEN_DIFF")
	if err := tsvw.EndLine(); err != nil {
		return err
	}
	for _, call := range calls {
		if call == nil {
			continue
		}
		tsvw.WriteString(call.ID)
		tsvw.WriteString(call.RegionRefOuter.Chrom)
		// 0-based coordinates in binary files, 1-based in text.
		tsvw.WriteUint32(uint32(call.RegionRefOuter.Pos + 1))
		tsvw.WriteUint32(uint32(call.RegionRefOuter.End))
		tsvw.WriteUint32(uint32(call.SVLen))
		tsvw.WriteString(call.RegionTigOuter.String())
		tsvw.WriteString(call.RegionRefInner.String())
		tsvw.WriteString(call.RegionTigInner.String())
		tsvw.WriteString(call.RegionFlag.String())
		tsvw.WriteString(strconv.FormatFloat(call.MaxInvDenDiff, 'g', 6, 64))
		if err := tsvw.EndLine(); err != nil {
			return err
		}
	}
	return tsvw.Flush()
}

func main() {
	flag.Usage = invScanUsage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 3 {
		log.Fatalf("Expected 3 positional arguments (ref.fa tig.fa align.sam), got %d; run with -help for usage", flag.NArg())
	}
	if *bedPath == "" {
		log.Fatalf("-bed is required")
	}
	refPath, tigPath, samPath := flag.Arg(0), flag.Arg(1), flag.Arg(2)

	refFasta := openFasta(refPath)
	tigFasta := openFasta(tigPath)

	lift, err := align.NewLift(readAlignments(samPath))
	if err != nil {
		log.Fatalf("build lift from %s: %v", samPath, err)
	}

	bedFile, err := os.Open(*bedPath)
	if err != nil {
		log.Fatalf("open %s: %v", *bedPath, err)
	}
	regions, err := parseBed(bedFile)
	if err != nil {
		log.Fatalf("parse %s: %v", *bedPath, err)
	}
	if err := bedFile.Close(); err != nil {
		log.Fatalf("close %s: %v", *bedPath, err)
	}
	log.Printf("inv-scan: %d flagged region(s)", len(regions))

	opts := inv.DefaultOpts
	opts.K = *kmerLength

	var scanLog io.Writer
	if *logPath != "" {
		f, err := os.Create(*logPath)
		if err != nil {
			log.Fatalf("create %s: %v", *logPath, err)
		}
		defer f.Close() // nolint: errcheck
		scanLog = &syncWriter{w: f}
	}

	scanner := &inv.Scanner{
		RefFasta: refFasta,
		TigFasta: tigFasta,
		Lift:     lift,
		Opts:     opts,
		Log:      scanLog,
	}

	p := *parallelism
	if p <= 0 {
		p = runtime.NumCPU()
	}
	calls := make([]*inv.InvCall, len(regions))
	err = traverse.Each(p, func(jobIdx int) error {
		startIdx := (jobIdx * len(regions)) / p
		endIdx := ((jobIdx + 1) * len(regions)) / p
		for i := startIdx; i < endIdx; i++ {
			calls[i] = scanner.Scan(regions[i].region, regions[i].flagID)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("scan: %v", err)
	}

	nCalls := 0
	for _, call := range calls {
		if call != nil {
			nCalls++
		}
	}
	log.Printf("inv-scan: %d inversion call(s)", nCalls)

	out := io.Writer(os.Stdout)
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatalf("create %s: %v", *outPath, err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				log.Fatalf("close %s: %v", *outPath, err)
			}
		}()
		out = f
	}
	if err := writeCalls(out, calls); err != nil {
		log.Fatalf("write calls: %v", err)
	}
}
