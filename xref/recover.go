package xref

import (
	"context"
	"log"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/benedoc-inc/pdfcore/ioscan"
	"github.com/benedoc-inc/pdfcore/parser"
	"github.com/benedoc-inc/pdfcore/types"
)

// recover_ rebuilds a Table by brute-force scanning buf for "N G obj"
// occurrences at the start of a line, and then locating a trailer
// dictionary by scanning backward for the "trailer" keyword or, failing
// that, by building one whose /Root names a recovered object whose
// dictionary carries /Type /Catalog. The scan is sharded across workers
// via errgroup since it's a linear byte scan over the whole file and
// independent chunks never produce conflicting results.
func recover_(buf []byte, verbose bool) (*Table, error) {
	entries := scanForObjects(buf, verbose)

	trailer, err := recoverTrailer(buf, entries)
	if err != nil {
		return nil, err
	}

	if verbose {
		log.Printf("xref: brute-force recovery found %d objects", len(entries))
	}

	return &Table{
		Entries:   entries,
		Trailer:   trailer,
		Recovered: true,
	}, nil
}

// scanForObjects finds every "N G obj" occurrence at the start of a line.
// When a number is declared more than once (revisions appended to the same
// file), the last occurrence wins, matching how the last xref section in a
// chain would normally override earlier ones.
func scanForObjects(buf []byte, verbose bool) map[uint32]types.ObjectEntry {
	shardCount := runtime.NumCPU()
	if shardCount < 1 {
		shardCount = 1
	}
	if shardCount > 8 {
		shardCount = 8
	}
	if len(buf) < 1<<20 {
		shardCount = 1
	}

	shardSize := (len(buf) + shardCount - 1) / shardCount
	results := make([][]scanHit, shardCount)

	g, _ := errgroup.WithContext(context.Background())
	var mu sync.Mutex
	for shard := 0; shard < shardCount; shard++ {
		shard := shard
		g.Go(func() error {
			start := shard * shardSize
			end := start + shardSize
			if end > len(buf) {
				end = len(buf)
			}
			if start >= end {
				return nil
			}
			local := scanShard(buf, start, end)
			mu.Lock()
			results[shard] = local
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	entries := make(map[uint32]types.ObjectEntry)
	var all []scanHit
	for _, r := range results {
		all = append(all, r...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].offset < all[j].offset })
	for _, f := range all {
		entries[f.num] = types.ObjectEntry{Kind: types.EntryInUse, Offset: f.offset, Generation: uint16(f.gen)}
	}
	return entries
}

type scanHit struct {
	num, gen uint32
	offset   int64
}

func scanShard(buf []byte, start, end int) []scanHit {
	var hits []scanHit
	pos := start
	for pos < end {
		if !atLineStart(buf, pos) {
			pos++
			continue
		}
		s := ioscan.NewScannerAt(buf, pos)
		num, ok := s.ReadDecimal()
		if !ok || num < 0 {
			pos++
			continue
		}
		s.SkipWhitespace()
		gen, ok := s.ReadDecimal()
		if !ok || gen < 0 {
			pos++
			continue
		}
		s.SkipWhitespace()
		if s.MatchLiteral("obj") {
			hits = append(hits, scanHit{num: uint32(num), gen: uint32(gen), offset: int64(pos)})
		}
		pos++
	}
	return hits
}

func atLineStart(buf []byte, pos int) bool {
	if pos == 0 {
		return true
	}
	b := buf[pos-1]
	return b == '\n' || b == '\r'
}

// recoverTrailer finds a trailer dictionary: first by scanning backward for
// the literal "trailer" keyword, then (for xref-stream-only documents, which
// have no "trailer" keyword at all) by resolving /Root from the last object
// whose dictionary carries /Type /Catalog.
func recoverTrailer(buf []byte, entries map[uint32]types.ObjectEntry) (*types.Dict, error) {
	idx := ioscan.LocateBackward(buf, []byte("trailer"), 0)
	if idx >= 0 {
		s := ioscan.NewScannerAt(buf, idx+len("trailer"))
		s.SkipWhitespace()
		if v, err := parser.ParseValue(s); err == nil {
			if d, ok := v.Dict(); ok {
				return d, nil
			}
		}
	}

	// No classic trailer keyword: look for a /Type /Catalog object directly.
	var nums []uint32
	for num := range entries {
		nums = append(nums, num)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] > nums[j] })

	for _, num := range nums {
		e := entries[num]
		if e.Kind != types.EntryInUse {
			continue
		}
		s := ioscan.NewScannerAt(buf, int(e.Offset))
		if _, err := parser.ParseIndirectObjectHeader(s); err != nil {
			continue
		}
		v, err := parser.ParseIndirectObjectBody(s, nil)
		if err != nil {
			continue
		}
		d, ok := v.Dict()
		if !ok {
			continue
		}
		if tv, ok := d.Get("Type"); ok {
			if name, _ := tv.Name(); name == "Catalog" {
				trailer := types.NewDict()
				trailer.Set("Root", types.IndirectRef(num, e.Generation))
				trailer.Set("Size", types.Int(int64(maxObjNum(entries)+1)))
				return trailer, nil
			}
		}
	}

	trailer := types.NewDict()
	trailer.Set("Size", types.Int(int64(maxObjNum(entries)+1)))
	return trailer, nil
}

func maxObjNum(entries map[uint32]types.ObjectEntry) uint32 {
	var max uint32
	for num := range entries {
		if num > max {
			max = num
		}
	}
	return max
}
