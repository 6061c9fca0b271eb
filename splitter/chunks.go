package splitter

import (
	"context"
	"runtime"
)

// DefaultChunkSize is the number of top-level entries processed per
// synchronous stretch when chunked extraction is enabled.
const DefaultChunkSize = 1000

// ExtractChunked splits doc's top-level entries into consecutive groups
// of at most chunkSize, extracts each group, and unions the partial
// results in order. Top-level keys are disjoint, so the union can never
// overwrite earlier groups and the output is identical to a single
// Extract pass; chunking changes scheduling granularity only.
//
// Between groups the goroutine yields, bounding any single uninterrupted
// stretch of work to O(chunkSize) node visits. The context is checked at
// the same boundaries; extraction is never aborted mid-chunk.
func ExtractChunked(ctx context.Context, doc *Object, lang string, set LanguageSet, chunkSize int) (*Object, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	out := newObject()
	keys := doc.keys

	for start := 0; start < len(keys); start += chunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(start+chunkSize, len(keys))
		group := newObject()
		for _, k := range keys[start:end] {
			group.set(k, doc.vals[k])
		}

		part := Extract(group, lang, set)
		for _, k := range part.keys {
			out.set(k, part.vals[k])
		}

		runtime.Gosched()
	}

	return out, nil
}
