package render

import (
	"iter"

	"github.com/lychee-technology/colbeam/internal/codec"
	"github.com/lychee-technology/colbeam/internal/exec"
)

// ToLazySequence returns an iter.Seq[T] that decodes rows one at a time as
// the caller pulls them, instead of materializing the whole result up
// front like ToList does. A decode error stops the sequence early; the
// caller has no way to observe it through iter.Seq's shape, so this is
// meant for callers that trust the batch they already validated at
// freeze time (ToList remains the terminator for anything that needs a
// hard error return).
func ToLazySequence[T any](result *exec.QueryResult, rc codec.RowCodec[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		if result == nil || result.Batch == nil {
			return
		}
		result.Selected.ForEach(func(_ int, row int) bool {
			item, err := rc.Read(result.Batch, row)
			if err != nil {
				return false
			}
			return yield(item)
		})
	}
}
