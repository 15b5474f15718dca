package columnar

import "fmt"

// Rebuild copies every row of batch into a fresh Batch matching target's
// field order and kinds. Used by ingest's post-sampling dictionary-encoding
// decision: the first pass builds plain columns, a string column that
// crosses the dictionary threshold is re-declared as KindDictionaryString
// in target, and this function re-materializes the whole batch against
// the finalized schema (arrow builders have no in-place re-encode).
func Rebuild(batch *Batch, target *Schema) (*Batch, error) {
	if len(target.Fields) != len(batch.Schema().Fields) {
		return nil, fmt.Errorf("columnar: rebuild schema field count %d does not match batch %d", len(target.Fields), len(batch.Schema().Fields))
	}
	builders := make([]*Builder, len(target.Fields))
	for i, f := range target.Fields {
		b, err := NewBuilder(f)
		if err != nil {
			return nil, err
		}
		builders[i] = b
	}
	if err := appendAllRowsFromBatch(target, builders, batch); err != nil {
		return nil, err
	}
	rec, err := NewRecordFromBuilders(target, builders)
	if err != nil {
		return nil, err
	}
	defer rec.Release()
	return NewBatch(rec)
}

// appendAllRowsFromBatch is appendAllRows's Batch-sourced counterpart; used
// when the source is already a wrapped Batch (not just an arrow.Record) so
// callers needn't re-wrap.
func appendAllRowsFromBatch(schema *Schema, builders []*Builder, src *Batch) error {
	n := src.Len()
	for row := 0; row < n; row++ {
		if err := appendRow(schema, builders, src, row); err != nil {
			return err
		}
	}
	return nil
}
