package columnar

// Project builds a new Batch containing only columns (source column
// indices into batch, nil meaning all columns in order) and only rows
// (source row indices into batch, nil meaning every row). Used by the
// renderer's to_batch slow path when a query selects a strict row subset,
// a column subset, or both, and the zero-copy fast paths don't apply.
func Project(batch *Batch, columns []int, rows []int) (*Batch, error) {
	if columns == nil {
		columns = make([]int, len(batch.Schema().Fields))
		for i := range columns {
			columns[i] = i
		}
	}
	fields := make([]Field, len(columns))
	for i, c := range columns {
		fields[i] = batch.Schema().Fields[c]
	}
	target := &Schema{Fields: fields}

	builders := make([]*Builder, len(fields))
	for i, f := range fields {
		b, err := NewBuilder(f)
		if err != nil {
			return nil, err
		}
		builders[i] = b
	}

	appendOneRow := func(row int) error {
		for i, c := range columns {
			if err := appendCell(builders[i], fields[i], batch, c, row); err != nil {
				return err
			}
		}
		return nil
	}

	if rows == nil {
		n := batch.Len()
		for row := 0; row < n; row++ {
			if err := appendOneRow(row); err != nil {
				return nil, err
			}
		}
	} else {
		for _, row := range rows {
			if err := appendOneRow(row); err != nil {
				return nil, err
			}
		}
	}

	rec, err := NewRecordFromBuilders(target, builders)
	if err != nil {
		return nil, err
	}
	defer rec.Release()
	return NewBatch(rec)
}
