package types

// IngestionPacket is one batch of rows handed over by the ingestion
// pipeline. Column order in Cols matches value order within each row.
// The packet is ephemeral: the engine reads it and never retains it.
type IngestionPacket struct {
	// Cols lists the column names present in this batch
	Cols []string `json:"cols"`

	// Rows holds the batch values in row-major order; each row has
	// one value per entry in Cols
	Rows [][]interface{} `json:"rows"`
}

// NumRows returns the number of rows in the batch.
func (p *IngestionPacket) NumRows() int64 {
	return int64(len(p.Rows))
}

// Column extracts one named column from the row-major block.
// Returns nil if the column is not present in the packet.
func (p *IngestionPacket) Column(name string) []interface{} {
	idx := -1
	for i, c := range p.Cols {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	col := make([]interface{}, len(p.Rows))
	for i, row := range p.Rows {
		if idx < len(row) {
			col[i] = row[idx]
		}
	}
	return col
}

// HasColumn reports whether the packet carries the named column.
func (p *IngestionPacket) HasColumn(name string) bool {
	for _, c := range p.Cols {
		if c == name {
			return true
		}
	}
	return false
}
