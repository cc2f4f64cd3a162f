package codegen

import (
	"fmt"

	"github.com/leftmike/tilejit/expression"
	"github.com/leftmike/tilejit/planner"
	"github.com/leftmike/tilejit/sql"
	"github.com/leftmike/tilejit/storage"
)

// AttributeAccess reads the value of an attribute for a row of a batch.
type AttributeAccess func(row *Row) Value

// RowBatch is a batch of rows moving through a pipeline. A batch either refers to tuples of a
// tile group, with the selection vector holding their offsets, or holds materialized rows,
// with the selection vector indexing them.
type RowBatch struct {
	tileGroup  *storage.TileGroup
	selection  []uint32
	rows       []*Row
	attributes map[*planner.AttributeInfo]AttributeAccess
}

func NewRowBatch(tg *storage.TileGroup, selection []uint32,
	attributes map[*planner.AttributeInfo]AttributeAccess) *RowBatch {

	return &RowBatch{
		tileGroup:  tg,
		selection:  selection,
		attributes: attributes,
	}
}

func newRowBatchOfRows(rows []*Row) *RowBatch {
	rb := &RowBatch{
		selection: make([]uint32, len(rows)),
		rows:      rows,
	}
	for idx := range rows {
		rb.selection[idx] = uint32(idx)
	}
	return rb
}

func (rb *RowBatch) TileGroup() *storage.TileGroup {
	return rb.tileGroup
}

func (rb *RowBatch) Selection() []uint32 {
	return rb.selection
}

func (rb *RowBatch) NumRows() int {
	return len(rb.selection)
}

func (rb *RowBatch) GetRowAt(idx int) *Row {
	if rb.rows != nil {
		return rb.rows[rb.selection[idx]]
	}
	return &Row{
		batch: rb,
		tid:   rb.selection[idx],
	}
}

func (rb *RowBatch) Iterate(fn func(row *Row) error) error {
	for idx := range rb.selection {
		err := fn(rb.GetRowAt(idx))
		if err != nil {
			return err
		}
	}
	return nil
}

// VectorizedIterate calls fn for consecutive groups [start, end) of at most groupSize rows,
// in order.
func (rb *RowBatch) VectorizedIterate(groupSize int, fn func(start, end int) error) error {
	if groupSize <= 0 {
		panic(fmt.Sprintf("codegen: vectorized iterate: bad group size: %d", groupSize))
	}
	for start := 0; start < len(rb.selection); start += groupSize {
		end := start + groupSize
		if end > len(rb.selection) {
			end = len(rb.selection)
		}
		err := fn(start, end)
		if err != nil {
			return err
		}
	}
	return nil
}

// Filter keeps only the rows for which fn returns true, compacting the selection vector in
// place.
func (rb *RowBatch) Filter(fn func(row *Row) (bool, error)) error {
	var out int
	for idx := range rb.selection {
		ok, err := fn(rb.GetRowAt(idx))
		if err != nil {
			return err
		}
		rb.selection[out] = rb.selection[idx]
		if ok {
			out += 1
		}
	}
	rb.selection = rb.selection[:out]
	return nil
}

// Row is one row of a batch. Values computed for the row are registered with it and take
// precedence over the attributes of the batch.
type Row struct {
	batch *RowBatch
	tid   uint32
	cache map[*planner.AttributeInfo]Value
}

// NewRow returns a materialized row which is not backed by a tile group.
func NewRow() *Row {
	return &Row{}
}

// clone returns a row with the same position and a copy of the registered values.
func (r *Row) clone() *Row {
	c := &Row{
		batch: r.batch,
		tid:   r.tid,
	}
	if r.cache != nil {
		c.cache = make(map[*planner.AttributeInfo]Value, len(r.cache))
		for ai, v := range r.cache {
			c.cache[ai] = v
		}
	}
	return c
}

func (r *Row) TileGroup() *storage.TileGroup {
	if r.batch == nil {
		return nil
	}
	return r.batch.tileGroup
}

func (r *Row) TID() uint32 {
	return r.tid
}

func (r *Row) HasAttribute(ai *planner.AttributeInfo) bool {
	if _, ok := r.cache[ai]; ok {
		return true
	}
	if r.batch != nil {
		if _, ok := r.batch.attributes[ai]; ok {
			return true
		}
	}
	return false
}

func (r *Row) GetAttribute(ai *planner.AttributeInfo) Value {
	if v, ok := r.cache[ai]; ok {
		return v
	}
	if r.batch != nil {
		if access, ok := r.batch.attributes[ai]; ok {
			return access(r)
		}
	}
	panic(&InternalError{fmt.Sprintf("attribute %s not available in row", ai)})
}

func (r *Row) RegisterAttributeValue(ai *planner.AttributeInfo, v Value) {
	if r.cache == nil {
		r.cache = map[*planner.AttributeInfo]Value{}
	}
	r.cache[ai] = v
}

func (r *Row) Value(ai *expression.AttributeInfo) sql.Value {
	return r.GetAttribute(ai).SQLValue()
}

// DeriveValue evaluates e against the row.
func (r *Row) DeriveValue(e expression.Expression) (Value, error) {
	v, err := e.Eval(r)
	if err != nil {
		return Value{}, err
	}
	return valueOf(e.ResultType(), v), nil
}
