package codegen

import (
	"fmt"

	"github.com/leftmike/tilejit/planner"
	"github.com/leftmike/tilejit/sql"
)

// hashGroupByTranslator aggregates all of the rows of its child, which runs in its own
// pipeline, in a hash table keyed on the group by values. The aggregates of each group are kept
// in the payload of its entry and updated in place. The groups are passed on after the child
// is done.
type hashGroupByTranslator struct {
	plan          *planner.AggregatePlan
	comp          *CompilationContext
	pipeline      *Pipeline
	childPipeline *Pipeline
	child         planner.AbstractPlan

	keyTypes    []sql.DataType
	aggregates  UpdateableStorage
	aggIndexes  []int
	hashTableID StateID
}

func newHashGroupByTranslator(plan *planner.AggregatePlan, comp *CompilationContext,
	pipeline *Pipeline) (OperatorTranslator, error) {

	child, err := childPlan(plan, 0)
	if err != nil {
		return nil, err
	}
	if plan.OutputAttributes() == nil {
		return nil, fmt.Errorf("codegen: %s: plan not bound", plan)
	}

	hgt := &hashGroupByTranslator{
		plan:          plan,
		comp:          comp,
		pipeline:      pipeline,
		childPipeline: newPipeline(nil),
		child:         child,
		hashTableID:   comp.GetRuntimeState().RegisterState("groupBy"),
	}
	for _, e := range plan.GroupBy {
		hgt.keyTypes = append(hgt.keyTypes, e.ResultType())
	}
	for _, at := range plan.Aggregates {
		switch at.Type {
		case planner.CountAggregate, planner.CountStarAggregate, planner.SumAggregate,
			planner.MinAggregate, planner.MaxAggregate:
		default:
			return nil, unsupportedPlan("aggregate: %s", at.Type)
		}
		hgt.aggIndexes = append(hgt.aggIndexes, hgt.aggregates.AddType(at.ResultType()))
	}
	hgt.aggregates.Finalize()

	pipeline.Add(hgt)
	hgt.childPipeline.Add(hgt)
	err = comp.Prepare(child, hgt.childPipeline)
	if err != nil {
		return nil, err
	}
	return hgt, nil
}

func (hgt *hashGroupByTranslator) Name() string {
	return "HashGroupBy"
}

func (hgt *hashGroupByTranslator) InitializeState(ec *ExecutionContext) error {
	ht := NewOAHashTable(hgt.keyTypes, hgt.aggregates.MaxStorageSize())
	ht.Init()
	ec.State.Set(hgt.hashTableID, ht)
	return nil
}

func (hgt *hashGroupByTranslator) hashTable(ec *ExecutionContext) *OAHashTable {
	return ec.State.Get(hgt.hashTableID).(*OAHashTable)
}

// initGroup sets the aggregates of a new group: counts are zero and the rest are null until a
// value is aggregated.
func (hgt *hashGroupByTranslator) initGroup(ec *ExecutionContext, data []byte) error {
	for idx, at := range hgt.plan.Aggregates {
		v := MakeNull(at.ResultType())
		if at.Type == planner.CountAggregate || at.Type == planner.CountStarAggregate {
			v = MakeNullableValue(sql.BigIntType, sql.Int64Value(0), false)
		}
		err := hgt.aggregates.SetValueAt(data, hgt.aggIndexes[idx], v, ec.Pool)
		if err != nil {
			return err
		}
	}
	return nil
}

func (hgt *hashGroupByTranslator) group(ec *ExecutionContext, key []Value) ([]byte, error) {
	ht := hgt.hashTable(ec)
	data, found := ht.ProbeOrInsert(ht.HashKey(key), key)
	if !found {
		err := hgt.initGroup(ec, data)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

func (hgt *hashGroupByTranslator) Produce(ec *ExecutionContext) error {
	err := hgt.comp.Produce(ec, hgt.child)
	if err != nil {
		return err
	}

	ht := hgt.hashTable(ec)
	if len(hgt.plan.GroupBy) == 0 && ht.NumEntries() == 0 {
		_, err = hgt.group(ec, nil)
		if err != nil {
			return err
		}
	}

	cc := hgt.pipeline.ContextFor(hgt)
	outputs := hgt.plan.OutputAttributes()
	return ht.Iterate(func(key []Value, data []byte) error {
		row := NewRow()
		for idx, v := range key {
			row.RegisterAttributeValue(outputs[idx], v)
		}
		for idx := range hgt.plan.Aggregates {
			row.RegisterAttributeValue(outputs[len(key)+idx],
				hgt.aggregates.GetValueAt(data, hgt.aggIndexes[idx], ec.Pool))
		}
		return cc.ConsumeRow(ec, row)
	})
}

func (hgt *hashGroupByTranslator) Consume(ec *ExecutionContext, cc *ConsumerContext,
	batch *RowBatch) error {

	return consumeBatchRows(ec, cc, batch, hgt)
}

func sumValues(typ sql.DataType, cur, v sql.Value) sql.Value {
	if typ == sql.DecimalType {
		return sql.Float64Value(toFloat64(cur) + toFloat64(v))
	}
	return cur.(sql.Int64Value) + v.(sql.Int64Value)
}

func toFloat64(v sql.Value) float64 {
	switch v := v.(type) {
	case sql.Float64Value:
		return float64(v)
	case sql.Int64Value:
		return float64(v)
	}
	panic(fmt.Sprintf("codegen: expected a numeric value: %v", v))
}

// ConsumeRow folds row into the aggregates of its group.
func (hgt *hashGroupByTranslator) ConsumeRow(ec *ExecutionContext, cc *ConsumerContext,
	row *Row) error {

	key := make([]Value, 0, len(hgt.plan.GroupBy))
	for _, e := range hgt.plan.GroupBy {
		v, err := row.DeriveValue(e)
		if err != nil {
			return err
		}
		key = append(key, v)
	}
	data, err := hgt.group(ec, key)
	if err != nil {
		return err
	}

	for idx, at := range hgt.plan.Aggregates {
		ai := hgt.aggIndexes[idx]
		typ := at.ResultType()
		cur := hgt.aggregates.GetValueAt(data, ai, ec.Pool)

		if at.Type == planner.CountStarAggregate {
			err = hgt.aggregates.SetValueAt(data, ai,
				MakeNullableValue(typ, cur.Val().(sql.Int64Value)+1, false), ec.Pool)
			if err != nil {
				return err
			}
			continue
		}

		v, err := row.DeriveValue(at.Expr)
		if err != nil {
			return err
		}
		if v.IsNull() {
			continue
		}

		var val sql.Value
		switch at.Type {
		case planner.CountAggregate:
			val = cur.Val().(sql.Int64Value) + 1
		case planner.SumAggregate:
			if cur.IsNull() {
				val = v.Val()
				if typ == sql.DecimalType {
					val = sql.Float64Value(toFloat64(val))
				}
			} else {
				val = sumValues(typ, cur.Val(), v.Val())
			}
		case planner.MinAggregate:
			if !cur.IsNull() && sql.Compare(v.Val(), cur.Val()) >= 0 {
				continue
			}
			val = v.Val()
		case planner.MaxAggregate:
			if !cur.IsNull() && sql.Compare(v.Val(), cur.Val()) <= 0 {
				continue
			}
			val = v.Val()
		}

		err = hgt.aggregates.SetValueAt(data, ai, MakeNullableValue(typ, val, false), ec.Pool)
		if err != nil {
			return err
		}
	}
	return nil
}

func (hgt *hashGroupByTranslator) TearDownState(ec *ExecutionContext) {
	if ht, ok := ec.State.Get(hgt.hashTableID).(*OAHashTable); ok {
		ht.Destroy()
	}
}
