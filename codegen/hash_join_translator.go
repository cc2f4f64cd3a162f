package codegen

import (
	"fmt"

	"github.com/leftmike/tilejit/expression"
	"github.com/leftmike/tilejit/flags"
	"github.com/leftmike/tilejit/planner"
	"github.com/leftmike/tilejit/sql"
)

// hashJoinTranslator builds a hash table from all of the rows of its left child and then probes
// it with each row of its right child. The left child runs in its own pipeline, which ends at
// the join; the right child is part of the pipeline of the join.
type hashJoinTranslator struct {
	plan         *planner.HashJoinPlan
	comp         *CompilationContext
	pipeline     *Pipeline
	leftPipeline *Pipeline
	left         planner.AbstractPlan
	right        planner.AbstractPlan

	keyTypes   []sql.DataType
	leftKeyAIs []*planner.AttributeInfo
	leftValAIs []*planner.AttributeInfo
	leftValues CompactStorage

	hashTableID StateID
	prefetch    bool
	hashesID    StateID
}

func newHashJoinTranslator(plan *planner.HashJoinPlan, comp *CompilationContext,
	pipeline *Pipeline) (OperatorTranslator, error) {

	if plan.JoinType != planner.InnerJoin {
		return nil, unsupportedPlan("hash join: %s join", plan.JoinType)
	}

	left, err := childPlan(plan, 0)
	if err != nil {
		return nil, err
	}
	hash, err := childPlan(plan, 1)
	if err != nil {
		return nil, err
	}
	hp, ok := hash.(*planner.HashPlan)
	if !ok {
		return nil, unsupportedPlan("hash join: right child %s is not a hash", hash)
	}
	right, err := childPlan(hp, 0)
	if err != nil {
		return nil, err
	}

	if len(plan.LeftHashKeys) == 0 || len(plan.LeftHashKeys) != len(plan.RightHashKeys) {
		return nil, fmt.Errorf("codegen: hash join: %d left keys and %d right keys",
			len(plan.LeftHashKeys), len(plan.RightHashKeys))
	}

	hjt := &hashJoinTranslator{
		plan:         plan,
		comp:         comp,
		pipeline:     pipeline,
		leftPipeline: newPipeline(nil),
		left:         left,
		right:        right,
		leftKeyAIs:   make([]*planner.AttributeInfo, len(plan.LeftHashKeys)),
		prefetch:     comp.Flags().GetFlag(flags.HashJoinPrefetch),
	}

	keyAIs := map[*planner.AttributeInfo]bool{}
	for idx, lk := range plan.LeftHashKeys {
		rk := plan.RightHashKeys[idx]
		if lk.ResultType() != rk.ResultType() {
			return nil, fmt.Errorf("codegen: hash join: key %d: %s does not match %s", idx,
				lk.ResultType(), rk.ResultType())
		}
		hjt.keyTypes = append(hjt.keyTypes, lk.ResultType())

		if tv, ok := lk.(*expression.TupleValue); ok {
			hjt.leftKeyAIs[idx] = tv.AttributeRef()
			keyAIs[tv.AttributeRef()] = true
		}
	}

	var valTypes []sql.DataType
	for _, ai := range plan.LeftAttributes() {
		if keyAIs[ai] {
			continue
		}
		hjt.leftValAIs = append(hjt.leftValAIs, ai)
		valTypes = append(valTypes, ai.Type)
	}
	hjt.leftValues.Setup(valTypes)

	rs := comp.GetRuntimeState()
	hjt.hashTableID = rs.RegisterState("join")
	if hjt.prefetch {
		hjt.hashesID = rs.RegisterState("hjPFVec")
	}

	pipeline.Add(hjt)
	hjt.leftPipeline.Add(hjt)
	if hjt.prefetch {
		hjt.leftPipeline.InstallBoundaryAtInput(hjt)
		pipeline.InstallBoundaryAtInput(hjt)
	}

	err = comp.Prepare(left, hjt.leftPipeline)
	if err != nil {
		return nil, err
	}
	err = comp.Prepare(right, pipeline)
	if err != nil {
		return nil, err
	}
	return hjt, nil
}

func (hjt *hashJoinTranslator) Name() string {
	return "HashJoin::" + hjt.plan.JoinType.String()
}

func (hjt *hashJoinTranslator) InitializeState(ec *ExecutionContext) error {
	ht := NewOAHashTable(hjt.keyTypes, hjt.leftValues.MaxStorageSize())
	ht.Init()
	ec.State.Set(hjt.hashTableID, ht)
	if hjt.prefetch {
		ec.State.Set(hjt.hashesID, make([]uint64, DefaultGroupPrefetchSize))
	}
	return nil
}

func (hjt *hashJoinTranslator) hashTable(ec *ExecutionContext) *OAHashTable {
	return ec.State.Get(hjt.hashTableID).(*OAHashTable)
}

// Produce builds the hash table from the left child and then probes it with the right child.
func (hjt *hashJoinTranslator) Produce(ec *ExecutionContext) error {
	err := hjt.comp.Produce(ec, hjt.left)
	if err != nil {
		return err
	}
	return hjt.comp.Produce(ec, hjt.right)
}

func (hjt *hashJoinTranslator) isFromLeftChild(cc *ConsumerContext) bool {
	return cc.Pipeline() == hjt.leftPipeline
}

func (hjt *hashJoinTranslator) keys(cc *ConsumerContext) []expression.Expression {
	if hjt.isFromLeftChild(cc) {
		return hjt.plan.LeftHashKeys
	}
	return hjt.plan.RightHashKeys
}

// deriveKey evaluates the key of row; hasNull is true if any part of the key is null.
func deriveKey(row *Row, keys []expression.Expression) (key []Value, hasNull bool, err error) {
	key = make([]Value, 0, len(keys))
	for _, e := range keys {
		v, err := row.DeriveValue(e)
		if err != nil {
			return nil, false, err
		}
		if v.IsNull() {
			hasNull = true
		}
		key = append(key, v)
	}
	return key, hasNull, nil
}

// Consume with prefetching hashes a group of rows and touches their buckets before the rows
// are inserted or probed, one group at a time.
func (hjt *hashJoinTranslator) Consume(ec *ExecutionContext, cc *ConsumerContext,
	batch *RowBatch) error {

	if !hjt.prefetch {
		return consumeBatchRows(ec, cc, batch, hjt)
	}

	ht := hjt.hashTable(ec)
	hashes := ec.State.Get(hjt.hashesID).([]uint64)
	keys := hjt.keys(cc)
	rows := make([]*Row, 0, DefaultGroupPrefetchSize)

	return batch.VectorizedIterate(DefaultGroupPrefetchSize, func(start, end int) error {
		rows = rows[:0]
		for idx := start; idx < end; idx += 1 {
			row := batch.GetRowAt(idx)
			key, _, err := deriveKey(row, keys)
			if err != nil {
				return err
			}
			hashes[idx-start] = ht.HashKey(key)
			ht.PrefetchBucket(hashes[idx-start])
			rows = append(rows, row)
		}

		for idx, row := range rows {
			row.RegisterAttributeValue(HashAttribute, MakeNullableValue(sql.BigIntType,
				sql.Int64Value(int64(hashes[idx])), false))
			err := hjt.ConsumeRow(ec, cc, row)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (hjt *hashJoinTranslator) ConsumeRow(ec *ExecutionContext, cc *ConsumerContext,
	row *Row) error {

	if hjt.isFromLeftChild(cc) {
		return hjt.consumeFromLeft(ec, row)
	}
	return hjt.consumeFromRight(ec, cc, row)
}

func (hjt *hashJoinTranslator) hashOf(ht *OAHashTable, row *Row, key []Value) uint64 {
	if hjt.prefetch && row.HasAttribute(HashAttribute) {
		return uint64(row.GetAttribute(HashAttribute).Val().(sql.Int64Value))
	}
	return ht.HashKey(key)
}

// consumeFromLeft inserts the key and the carried values of row into the hash table. A key
// with a null part never matches, so the row is dropped.
func (hjt *hashJoinTranslator) consumeFromLeft(ec *ExecutionContext, row *Row) error {
	key, hasNull, err := deriveKey(row, hjt.plan.LeftHashKeys)
	if err != nil {
		return err
	}
	if hasNull {
		return nil
	}

	values := make([]Value, 0, len(hjt.leftValAIs))
	for _, ai := range hjt.leftValAIs {
		values = append(values, row.GetAttribute(ai))
	}

	ht := hjt.hashTable(ec)
	data := ht.InsertHash(hjt.hashOf(ht, row, key), key)
	_, err = hjt.leftValues.StoreValues(data, values, ec.Pool)
	return err
}

// consumeFromRight passes on one row for each left row matching the key of row.
func (hjt *hashJoinTranslator) consumeFromRight(ec *ExecutionContext, cc *ConsumerContext,
	row *Row) error {

	key, hasNull, err := deriveKey(row, hjt.plan.RightHashKeys)
	if err != nil {
		return err
	}
	if hasNull {
		return nil
	}

	ht := hjt.hashTable(ec)
	return ht.FindAllHash(hjt.hashOf(ht, row, key), key,
		func(leftKey []Value, data []byte) error {
			out := row.clone()
			values, _ := hjt.leftValues.LoadValues(data, ec.Pool)
			for idx, ai := range hjt.leftValAIs {
				out.RegisterAttributeValue(ai, values[idx])
			}
			for idx, ai := range hjt.leftKeyAIs {
				if ai != nil {
					out.RegisterAttributeValue(ai, leftKey[idx])
				}
			}

			if hjt.plan.Predicate != nil {
				ok, err := expression.EvalPredicate(hjt.plan.Predicate, out)
				if err != nil || !ok {
					return err
				}
			}
			if hjt.plan.ProjectInfo != nil {
				err := projectTargets(hjt.plan.ProjectInfo, out)
				if err != nil {
					return err
				}
			}
			return cc.ConsumeRow(ec, out)
		})
}

func (hjt *hashJoinTranslator) TearDownState(ec *ExecutionContext) {
	if ht, ok := ec.State.Get(hjt.hashTableID).(*OAHashTable); ok {
		ht.Destroy()
	}
	if hjt.prefetch {
		ec.State.Set(hjt.hashesID, nil)
	}
}
