package codegen

import (
	"fmt"
	"strings"
)

// Pipeline is a chain of translators that rows are pushed through without being materialized.
// Translators are added parent first, so the sink is at stage 0 and the source at the last
// stage; rows move from higher stages to lower stages. The end of the main pipeline of a
// query is the result consumer.
type Pipeline struct {
	translators []OperatorTranslator
	boundaries  map[OperatorTranslator]bool
	contexts    []*ConsumerContext
	consumer    QueryResultConsumer
}

func newPipeline(consumer QueryResultConsumer) *Pipeline {
	return &Pipeline{
		boundaries: map[OperatorTranslator]bool{},
		consumer:   consumer,
	}
}

func (p *Pipeline) Add(tr OperatorTranslator) {
	p.translators = append(p.translators, tr)
}

// InstallBoundaryAtInput makes rows arrive at tr as batches.
func (p *Pipeline) InstallBoundaryAtInput(tr OperatorTranslator) {
	p.boundaries[tr] = true
}

func (p *Pipeline) hasBoundaryAtInput(tr OperatorTranslator) bool {
	return p.boundaries[tr]
}

// GetTranslatorStage returns the stage of tr in the pipeline or -1 if tr is not in the
// pipeline.
func (p *Pipeline) GetTranslatorStage(tr OperatorTranslator) int {
	for stage, t := range p.translators {
		if t == tr {
			return stage
		}
	}
	return -1
}

func (p *Pipeline) NumStages() int {
	return len(p.translators)
}

// ContextFor returns the context tr uses to pass rows on to the next stage.
func (p *Pipeline) ContextFor(tr OperatorTranslator) *ConsumerContext {
	stage := p.GetTranslatorStage(tr)
	if stage < 0 {
		panic(&InternalError{fmt.Sprintf("translator %s not in pipeline %s", tr.Name(), p)})
	}
	return p.context(stage)
}

func (p *Pipeline) context(stage int) *ConsumerContext {
	for len(p.contexts) <= stage {
		p.contexts = append(p.contexts, nil)
	}
	if p.contexts[stage] == nil {
		p.contexts[stage] = &ConsumerContext{
			pipeline: p,
			stage:    stage,
		}
	}
	return p.contexts[stage]
}

func (p *Pipeline) String() string {
	names := make([]string, 0, len(p.translators))
	for _, tr := range p.translators {
		names = append(names, tr.Name())
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// ConsumerContext passes rows from the translator at stage to the next stage of the pipeline.
type ConsumerContext struct {
	pipeline *Pipeline
	stage    int
}

func (cc *ConsumerContext) Pipeline() *Pipeline {
	return cc.pipeline
}

func (cc *ConsumerContext) next() (OperatorTranslator, *ConsumerContext) {
	if cc.stage == 0 {
		return nil, nil
	}
	return cc.pipeline.translators[cc.stage-1], cc.pipeline.context(cc.stage - 1)
}

// ConsumeRow passes row on; a row arriving at a batch boundary is passed on as a batch of one
// row.
func (cc *ConsumerContext) ConsumeRow(ec *ExecutionContext, row *Row) error {
	tr, nextCC := cc.next()
	if tr == nil {
		return cc.consumeResult(ec, row)
	}
	if cc.pipeline.hasBoundaryAtInput(tr) {
		return tr.Consume(ec, nextCC, newRowBatchOfRows([]*Row{row}))
	}
	return tr.ConsumeRow(ec, nextCC, row)
}

func (cc *ConsumerContext) ConsumeBatch(ec *ExecutionContext, batch *RowBatch) error {
	tr, nextCC := cc.next()
	if tr == nil {
		return batch.Iterate(func(row *Row) error {
			return cc.consumeResult(ec, row)
		})
	}
	return tr.Consume(ec, nextCC, batch)
}

func (cc *ConsumerContext) consumeResult(ec *ExecutionContext, row *Row) error {
	if cc.pipeline.consumer == nil {
		panic(&InternalError{fmt.Sprintf("row passed beyond the end of pipeline %s",
			cc.pipeline)})
	}
	return cc.pipeline.consumer.ConsumeResult(ec, row)
}
