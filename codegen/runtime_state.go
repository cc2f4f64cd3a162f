package codegen

import (
	"fmt"
)

type StateID int

// RuntimeState is the list of state slots a compiled query needs while it executes. Translators
// register their slots while the query is compiled; every execution allocates a fresh
// StateBlock holding one value per slot.
type RuntimeState struct {
	names []string
}

func (rs *RuntimeState) RegisterState(name string) StateID {
	rs.names = append(rs.names, name)
	return StateID(len(rs.names) - 1)
}

func (rs *RuntimeState) NumSlots() int {
	return len(rs.names)
}

func (rs *RuntimeState) SlotName(id StateID) string {
	return rs.names[id]
}

func (rs *RuntimeState) Allocate() *StateBlock {
	return &StateBlock{
		rs:    rs,
		slots: make([]interface{}, len(rs.names)),
	}
}

type StateBlock struct {
	rs    *RuntimeState
	slots []interface{}
}

func (sb *StateBlock) Get(id StateID) interface{} {
	if int(id) >= len(sb.slots) {
		panic(fmt.Sprintf("codegen: state slot %d not registered", id))
	}
	return sb.slots[id]
}

func (sb *StateBlock) Set(id StateID, v interface{}) {
	if int(id) >= len(sb.slots) {
		panic(fmt.Sprintf("codegen: state slot %d not registered", id))
	}
	sb.slots[id] = v
}
