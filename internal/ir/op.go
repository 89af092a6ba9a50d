package ir

// Op identifies the operation a node performs. The set is closed; code that
// dispatches on it switches over these constants.
type Op int

const (
	OpParam Op = iota + 1
	OpLiteral
	OpBitSlice
	OpConcat
	OpSelect
	OpOneHotSelect
	OpPrioritySelect
	OpOneHot
	OpAnd
	OpOr
	OpXor
	OpNand
	OpNor
	OpNot
	OpNeg
	OpEq
	OpNe
	OpULt
	OpULe
	OpUGt
	OpUGe
	OpAdd
	OpSub
	OpShll
	OpShrl
	OpZeroExt
	OpSignExt
	OpTuple
	OpTupleIndex
	OpAndReduce
	OpOrReduce
	OpXorReduce
	OpReceive
	OpSend
	OpStateRead
	OpAssert
	OpTrace
	OpInputPort
	OpOutputPort
	OpRegisterRead
	OpRegisterWrite
)

var opNames = map[Op]string{
	OpParam:          "param",
	OpLiteral:        "literal",
	OpBitSlice:       "bit_slice",
	OpConcat:         "concat",
	OpSelect:         "sel",
	OpOneHotSelect:   "one_hot_sel",
	OpPrioritySelect: "priority_sel",
	OpOneHot:         "one_hot",
	OpAnd:            "and",
	OpOr:             "or",
	OpXor:            "xor",
	OpNand:           "nand",
	OpNor:            "nor",
	OpNot:            "not",
	OpNeg:            "neg",
	OpEq:             "eq",
	OpNe:             "ne",
	OpULt:            "ult",
	OpULe:            "ule",
	OpUGt:            "ugt",
	OpUGe:            "uge",
	OpAdd:            "add",
	OpSub:            "sub",
	OpShll:           "shll",
	OpShrl:           "shrl",
	OpZeroExt:        "zero_ext",
	OpSignExt:        "sign_ext",
	OpTuple:          "tuple",
	OpTupleIndex:     "tuple_index",
	OpAndReduce:      "and_reduce",
	OpOrReduce:       "or_reduce",
	OpXorReduce:      "xor_reduce",
	OpReceive:        "receive",
	OpSend:           "send",
	OpStateRead:      "state_read",
	OpAssert:         "assert",
	OpTrace:          "trace",
	OpInputPort:      "input_port",
	OpOutputPort:     "output_port",
	OpRegisterRead:   "register_read",
	OpRegisterWrite:  "register_write",
}

var opsByName = func() map[string]Op {
	m := make(map[string]Op, len(opNames))
	for op, name := range opNames {
		m[name] = op
	}
	return m
}()

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return "unknown"
}

// OpFromString looks up an op by its textual name.
func OpFromString(s string) (Op, bool) {
	op, ok := opsByName[s]
	return op, ok
}

// IsNary reports whether o is a variadic bitwise operation.
func (o Op) IsNary() bool {
	switch o {
	case OpAnd, OpOr, OpXor, OpNand, OpNor:
		return true
	}
	return false
}

// IsCompare reports whether o produces a bits[1] comparison result.
func (o Op) IsCompare() bool {
	switch o {
	case OpEq, OpNe, OpULt, OpULe, OpUGt, OpUGe:
		return true
	}
	return false
}

// IsReduce reports whether o is a bitwise reduction.
func (o Op) IsReduce() bool {
	return o == OpAndReduce || o == OpOrReduce || o == OpXorReduce
}

// IsSideEffecting reports whether o must be preserved even without users.
func (o Op) IsSideEffecting() bool {
	switch o {
	case OpParam, OpReceive, OpSend, OpStateRead, OpAssert, OpTrace,
		OpInputPort, OpOutputPort, OpRegisterRead, OpRegisterWrite:
		return true
	}
	return false
}

// IsSelectLike reports whether o is one of the multiplexer ops.
func (o Op) IsSelectLike() bool {
	return o == OpSelect || o == OpOneHotSelect || o == OpPrioritySelect
}
