/*
 * Copyright 2022 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ir

import (
    `fmt`
)

// Op is the operator of a Unary or Binary node.
type Op uint8

const (
    OpNop Op = iota
    OpNeg
    OpNot
    OpAdd
    OpSub
    OpMul
    OpMulHi
    OpDiv
    OpMod
    OpUDiv
    OpUMod
    OpAnd
    OpOr
    OpXor
    OpLsh
    OpRsh
    OpRsz
    OpRol
    OpRor
    OpEq
    OpNe
    OpLt
    OpLe
    OpGt
    OpGe
)

var opNames = [...]string {
    OpNop   : "nop",
    OpNeg   : "neg",
    OpNot   : "not",
    OpAdd   : "add",
    OpSub   : "sub",
    OpMul   : "mul",
    OpMulHi : "mulhi",
    OpDiv   : "div",
    OpMod   : "mod",
    OpUDiv  : "udiv",
    OpUMod  : "umod",
    OpAnd   : "and",
    OpOr    : "or",
    OpXor   : "xor",
    OpLsh   : "lsh",
    OpRsh   : "rsh",
    OpRsz   : "rsz",
    OpRol   : "rol",
    OpRor   : "ror",
    OpEq    : "eq",
    OpNe    : "ne",
    OpLt    : "lt",
    OpLe    : "le",
    OpGt    : "gt",
    OpGe    : "ge",
}

func (self Op) String() string {
    if int(self) < len(opNames) {
        return opNames[self]
    } else {
        return fmt.Sprintf("op(%d)", self)
    }
}

func (self Op) IsCompare() bool {
    return self >= OpEq && self <= OpGe
}

func (self Op) IsShift() bool {
    return self >= OpLsh && self <= OpRor
}

func (self Op) IsDivMod() bool {
    return self >= OpDiv && self <= OpUMod
}

// IsCommutative reports operators whose operands may be swapped and
// re-associated.
func (self Op) IsCommutative() bool {
    switch self {
        case OpAdd, OpMul, OpAnd, OpOr, OpXor : return true
        default                               : return false
    }
}

// Swap returns the comparison that holds with the operands exchanged.
func (self Op) Swap() Op {
    switch self {
        case OpLt : return OpGt
        case OpLe : return OpGe
        case OpGt : return OpLt
        case OpGe : return OpLe
        default   : return self
    }
}

// Reverse returns the logical negation of a comparison.
func (self Op) Reverse() Op {
    switch self {
        case OpEq : return OpNe
        case OpNe : return OpEq
        case OpLt : return OpGe
        case OpLe : return OpGt
        case OpGt : return OpLe
        case OpGe : return OpLt
        default   : panic("ir: reversing non-compare operator " + self.String())
    }
}

// Helper identifies a runtime helper function.
type Helper uint8

const (
    HelperNone Helper = iota
    HelperDbl2Int
    HelperDbl2IntOvf
    HelperDbl2UInt
    HelperDbl2UIntOvf
    HelperDbl2Lng
    HelperDbl2LngOvf
    HelperDbl2ULng
    HelperDbl2ULngOvf
    HelperLng2Dbl
    HelperULng2Dbl
    HelperDblRem
    HelperFltRem
    HelperLDiv
    HelperLMod
    HelperULDiv
    HelperULMod
    HelperTypeHandleToRuntimeType
    HelperGetType
    HelperBoxNullable
)

var helperNames = [...]string {
    HelperNone                    : "none",
    HelperDbl2Int                 : "DBL2INT",
    HelperDbl2IntOvf              : "DBL2INT_OVF",
    HelperDbl2UInt                : "DBL2UINT",
    HelperDbl2UIntOvf             : "DBL2UINT_OVF",
    HelperDbl2Lng                 : "DBL2LNG",
    HelperDbl2LngOvf              : "DBL2LNG_OVF",
    HelperDbl2ULng                : "DBL2ULNG",
    HelperDbl2ULngOvf             : "DBL2ULNG_OVF",
    HelperLng2Dbl                 : "LNG2DBL",
    HelperULng2Dbl                : "ULNG2DBL",
    HelperDblRem                  : "DBLREM",
    HelperFltRem                  : "FLTREM",
    HelperLDiv                    : "LDIV",
    HelperLMod                    : "LMOD",
    HelperULDiv                   : "ULDIV",
    HelperULMod                   : "ULMOD",
    HelperTypeHandleToRuntimeType : "TYPEHANDLE_TO_RUNTIMETYPE",
    HelperGetType                 : "OBJECT_GETTYPE",
    HelperBoxNullable             : "BOX_NULLABLE",
}

func (self Helper) String() string {
    if int(self) < len(helperNames) {
        return helperNames[self]
    } else {
        return fmt.Sprintf("helper(%d)", self)
    }
}
