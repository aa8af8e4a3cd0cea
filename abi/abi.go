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

package abi

import (
    `fmt`

    `github.com/cloudwego/morph/internal/utils`
    `github.com/cloudwego/morph/ir`
)

// RegClass is the register file a register belongs to.
type RegClass uint8

const (
    RegNone RegClass = iota
    RegInt
    RegFloat
)

// Reg is an argument register. The zero value means "on the stack".
type Reg struct {
    Class RegClass
    Index int
    Name  string
}

// RegStack marks an argument that is not passed in a register.
var RegStack = Reg {}

func mkReg(cls RegClass, idx int, name fmt.Stringer) Reg {
    return Reg {
        Class : cls,
        Index : idx,
        Name  : name.String(),
    }
}

// IsStack reports whether this is the stack placement.
func (self Reg) IsStack() bool {
    return self.Class == RegNone
}

func (self Reg) IsFloat() bool {
    return self.Class == RegFloat
}

func (self Reg) String() string {
    if self.Class == RegNone {
        return "stk"
    } else {
        return "%" + self.Name
    }
}

// PassKind tells how a struct value is passed.
type PassKind uint8

const (
    PassPrimitive PassKind = iota
    PassMultiReg
    PassStack
    PassByRef
)

func (self PassKind) String() string {
    switch self {
        case PassPrimitive : return "primitive"
        case PassMultiReg  : return "multireg"
        case PassStack     : return "stack"
        case PassByRef     : return "byref"
        default            : return "?"
    }
}

// Passing is the classification of a struct argument.
//
// PassPrimitive passes the struct as a single Prim value. PassMultiReg passes
// it by value with one register per element of Regs, HFA structs use float
// registers for all of them. PassStack copies it by value into Slots stack
// slots. PassByRef passes the address of a caller-owned copy.
type Passing struct {
    Kind  PassKind
    Prim  ir.Type
    Regs  []ir.Type
    HFA   bool
    Slots int
}

func (self Passing) String() string {
    switch self.Kind {
        case PassPrimitive : return fmt.Sprintf("primitive(%s)", self.Prim)
        case PassMultiReg  : return fmt.Sprintf("multireg%v(hfa=%v)", self.Regs, self.HFA)
        case PassStack     : return fmt.Sprintf("stack(%d)", self.Slots)
        default            : return self.Kind.String()
    }
}

// NonStandard names the synthetic arguments that may be bound to a fixed
// register by the calling convention.
type NonStandard uint8

const (
    VirtualStubCell NonStandard = iota
    PInvokeCookie
    PInvokeTarget
    ReturnBuffer
)

func (self NonStandard) String() string {
    switch self {
        case VirtualStubCell : return "stubcell"
        case PInvokeCookie   : return "pinvoke.cookie"
        case PInvokeTarget   : return "pinvoke.target"
        case ReturnBuffer    : return "retbuf"
        default              : return "?"
    }
}

// Features are target capabilities the node rewriter keys off.
type Features struct {
    Target64            bool
    HasRemainder        bool
    PreferLeaMul        bool
    InPlaceOps          bool
    UnsignedFloatConv   bool
    FloatCompareBranch  bool
    LongCompareBranch   bool
}

// CompareNeedsBranch reports whether a comparison of values of type ty can
// only be consumed by a branch, and must be turned into a select when its
// result is used as a value.
func (self Features) CompareNeedsBranch(ty ir.Type) bool {
    if ty.IsFloat() {
        return self.FloatCompareBranch
    } else if ty == ir.Int64 || ty == ir.Uint64 {
        return !self.Target64 && self.LongCompareBranch
    } else {
        return false
    }
}

// Descriptor is the calling convention and capability table of a target.
type Descriptor interface {
    Name() string
    PtrSize() int
    StackSlotSize() int
    MaxIntArgRegs() int
    MaxFloatArgRegs() int
    IntArgReg(i int) Reg
    FloatArgReg(i int) Reg
    FixedOutgoingArgArea() bool
    SharedArgCursor() bool
    BackFill() bool
    SplitStructs() bool
    NoRegsAfterStackStruct() bool
    FloatRegsPerDouble() int
    HFA(cls *ir.Class) ir.Type
    StructPassing(cls *ir.Class) Passing
    ArgAlignment(ty ir.Type, cls *ir.Class) int
    IsRegArgType(ty ir.Type) bool
    NonStandardReg(kind NonStandard) (Reg, bool)
    PartialReadNeedsTemp(size int) bool
    UnrollLimit() int
    Features() Features
}

// CheckClass validates a class handle reaching a descriptor, a malformed
// layout aborts the compilation as bad code.
func CheckClass(cls *ir.Class, ptr int) {
    if err := cls.Validate(); err != nil {
        panic(utils.EBadCode("abi: %v", err))
    } else if cls.PtrSize() != ptr {
        panic(utils.EBadCode("abi: class %s laid out for %d-byte pointers, target has %d", cls.Name, cls.PtrSize(), ptr))
    }
}

// HomogeneousFloat returns the element type of a homogeneous float aggregate
// of up to limit elements, or ir.Void when cls is not one.
func HomogeneousFloat(cls *ir.Class, limit int) ir.Type {
    et := ir.Void
    fv := cls.Flatten()

    /* must have 1 to limit elements */
    if len(fv) == 0 || len(fv) > limit || cls.Custom {
        return ir.Void
    }

    /* all of the same floating point type */
    for _, f := range fv {
        if !f.Type.IsFloat() {
            return ir.Void
        } else if et == ir.Void {
            et = f.Type
        } else if et != f.Type {
            return ir.Void
        }
    }

    /* no padding allowed */
    if et.Size(0) * len(fv) != cls.Size {
        return ir.Void
    } else {
        return et
    }
}

// pieces splits cls into register-sized pieces of the given width, pointer
// sized pieces keep their GC type.
func pieces(cls *ir.Class, width int, ptr int) []ir.Type {
    gc := cls.GCLayout()
    nb := cls.Slots(width)
    ret := make([]ir.Type, nb)

    /* one piece per slot */
    for i := range ret {
        if rem := cls.Size - i * width; rem < width && rem != 1 && rem != 2 && rem != 4 {
            ret[i] = ir.IntOfSize(width, false)
        } else if rem < width {
            ret[i] = ir.IntOfSize(rem, false)
        } else if width == ptr && i < len(gc) {
            ret[i] = gc[i]
        } else {
            ret[i] = ir.IntOfSize(width, false)
        }
    }
    return ret
}

// primitiveOf returns the primitive type a struct of size 1, 2, 4 or 8
// collapses to, and false for any other size.
func primitiveOf(cls *ir.Class, ptr int, floats bool) (ir.Type, bool) {
    switch cls.Size {
        case 1, 2, 4, 8 : break
        default         : return ir.Void, false
    }

    /* a single float field travels in a float register */
    if floats {
        if et := HomogeneousFloat(cls, 1); et != ir.Void {
            return et, true
        }
    }

    /* must fit in a register */
    if cls.Size > ptr {
        return ir.Void, false
    }

    /* pointer-sized slot keeps its GC type */
    if cls.Size == ptr {
        return cls.GCLayout()[0], true
    } else {
        return ir.IntOfSize(cls.Size, false), true
    }
}
