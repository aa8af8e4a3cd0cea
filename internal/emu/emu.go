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

package emu

import (
    `encoding/binary`
    `fmt`
    `math`
    `math/bits`

    `github.com/cloudwego/morph/ir`
)

// Value is the result of evaluating a node. Integers and addresses are kept
// in I normalized to their type, floats in F, and struct values as bytes.
type Value struct {
    I int64
    F float64
    B []byte
}

func (self Value) String() string {
    if self.B != nil {
        return fmt.Sprintf("%x", self.B)
    } else if self.F != 0 {
        return fmt.Sprintf("%g", self.F)
    } else {
        return fmt.Sprintf("%d", self.I)
    }
}

func Int(v int64) Value     { return Value { I: v } }
func Float(v float64) Value { return Value { F: v } }

// Exception is raised by evaluation the way the runtime would throw.
type Exception struct {
    Kind string
}

func (self *Exception) Error() string {
    return "emu: " + self.Kind
}

var (
    ErrDivideByZero = &Exception { "DivideByZeroException" }
    ErrArithmetic   = &Exception { "ArithmeticException" }
    ErrOverflow     = &Exception { "OverflowException" }
    ErrIndex        = &Exception { "IndexOutOfRangeException" }
    ErrNullRef      = &Exception { "NullReferenceException" }
)

type EventKind uint8

const (
    EvCall EventKind = iota
    EvStore
)

// Event is one observable side effect, in evaluation order.
type Event struct {
    Kind   EventKind
    Name   string
    Local  int
    Args   []Value
    Value  Value
    Helper bool
}

func (self Event) String() string {
    if self.Kind == EvCall {
        return fmt.Sprintf("call %s%v", self.Name, self.Args)
    } else if self.Local >= 0 {
        return fmt.Sprintf("store V%02d = %s", self.Local, self.Value)
    } else {
        return fmt.Sprintf("store [%s] = %s", self.Name, self.Value)
    }
}

// Func implements a user method called by the evaluated trees.
type Func func(e *Emulator, args []Value) Value

// Emulator evaluates the trees of one method.
type Emulator struct {
    M      *ir.Method
    Mem    []byte
    Trace  []Event
    Funcs  map[string]Func
    frames map[int]int64
    hmap   map[*ir.Class]int64
    cmap   map[int64]*ir.Class
}

// New creates an emulator for the locals of m.
func New(m *ir.Method) *Emulator {
    return &Emulator {
        M      : m,
        Mem    : make([]byte, 16),
        Funcs  : make(map[string]Func),
        frames : make(map[int]int64),
        hmap   : make(map[*ir.Class]int64),
        cmap   : make(map[int64]*ir.Class),
    }
}

// Alloc reserves n zeroed bytes of memory and returns their address.
func (self *Emulator) Alloc(n int) int64 {
    p := (len(self.Mem) + 7) &^ 7
    self.Mem = append(self.Mem, make([]byte, p + n + 8 - len(self.Mem))...)
    return int64(p)
}

// NewArray allocates an array of n elements, its length is stored at lenOff
// and the elements start at dataOff.
func (self *Emulator) NewArray(elemSize int, n int, lenOff int, dataOff int) int64 {
    p := self.Alloc(dataOff + elemSize * n)
    self.Store(p + int64(lenOff), ir.Int32, Int(int64(n)))
    return p
}

// LocalAddr returns the address of the storage of a local, a promoted field
// shares the storage of its parent struct.
func (self *Emulator) LocalAddr(num int) int64 {
    lv := self.M.Local(num)
    if lv.Parent >= 0 {
        return self.LocalAddr(lv.Parent) + int64(lv.FieldOffset)
    }

    /* allocate on first use */
    if p, ok := self.frames[num]; ok {
        return p
    }

    /* struct locals get their class size */
    n := 8
    if lv.Class != nil && lv.Class.Size > n {
        n = lv.Class.Size
    }

    /* allocate the frame */
    p := self.Alloc(n)
    self.frames[num] = p
    return p
}

func (self *Emulator) SetLocal(num int, v Value) {
    lv := self.M.Local(num)
    if lv.Type == ir.Struct {
        copy(self.Mem[self.LocalAddr(num):], v.B)
    } else {
        self.Store(self.LocalAddr(num), lv.Type, v)
    }
}

func (self *Emulator) GetLocal(num int) Value {
    lv := self.M.Local(num)
    if lv.Type == ir.Struct {
        p := self.LocalAddr(num)
        return Value { B: append([]byte(nil), self.Mem[p:p + int64(lv.Class.Size)]...) }
    } else {
        return self.Load(self.LocalAddr(num), lv.Type)
    }
}

func (self *Emulator) check(p int64, n int) {
    if p == 0 {
        panic(ErrNullRef)
    } else if p < 0 || p + int64(n) > int64(len(self.Mem)) {
        panic(fmt.Sprintf("emu: wild access of %d bytes at %#x", n, p))
    }
}

// Load reads a value of type ty from memory.
func (self *Emulator) Load(p int64, ty ir.Type) Value {
    n := ty.Size(self.M.PtrSize)
    self.check(p, n)

    /* floats are stored as IEEE bits */
    switch ty {
        case ir.Float32 : return Float(float64(math.Float32frombits(binary.LittleEndian.Uint32(self.Mem[p:]))))
        case ir.Float64 : return Float(math.Float64frombits(binary.LittleEndian.Uint64(self.Mem[p:])))
    }

    /* integers are normalized to their type */
    var v uint64
    switch n {
        case 1  : v = uint64(self.Mem[p])
        case 2  : v = uint64(binary.LittleEndian.Uint16(self.Mem[p:]))
        case 4  : v = uint64(binary.LittleEndian.Uint32(self.Mem[p:]))
        default : v = binary.LittleEndian.Uint64(self.Mem[p:])
    }
    return Int(self.norm(int64(v), ty))
}

// Store writes a value of type ty into memory.
func (self *Emulator) Store(p int64, ty ir.Type, v Value) {
    n := ty.Size(self.M.PtrSize)
    self.check(p, n)

    /* store by size */
    switch {
        case ty == ir.Float32 : binary.LittleEndian.PutUint32(self.Mem[p:], math.Float32bits(float32(v.F)))
        case ty == ir.Float64 : binary.LittleEndian.PutUint64(self.Mem[p:], math.Float64bits(v.F))
        case n == 1           : self.Mem[p] = byte(v.I)
        case n == 2           : binary.LittleEndian.PutUint16(self.Mem[p:], uint16(v.I))
        case n == 4           : binary.LittleEndian.PutUint32(self.Mem[p:], uint32(v.I))
        default               : binary.LittleEndian.PutUint64(self.Mem[p:], uint64(v.I))
    }
}

func (self *Emulator) norm(v int64, ty ir.Type) int64 {
    return ir.Truncate(v, ty, self.M.PtrSize)
}

func (self *Emulator) width(ty ir.Type) int {
    return ty.Bits(self.M.PtrSize)
}

// Run evaluates e, an exception thrown by the evaluation is returned
// instead of the value.
func (self *Emulator) Run(e ir.Expr) (v Value, exc *Exception) {
    defer func() {
        if r := recover(); r != nil {
            if x, ok := r.(*Exception); ok {
                exc = x
            } else {
                panic(r)
            }
        }
    }()
    return self.Eval(e), nil
}

// Exec runs every statement of the method in order.
func (self *Emulator) Exec() *Exception {
    for _, bb := range self.M.Blocks {
        for _, st := range bb.Stmts {
            if _, exc := self.Run(st.Root); exc != nil {
                return exc
            }
        }
    }
    return nil
}

// Calls returns the names of the user calls made so far, in order.
func (self *Emulator) Calls() []string {
    var ret []string
    for _, ev := range self.Trace {
        if ev.Kind == EvCall && !ev.Helper {
            ret = append(ret, ev.Name)
        }
    }
    return ret
}

// Eval evaluates e and panics with an *Exception when it throws.
func (self *Emulator) Eval(e ir.Expr) Value {
    switch v := e.(type) {
        case *ir.IntConst    : return self.evalConst(v)
        case *ir.FltConst    : return Float(v.V)
        case *ir.Local       : return self.evalLocal(v.Num, v.Ty, 0)
        case *ir.LocalField  : return self.evalLocal(v.Num, v.Ty, v.Off)
        case *ir.Addr        : return Int(self.addrOf(v.X))
        case *ir.Indir       : return self.evalIndir(v)
        case *ir.Unary       : return self.evalUnary(v)
        case *ir.Binary      : return self.evalBinary(v)
        case *ir.Cast        : return self.evalCast(v)
        case *ir.Assign      : return self.evalAssign(v)
        case *ir.Comma       : self.Eval(v.X); return self.Eval(v.Y)
        case *ir.Select      : return self.evalSelect(v)
        case *ir.Jump        : return self.Eval(v.Cond)
        case *ir.Nop         : return self.evalNop(v)
        case *ir.ArrIndex    : return self.evalArrIndex(v)
        case *ir.ArrLen      : return self.evalArrLen(v.Arr, v.Offset)
        case *ir.BoundsCheck : return self.evalBoundsCheck(v)
        case *ir.BlockOp     : return self.evalBlockOp(v)
        case *ir.Call        : return self.evalCall(v)
        case *ir.FieldList   : return self.evalFieldList(v)
        default              : panic(fmt.Sprintf("emu: cannot evaluate %s", e))
    }
}

func (self *Emulator) evalConst(v *ir.IntConst) Value {
    if v.Class != nil {
        return Int(self.Handle(v.Class))
    } else {
        return Int(self.norm(v.V, v.Ty))
    }
}

func (self *Emulator) evalLocal(num int, ty ir.Type, off int) Value {
    p := self.LocalAddr(num) + int64(off)
    if ty != ir.Struct {
        return self.Load(p, ty)
    } else if cls := self.M.Local(num).Class; cls == nil {
        panic(fmt.Sprintf("emu: struct local V%02d without class", num))
    } else {
        return Value { B: append([]byte(nil), self.Mem[p:p + int64(cls.Size)]...) }
    }
}

func (self *Emulator) addrOf(x ir.Expr) int64 {
    switch v := x.(type) {
        case *ir.Local      : return self.LocalAddr(v.Num)
        case *ir.LocalField : return self.LocalAddr(v.Num) + int64(v.Off)
        case *ir.Indir      : return self.Eval(v.Addr).I
        case *ir.Comma      : self.Eval(v.X); return self.addrOf(v.Y)
        case *ir.ArrIndex   : return self.elemAddr(v)
        default             : panic(fmt.Sprintf("emu: cannot take the address of %s", x))
    }
}

func (self *Emulator) evalIndir(v *ir.Indir) Value {
    p := self.Eval(v.Addr).I
    if v.Ty != ir.Struct {
        return self.Load(p, v.Ty)
    } else {
        self.check(p, v.Class.Size)
        return Value { B: append([]byte(nil), self.Mem[p:p + int64(v.Class.Size)]...) }
    }
}

func (self *Emulator) evalUnary(v *ir.Unary) Value {
    x := self.Eval(v.X)
    switch v.Op {
        case ir.OpNeg : if v.Ty.IsFloat() { return Float(-x.F) } else { return Int(self.norm(-x.I, v.Ty)) }
        case ir.OpNot : return Int(self.norm(^x.I, v.Ty))
        default       : panic("emu: invalid unary operator " + v.Op.String())
    }
}

func (self *Emulator) evalSelect(v *ir.Select) Value {
    if self.Eval(v.Cond).I != 0 {
        return self.Eval(v.Then)
    } else {
        return self.Eval(v.Else)
    }
}

func (self *Emulator) evalNop(v *ir.Nop) Value {
    if v.X == nil {
        return Value{}
    } else {
        return self.Eval(v.X)
    }
}

func (self *Emulator) evalAssign(v *ir.Assign) Value {
    var p int64
    var ln int
    var ty ir.Type

    /* resolve the destination */
    switch d := v.Dst.(type) {
        case *ir.Local      : p, ln, ty = self.LocalAddr(d.Num), d.Num, d.Ty
        case *ir.LocalField : p, ln, ty = self.LocalAddr(d.Num) + int64(d.Off), d.Num, d.Ty
        case *ir.Indir      : p, ln, ty = self.Eval(d.Addr).I, -1, d.Ty
        default             : panic(fmt.Sprintf("emu: invalid assignment destination %s", v.Dst))
    }

    /* compute the value */
    val := self.Eval(v.Src)
    if v.Op != ir.OpNop {
        val = self.arith(v.Op, ty, self.Load(p, ty), val, false)
    }

    /* struct assignment copies the bytes */
    if ty == ir.Struct {
        if val.B == nil {
            val.B = fill(self.sizeOf(v.Dst), byte(val.I))
        }
        self.check(p, len(val.B))
        copy(self.Mem[p:], val.B)
    } else {
        self.Store(p, ty, val)
    }

    /* record the store */
    self.Trace = append(self.Trace, Event {
        Kind  : EvStore,
        Name  : fmt.Sprintf("%#x", p),
        Local : ln,
        Value : val,
    })
    return val
}

func (self *Emulator) evalBinary(v *ir.Binary) Value {
    x := self.Eval(v.X)
    y := self.Eval(v.Y)

    /* comparisons use the operand type */
    if v.Op.IsCompare() {
        return self.compare(v.Op, v.X.Type(), x, y, v.Unsigned)
    }

    /* overflow checked arithmetic */
    if v.Overflow {
        self.checkOverflow(v, x, y)
    }
    return self.arith(v.Op, v.Ty, x, y, v.Unsigned)
}

func (self *Emulator) compare(op ir.Op, ty ir.Type, x Value, y Value, unsigned bool) Value {
    var r bool
    var c int

    /* order the operands */
    if ty.IsFloat() {
        if math.IsNaN(x.F) || math.IsNaN(y.F) {
            return Int(b2i(op == ir.OpNe || unsigned))
        }
        c = cmpf(x.F, y.F)
    } else if unsigned || ty.IsUnsigned() || ty.IsGC() {
        c = cmpu(uint64(x.I) & mask(self.width(ty)), uint64(y.I) & mask(self.width(ty)))
    } else {
        c = cmpi(x.I, y.I)
    }

    /* evaluate the relation */
    switch op {
        case ir.OpEq : r = c == 0
        case ir.OpNe : r = c != 0
        case ir.OpLt : r = c < 0
        case ir.OpLe : r = c <= 0
        case ir.OpGt : r = c > 0
        case ir.OpGe : r = c >= 0
    }
    return Int(b2i(r))
}

func (self *Emulator) checkOverflow(v *ir.Binary, x Value, y Value) {
    w := self.width(v.Ty)
    if v.Unsigned {
        a, b := uint64(x.I) & mask(w), uint64(y.I) & mask(w)
        switch v.Op {
            case ir.OpAdd : if s := a + b; s & mask(w) < a || s > mask(w) { panic(ErrOverflow) }
            case ir.OpSub : if a < b { panic(ErrOverflow) }
            case ir.OpMul : if hi, lo := bits.Mul64(a, b); hi != 0 || lo > mask(w) { panic(ErrOverflow) }
        }
    } else {
        r := self.arith(v.Op, ir.Int64, x, y, false).I
        switch v.Op {
            case ir.OpAdd : if w == 64 && (x.I >= 0) == (y.I >= 0) && (r >= 0) != (x.I >= 0) { panic(ErrOverflow) }
            case ir.OpSub : if w == 64 && (x.I >= 0) != (y.I >= 0) && (r >= 0) != (x.I >= 0) { panic(ErrOverflow) }
            case ir.OpMul : if w == 64 && x.I != 0 && (r / x.I != y.I || x.I == -1 && y.I == math.MinInt64) { panic(ErrOverflow) }
        }
        if w < 64 && r != self.norm(r, v.Ty) {
            panic(ErrOverflow)
        }
    }
}

func (self *Emulator) arith(op ir.Op, ty ir.Type, x Value, y Value, unsigned bool) Value {
    if ty.IsFloat() {
        return self.arithf(op, ty, x.F, y.F)
    }

    /* shift counts are masked by the operand width */
    w := self.width(ty)
    a, b := x.I, y.I
    s := uint(b) & uint(w - 1)
    m := mask(w)

    /* integer operators */
    switch op {
        case ir.OpAdd   : return Int(self.norm(a + b, ty))
        case ir.OpSub   : return Int(self.norm(a - b, ty))
        case ir.OpMul   : return Int(self.norm(a * b, ty))
        case ir.OpMulHi : return Int(self.norm(mulhi(a, b, w, unsigned || ty.IsUnsigned()), ty))
        case ir.OpAnd   : return Int(self.norm(a & b, ty))
        case ir.OpOr    : return Int(self.norm(a | b, ty))
        case ir.OpXor   : return Int(self.norm(a ^ b, ty))
        case ir.OpLsh   : return Int(self.norm(a << s, ty))
        case ir.OpRsh   : return Int(self.norm(self.norm(a, ty.Signed()) >> s, ty))
        case ir.OpRsz   : return Int(self.norm(int64((uint64(a) & m) >> s), ty))
        case ir.OpRol   : return Int(self.norm(rotl(uint64(a) & m, s, w), ty))
        case ir.OpRor   : return Int(self.norm(rotl(uint64(a) & m, (uint(w) - s) & uint(w - 1), w), ty))
        case ir.OpDiv   : return Int(self.norm(self.sdiv(a, b, ty, false), ty))
        case ir.OpMod   : return Int(self.norm(self.sdiv(a, b, ty, true), ty))
        case ir.OpUDiv  : return Int(self.norm(int64(udiv(uint64(a) & m, uint64(b) & m, false)), ty))
        case ir.OpUMod  : return Int(self.norm(int64(udiv(uint64(a) & m, uint64(b) & m, true)), ty))
        default         : panic("emu: invalid binary operator " + op.String())
    }
}

func (self *Emulator) arithf(op ir.Op, ty ir.Type, a float64, b float64) Value {
    var r float64
    switch op {
        case ir.OpAdd : r = a + b
        case ir.OpSub : r = a - b
        case ir.OpMul : r = a * b
        case ir.OpDiv : r = a / b
        case ir.OpMod : r = math.Mod(a, b)
        default       : panic("emu: invalid float operator " + op.String())
    }
    if ty == ir.Float32 {
        r = float64(float32(r))
    }
    return Float(r)
}

func (self *Emulator) sdiv(a int64, b int64, ty ir.Type, rem bool) int64 {
    a = self.norm(a, ty.Signed())
    b = self.norm(b, ty.Signed())

    /* division by zero and the overflowing quotient */
    if b == 0 {
        panic(ErrDivideByZero)
    } else if b == -1 && a == minOf(self.width(ty)) {
        panic(ErrArithmetic)
    }

    /* truncating division */
    if rem {
        return a % b
    } else {
        return a / b
    }
}

func udiv(a uint64, b uint64, rem bool) uint64 {
    if b == 0 {
        panic(ErrDivideByZero)
    } else if rem {
        return a % b
    } else {
        return a / b
    }
}

func mulhi(a int64, b int64, w int, unsigned bool) int64 {
    if w == 32 {
        if unsigned {
            return int64((uint64(uint32(a)) * uint64(uint32(b))) >> 32)
        } else {
            return (int64(int32(a)) * int64(int32(b))) >> 32
        }
    }

    /* 64-bit high part, corrected for signed operands */
    hi, _ := bits.Mul64(uint64(a), uint64(b))
    if !unsigned {
        if a < 0 { hi -= uint64(b) }
        if b < 0 { hi -= uint64(a) }
    }
    return int64(hi)
}

func rotl(v uint64, s uint, w int) int64 {
    if w == 32 {
        return int64(bits.RotateLeft32(uint32(v), int(s)))
    } else {
        return int64(bits.RotateLeft64(v, int(s)))
    }
}

func mask(w int) uint64 {
    if w >= 64 {
        return math.MaxUint64
    } else {
        return 1 << uint(w) - 1
    }
}

func minOf(w int) int64 {
    if w >= 64 {
        return math.MinInt64
    } else {
        return -1 << uint(w - 1)
    }
}

func b2i(v bool) int64 {
    if v {
        return 1
    } else {
        return 0
    }
}

func cmpi(a int64, b int64) int {
    switch {
        case a < b : return -1
        case a > b : return 1
        default    : return 0
    }
}

func cmpu(a uint64, b uint64) int {
    switch {
        case a < b : return -1
        case a > b : return 1
        default    : return 0
    }
}

func cmpf(a float64, b float64) int {
    switch {
        case a < b : return -1
        case a > b : return 1
        default    : return 0
    }
}
