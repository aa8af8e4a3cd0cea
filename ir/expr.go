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
    `strings`
)

// FieldSeq annotates address constants produced by array index expansion.
type FieldSeq uint8

const (
    SeqNone FieldSeq = iota
    SeqFirstElem
    SeqConstIndex
    SeqFirstElemConstIndex
)

func (self FieldSeq) String() string {
    switch self {
        case SeqNone                : return ""
        case SeqFirstElem           : return "#FirstElem"
        case SeqConstIndex          : return "#ConstantIndex"
        case SeqFirstElemConstIndex : return "#FirstElem#ConstantIndex"
        default                     : return "#?"
    }
}

type IntConst struct {
    Header
    Ty    Type
    V     int64
    Class *Class
    Seq   FieldSeq
}

func NewInt(ty Type, v int64) *IntConst {
    return Refresh(&IntConst { Header: newHeader(), Ty: ty, V: v }).(*IntConst)
}

// NewHandle creates a constant class handle.
func NewHandle(cls *Class) *IntConst {
    return Refresh(&IntConst { Header: newHeader(), Ty: IntPtr, Class: cls }).(*IntConst)
}

func (self *IntConst) Type() Type { return self.Ty }

func (self *IntConst) String() string {
    if self.Class != nil {
        return fmt.Sprintf("(handle %s)", self.Class.Name)
    } else {
        return fmt.Sprintf("(cns.%s %d%s)", self.Ty, self.V, self.Seq)
    }
}

type FltConst struct {
    Header
    Ty Type
    V  float64
}

func NewFloat(ty Type, v float64) *FltConst {
    return Refresh(&FltConst { Header: newHeader(), Ty: ty, V: v }).(*FltConst)
}

func (self *FltConst) Type() Type     { return self.Ty }
func (self *FltConst) String() string { return fmt.Sprintf("(cns.%s %g)", self.Ty, self.V) }

// Local reads (or, as an assignment destination, writes) a local variable.
// Exposed accesses go to a local whose address escapes, so they may observe
// stores made through that address.
type Local struct {
    Header
    Ty      Type
    Num     int
    Def     bool
    UseAsg  bool
    Exposed bool
}

func NewLocal(num int, ty Type) *Local {
    return Refresh(&Local { Header: newHeader(), Ty: ty, Num: num }).(*Local)
}

func (self *Local) Type() Type { return self.Ty }

func (self *Local) String() string {
    var tag string
    if self.Def    { tag += "!def" }
    if self.UseAsg { tag += "!use" }
    if self.Exposed { tag += "!glob" }
    return fmt.Sprintf("V%02d.%s%s", self.Num, self.Ty, tag)
}

func (self *Local) own() Effect {
    if self.Exposed {
        return EffGlobRef
    } else {
        return 0
    }
}

// LocalField reads a primitive part of a local at a byte offset.
type LocalField struct {
    Header
    Ty      Type
    Num     int
    Off     int
    Exposed bool
}

func NewLocalField(num int, off int, ty Type) *LocalField {
    return Refresh(&LocalField { Header: newHeader(), Ty: ty, Num: num, Off: off }).(*LocalField)
}

func (self *LocalField) Type() Type     { return self.Ty }
func (self *LocalField) String() string { return fmt.Sprintf("V%02d[+%d].%s", self.Num, self.Off, self.Ty) }

func (self *LocalField) own() Effect {
    if self.Exposed {
        return EffGlobRef
    } else {
        return 0
    }
}

type Addr struct {
    Header
    Ty Type
    X  Expr
}

func NewAddr(x Expr) *Addr {
    return Refresh(&Addr { Header: newHeader(), Ty: ByRef, X: x }).(*Addr)
}

func (self *Addr) Type() Type          { return self.Ty }
func (self *Addr) Operands() []*Expr   { return []*Expr { &self.X } }
func (self *Addr) String() string      { return fmt.Sprintf("(addr %s)", self.X) }

// Indir loads a value through an address.
type Indir struct {
    Header
    Ty          Type
    Addr        Expr
    Class       *Class
    ArrElem     bool
    NonFaulting bool
}

func NewIndir(ty Type, addr Expr) *Indir {
    return Refresh(&Indir { Header: newHeader(), Ty: ty, Addr: addr }).(*Indir)
}

// NewObj creates a struct-typed load of the given class.
func NewObj(cls *Class, addr Expr) *Indir {
    return Refresh(&Indir { Header: newHeader(), Ty: Struct, Addr: addr, Class: cls }).(*Indir)
}

func (self *Indir) Type() Type        { return self.Ty }
func (self *Indir) Operands() []*Expr { return []*Expr { &self.Addr } }

func (self *Indir) String() string {
    if self.Class != nil {
        return fmt.Sprintf("(obj %s %s)", self.Class.Name, self.Addr)
    } else if self.ArrElem {
        return fmt.Sprintf("(ind.%s!arr %s)", self.Ty, self.Addr)
    } else {
        return fmt.Sprintf("(ind.%s %s)", self.Ty, self.Addr)
    }
}

func (self *Indir) own() Effect {
    if IsLocalAddr(self.Addr) {
        return 0
    } else if self.NonFaulting {
        return EffGlobRef
    } else {
        return EffGlobRef | EffExcept
    }
}

// IsLocalAddr reports whether e is the address of a local or a local field.
func IsLocalAddr(e Expr) bool {
    if a, ok := e.(*Addr); !ok {
        return false
    } else {
        switch a.X.(type) {
            case *Local, *LocalField : return true
            default                  : return false
        }
    }
}

type Unary struct {
    Header
    Op Op
    Ty Type
    X  Expr
}

func NewUnary(op Op, ty Type, x Expr) *Unary {
    return Refresh(&Unary { Header: newHeader(), Op: op, Ty: ty, X: x }).(*Unary)
}

func (self *Unary) Type() Type        { return self.Ty }
func (self *Unary) Operands() []*Expr { return []*Expr { &self.X } }
func (self *Unary) String() string    { return fmt.Sprintf("(%s.%s %s)", self.Op, self.Ty, self.X) }

type Binary struct {
    Header
    Op       Op
    Ty       Type
    X        Expr
    Y        Expr
    Overflow bool
    Unsigned bool
}

func NewBinary(op Op, ty Type, x Expr, y Expr) *Binary {
    return Refresh(&Binary { Header: newHeader(), Op: op, Ty: ty, X: x, Y: y }).(*Binary)
}

func (self *Binary) Type() Type        { return self.Ty }
func (self *Binary) Operands() []*Expr { return []*Expr { &self.X, &self.Y } }

func (self *Binary) String() string {
    var tag string
    if self.Overflow { tag += "!ovf" }
    if self.Unsigned { tag += "!un" }
    return fmt.Sprintf("(%s.%s%s %s %s)", self.Op, self.Ty, tag, self.X, self.Y)
}

func (self *Binary) own() Effect {
    if self.Overflow {
        return EffExcept
    } else if !self.Op.IsDivMod() || self.Ty.IsFloat() {
        return 0
    } else if c, ok := self.Y.(*IntConst); ok && c.V != 0 && c.V != -1 {
        return 0
    } else {
        return EffExcept
    }
}

// Cast converts X to Ty, Unsigned treats the source as unsigned.
type Cast struct {
    Header
    Ty       Type
    X        Expr
    Unsigned bool
    Overflow bool
}

func NewCast(ty Type, x Expr) *Cast {
    return Refresh(&Cast { Header: newHeader(), Ty: ty, X: x }).(*Cast)
}

func (self *Cast) Type() Type        { return self.Ty }
func (self *Cast) Operands() []*Expr { return []*Expr { &self.X } }

func (self *Cast) String() string {
    var tag string
    if self.Overflow { tag += "!ovf" }
    if self.Unsigned { tag += "!un" }
    return fmt.Sprintf("(cast.%s%s %s)", self.Ty, tag, self.X)
}

func (self *Cast) own() Effect {
    if self.Overflow {
        return EffExcept
    } else {
        return 0
    }
}

// Assign stores Src into Dst, a non-nop Op makes it an in-place "Dst op= Src".
type Assign struct {
    Header
    Op  Op
    Dst Expr
    Src Expr
}

func NewAssign(dst Expr, src Expr) *Assign {
    if lv, ok := dst.(*Local); ok {
        lv.Def = true
    }
    return Refresh(&Assign { Header: newHeader(), Dst: dst, Src: src }).(*Assign)
}

func (self *Assign) Type() Type        { return self.Dst.Type() }
func (self *Assign) Operands() []*Expr { return []*Expr { &self.Dst, &self.Src } }

func (self *Assign) String() string {
    if self.Op == OpNop {
        return fmt.Sprintf("(asg %s %s)", self.Dst, self.Src)
    } else {
        return fmt.Sprintf("(asg_%s %s %s)", self.Op, self.Dst, self.Src)
    }
}

func (self *Assign) own() Effect {
    switch self.Dst.(type) {
        case *Local, *LocalField : return EffAssign
        default                  : return EffAssign | EffGlobRef
    }
}

// Comma evaluates X for its side effects, then yields Y.
type Comma struct {
    Header
    Ty Type
    X  Expr
    Y  Expr
}

func NewComma(x Expr, y Expr) *Comma {
    return Refresh(&Comma { Header: newHeader(), Ty: y.Type(), X: x, Y: y }).(*Comma)
}

func (self *Comma) Type() Type        { return self.Ty }
func (self *Comma) Operands() []*Expr { return []*Expr { &self.X, &self.Y } }
func (self *Comma) String() string    { return fmt.Sprintf("(comma %s %s)", self.X, self.Y) }

// Select is the ternary "Cond ? Then : Else".
type Select struct {
    Header
    Ty   Type
    Cond Expr
    Then Expr
    Else Expr
}

func NewSelect(ty Type, cond Expr, then Expr, els Expr) *Select {
    return Refresh(&Select { Header: newHeader(), Ty: ty, Cond: cond, Then: then, Else: els }).(*Select)
}

func (self *Select) Type() Type        { return self.Ty }
func (self *Select) Operands() []*Expr { return []*Expr { &self.Cond, &self.Then, &self.Else } }
func (self *Select) String() string    { return fmt.Sprintf("(qmark.%s %s %s %s)", self.Ty, self.Cond, self.Then, self.Else) }

// Jump is a conditional branch statement root.
type Jump struct {
    Header
    Cond Expr
}

func NewJump(cond Expr) *Jump {
    return Refresh(&Jump { Header: newHeader(), Cond: cond }).(*Jump)
}

func (self *Jump) Type() Type        { return Void }
func (self *Jump) Operands() []*Expr { return []*Expr { &self.Cond } }
func (self *Jump) String() string    { return fmt.Sprintf("(jtrue %s)", self.Cond) }

// Nop does nothing, or yields X unchanged.
type Nop struct {
    Header
    X Expr
}

func NewNop(x Expr) *Nop {
    return Refresh(&Nop { Header: newHeader(), X: x }).(*Nop)
}

func (self *Nop) Type() Type {
    if self.X == nil {
        return Void
    } else {
        return self.X.Type()
    }
}

func (self *Nop) Operands() []*Expr {
    if self.X == nil {
        return nil
    } else {
        return []*Expr { &self.X }
    }
}

func (self *Nop) String() string {
    if self.X == nil {
        return "(nop)"
    } else {
        return fmt.Sprintf("(nop %s)", self.X)
    }
}

// Placeholder stands in for a call argument whose value was moved to the
// late argument list.
type Placeholder struct {
    Header
    Ty    Type
    Class *Class
}

func NewPlaceholder(ty Type, cls *Class) *Placeholder {
    return Refresh(&Placeholder { Header: newHeader(), Ty: ty, Class: cls }).(*Placeholder)
}

func (self *Placeholder) Type() Type     { return self.Ty }
func (self *Placeholder) String() string { return fmt.Sprintf("(argplace.%s)", self.Ty) }

// ArrIndex is an unexpanded array element access.
type ArrIndex struct {
    Header
    Ty         Type
    Arr        Expr
    Index      Expr
    ElemSize   int
    Class      *Class
    LenOffset  int
    DataOffset int
}

func NewArrIndex(ty Type, arr Expr, index Expr, size int, lenOff int, dataOff int) *ArrIndex {
    return Refresh(&ArrIndex {
        Header     : newHeader(),
        Ty         : ty,
        Arr        : arr,
        Index      : index,
        ElemSize   : size,
        LenOffset  : lenOff,
        DataOffset : dataOff,
    }).(*ArrIndex)
}

func (self *ArrIndex) Type() Type        { return self.Ty }
func (self *ArrIndex) Operands() []*Expr { return []*Expr { &self.Arr, &self.Index } }
func (self *ArrIndex) String() string    { return fmt.Sprintf("(index.%s %s %s)", self.Ty, self.Arr, self.Index) }
func (self *ArrIndex) own() Effect       { return EffExcept | EffGlobRef }

type ArrLen struct {
    Header
    Arr    Expr
    Offset int
}

func NewArrLen(arr Expr, off int) *ArrLen {
    return Refresh(&ArrLen { Header: newHeader(), Arr: arr, Offset: off }).(*ArrLen)
}

func (self *ArrLen) Type() Type        { return Int32 }
func (self *ArrLen) Operands() []*Expr { return []*Expr { &self.Arr } }
func (self *ArrLen) String() string    { return fmt.Sprintf("(arrlen %s)", self.Arr) }
func (self *ArrLen) own() Effect       { return EffExcept | EffGlobRef }

// BoundsCheck throws when Index is not below Length.
type BoundsCheck struct {
    Header
    Index  Expr
    Length Expr
}

func NewBoundsCheck(index Expr, length Expr) *BoundsCheck {
    return Refresh(&BoundsCheck { Header: newHeader(), Index: index, Length: length }).(*BoundsCheck)
}

func (self *BoundsCheck) Type() Type        { return Void }
func (self *BoundsCheck) Operands() []*Expr { return []*Expr { &self.Index, &self.Length } }
func (self *BoundsCheck) String() string    { return fmt.Sprintf("(bndchk %s %s)", self.Index, self.Length) }
func (self *BoundsCheck) own() Effect       { return EffExcept }

// BlockOp copies Size bytes from the address Src to the address Dst, or
// when Init is set fills Dst with the byte value Src.
type BlockOp struct {
    Header
    Init   bool
    Dst    Expr
    Src    Expr
    Size   int
    Class  *Class
    Unroll bool
}

func NewCopyBlock(dst Expr, src Expr, cls *Class) *BlockOp {
    return Refresh(&BlockOp { Header: newHeader(), Dst: dst, Src: src, Size: cls.Size, Class: cls }).(*BlockOp)
}

func NewInitBlock(dst Expr, val Expr, cls *Class) *BlockOp {
    return Refresh(&BlockOp { Header: newHeader(), Init: true, Dst: dst, Src: val, Size: cls.Size, Class: cls }).(*BlockOp)
}

func (self *BlockOp) Type() Type        { return Void }
func (self *BlockOp) Operands() []*Expr { return []*Expr { &self.Dst, &self.Src } }

func (self *BlockOp) String() string {
    var tag string
    if self.Unroll {
        tag = "!unroll"
    }
    if self.Init {
        return fmt.Sprintf("(initblk%s %d %s %s)", tag, self.Size, self.Dst, self.Src)
    } else {
        return fmt.Sprintf("(copyblk%s %d %s %s)", tag, self.Size, self.Dst, self.Src)
    }
}

func (self *BlockOp) own() Effect {
    fx := EffAssign
    if !IsLocalAddr(self.Dst) || (!self.Init && !IsLocalAddr(self.Src)) {
        fx |= EffExcept | EffGlobRef
    }
    return fx
}

// FieldItem is one register-sized piece of a FieldList.
type FieldItem struct {
    X   Expr
    Off int
    Ty  Type
}

// FieldList is a struct value decomposed into register-sized pieces.
type FieldList struct {
    Header
    Items []FieldItem
    Class *Class
}

func NewFieldList(cls *Class, items ...FieldItem) *FieldList {
    return Refresh(&FieldList { Header: newHeader(), Items: items, Class: cls }).(*FieldList)
}

func (self *FieldList) Type() Type { return Struct }

func (self *FieldList) Operands() []*Expr {
    ret := make([]*Expr, len(self.Items))
    for i := range self.Items {
        ret[i] = &self.Items[i].X
    }
    return ret
}

func (self *FieldList) String() string {
    buf := make([]string, len(self.Items))
    for i, v := range self.Items {
        buf[i] = fmt.Sprintf("+%d:%s", v.Off, v.X)
    }
    return fmt.Sprintf("(fieldlist %s)", strings.Join(buf, " "))
}
