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

// Equal reports whether a and b are structurally identical trees. Node
// identities, cached effect summaries and argument tables are not compared.
func Equal(a Expr, b Expr) bool {
    if a == nil || b == nil {
        return a == nil && b == nil
    }

    /* compare the payload of the nodes */
    if !sameNode(a, b) {
        return false
    }

    /* compare the operands */
    x := Children(a)
    y := Children(b)

    /* must have the same arity */
    if len(x) != len(y) {
        return false
    }

    /* compare every operand */
    for i := range x {
        if !Equal(*x[i], *y[i]) {
            return false
        }
    }
    return true
}

func sameNode(a Expr, b Expr) bool {
    switch x := a.(type) {
        case *IntConst    : y, ok := b.(*IntConst)    ; return ok && x.Ty == y.Ty && x.V == y.V && x.Class == y.Class && x.Seq == y.Seq
        case *FltConst    : y, ok := b.(*FltConst)    ; return ok && x.Ty == y.Ty && x.V == y.V
        case *Local       : y, ok := b.(*Local)       ; return ok && x.Ty == y.Ty && x.Num == y.Num
        case *LocalField  : y, ok := b.(*LocalField)  ; return ok && x.Ty == y.Ty && x.Num == y.Num && x.Off == y.Off
        case *Addr        : y, ok := b.(*Addr)        ; return ok && x.Ty == y.Ty
        case *Indir       : y, ok := b.(*Indir)       ; return ok && x.Ty == y.Ty && x.Class == y.Class && x.ArrElem == y.ArrElem
        case *Unary       : y, ok := b.(*Unary)       ; return ok && x.Op == y.Op && x.Ty == y.Ty
        case *Binary      : y, ok := b.(*Binary)      ; return ok && x.Op == y.Op && x.Ty == y.Ty && x.Overflow == y.Overflow && x.Unsigned == y.Unsigned
        case *Cast        : y, ok := b.(*Cast)        ; return ok && x.Ty == y.Ty && x.Overflow == y.Overflow && x.Unsigned == y.Unsigned
        case *Assign      : y, ok := b.(*Assign)      ; return ok && x.Op == y.Op
        case *Comma       : y, ok := b.(*Comma)       ; return ok && x.Ty == y.Ty
        case *Select      : y, ok := b.(*Select)      ; return ok && x.Ty == y.Ty
        case *Jump        : _, ok := b.(*Jump)        ; return ok
        case *Nop         : _, ok := b.(*Nop)         ; return ok
        case *Placeholder : y, ok := b.(*Placeholder) ; return ok && x.Ty == y.Ty && x.Class == y.Class
        case *ArrIndex    : y, ok := b.(*ArrIndex)    ; return ok && x.Ty == y.Ty && x.ElemSize == y.ElemSize && x.DataOffset == y.DataOffset
        case *ArrLen      : y, ok := b.(*ArrLen)      ; return ok && x.Offset == y.Offset
        case *BoundsCheck : _, ok := b.(*BoundsCheck) ; return ok
        case *BlockOp     : y, ok := b.(*BlockOp)     ; return ok && x.Init == y.Init && x.Size == y.Size && x.Unroll == y.Unroll
        case *FieldList   : y, ok := b.(*FieldList)   ; return ok && sameItems(x.Items, y.Items)
        case *Call        : y, ok := b.(*Call)        ; return ok && sameCall(x, y)
        default           : return false
    }
}

func sameItems(a []FieldItem, b []FieldItem) bool {
    if len(a) != len(b) {
        return false
    }
    for i := range a {
        if a[i].Off != b[i].Off || a[i].Ty != b[i].Ty {
            return false
        }
    }
    return true
}

func sameCall(a *Call, b *Call) bool {
    return a.Kind == b.Kind &&
           a.Ret == b.Ret &&
           a.Method == b.Method &&
           a.Helper == b.Helper &&
           len(a.Args) == len(b.Args) &&
           len(a.Late) == len(b.Late) &&
           (a.This == nil) == (b.This == nil) &&
           (a.Target == nil) == (b.Target == nil)
}
