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

package morpher

import (
    `github.com/cloudwego/morph/internal/utils`
    `github.com/cloudwego/morph/ir`
)

// morphArrIndex expands an array element access into a bounds check
// followed by an indirection through the element address.
func (self *Context) morphArrIndex(v *ir.ArrIndex) ir.Expr {
    v.Arr = self.morph(v.Arr)
    v.Index = self.morph(v.Index)
    ir.Refresh(v)

    /* validate the node shape */
    if v.ElemSize <= 0 || v.Arr.Type() != ir.Ref || !v.Index.Type().IsIntegral() {
        panic(utils.EBadCode("malformed array element access %s", v))
    } else if v.Ty == ir.Struct && v.Class == nil {
        panic(utils.EBadCode("struct array element without a class: %s", v))
    }

    /* the array is re-read only when the index cannot change it */
    var as ir.Expr
    var arr1 ir.Expr
    var arr2 ir.Expr
    if ir.IsCheapToClone(v.Arr) && !ir.HasEffects(v.Index, ir.EffAssign | ir.EffCall) {
        arr1, arr2 = v.Arr, ir.Clone(v.Arr)
    } else {
        asg, tmp := self.newTemp(v.Arr, "array base")
        as, arr1, arr2 = asg, ir.NewLocal(tmp, ir.Ref), ir.NewLocal(tmp, ir.Ref)
    }

    /* the index is needed by the check and by the address */
    old := self.dump(v)
    is, idx1, idx2 := self.multiUse(v.Index, "array index")

    /* bounds check against the length */
    bnd := ir.NewBoundsCheck(idx1, ir.NewArrLen(arr1, v.LenOffset))
    addr := ir.NewBinary(ir.OpAdd, ir.ByRef, arr2, self.elemOffset(v, idx2))

    /* the element itself */
    var elem *ir.Indir
    if v.Ty == ir.Struct {
        elem = ir.NewObj(v.Class, addr)
    } else {
        elem = ir.NewIndir(v.Ty, addr)
    }

    /* the access is only valid after the check */
    elem.ArrElem = true
    ret := ir.NewComma(bnd, elem)
    return self.rewritten("index", old, sequence(ret, as, is))
}

// elemOffset returns "index * size + first element offset" in native width.
func (self *Context) elemOffset(v *ir.ArrIndex, idx ir.Expr) ir.Expr {
    if c, ok := intConst(idx); ok {
        off := ir.NewInt(ir.IntPtr, int64(v.DataOffset) + c.V * int64(v.ElemSize))
        off.Seq = ir.SeqFirstElemConstIndex
        return off
    }

    /* widen the index to pointer size */
    if idx.Type().Size(self.ptr) != self.ptr {
        idx = self.morph(ir.NewCast(ir.IntPtr, idx))
    }

    /* scale the index */
    if v.ElemSize != 1 {
        idx = self.morph(ir.NewBinary(ir.OpMul, ir.IntPtr, idx, ir.NewInt(ir.IntPtr, int64(v.ElemSize))))
    }

    /* the first element offset is a field sequence of its own */
    first := ir.NewInt(ir.IntPtr, int64(v.DataOffset))
    first.Seq = ir.SeqFirstElem
    return ir.NewBinary(ir.OpAdd, ir.IntPtr, idx, first)
}
