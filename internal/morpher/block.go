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
    `math`

    `github.com/cloudwego/morph/ir`
)

// morphBlockOp lowers a block copy or init into a scalar assignment, into
// per-field assignments of promoted locals, or keeps it as a block marked
// for unrolling.
func (self *Context) morphBlockOp(v *ir.BlockOp) ir.Expr {
    old := self.dump(v)
    dst, _ := self.blockLocal(v.Dst)
    src, _ := self.blockLocal(v.Src)

    /* copying a local onto itself */
    if !v.Init && dst != nil && src != nil && ir.Equal(v.Dst, v.Src) {
        return self.rewritten("blk", old, ir.NewNop(nil))
    }

    /* promoted structs are better copied field by field */
    fields := self.isMultiField(dst) || (!v.Init && self.isMultiField(src))
    if fields {
        if r := self.blockByFields(v); r != nil {
            return self.rewritten("blk", old, r)
        }
    }

    /* small blocks are a single load and store */
    if r := self.blockAsScalar(v); r != nil {
        return self.rewritten("blk", old, r)
    }

    /* single field promotions */
    if !fields {
        if r := self.blockByFields(v); r != nil {
            return self.rewritten("blk", old, r)
        }
    }

    /* block operations address the locals in memory */
    if dst != nil { dst.DoNotEnregister = true }
    if src != nil && !v.Init { src.DoNotEnregister = true }

    /* mark for unrolling */
    if v.Size <= self.opts.BlockUnrollLimit() {
        v.Unroll = true
    }
    return ir.Refresh(v)
}

// blockLocal returns the local whose address e is, and the offset into it.
func (self *Context) blockLocal(e ir.Expr) (*ir.LocalVar, int) {
    if a, ok := e.(*ir.Addr); ok {
        switch x := a.X.(type) {
            case *ir.Local      : return self.m.Local(x.Num), 0
            case *ir.LocalField : return self.m.Local(x.Num), x.Off
        }
    }
    return nil, 0
}

func (self *Context) isMultiField(lv *ir.LocalVar) bool {
    return lv != nil && lv.Promoted && len(lv.Fields) > 1
}

func (self *Context) blockAsScalar(v *ir.BlockOp) ir.Expr {
    ty, ok := self.scalarOf(v.Class, v.Size)
    if !ok {
        return nil
    }

    /* the value to store */
    var val ir.Expr
    if !v.Init {
        val = ir.NewIndir(ty, v.Src)
    } else if c, ok := intConst(v.Src); !ok {
        return nil
    } else {
        if c.V & 0xff != 0 && ty.IsGC() {
            ty = ir.IntOfSize(v.Size, false)
        }
        val = ir.NewInt(ty, ir.Truncate(replicate(c.V), ty, self.ptr))
    }

    /* a single assignment, local accesses are simplified by morphing */
    return self.morph(ir.NewAssign(ir.NewIndir(ty, v.Dst), val))
}

// scalarOf returns the primitive type that moves a block of the given size
// in one access, keeping the GC type of a single pointer slot.
func (self *Context) scalarOf(cls *ir.Class, size int) (ir.Type, bool) {
    if size > self.ptr {
        return ir.Void, false
    }

    /* power of two sizes only */
    switch size {
        case 1, 2, 4, 8 : break
        default         : return ir.Void, false
    }

    /* a single pointer slot */
    if gc := cls.GCLayout(); size == self.ptr && len(gc) == 1 && gc[0].IsGC() {
        return gc[0], true
    } else {
        return ir.IntOfSize(size, false), true
    }
}

// blockByFields copies or initializes a promoted struct one field at a time.
func (self *Context) blockByFields(v *ir.BlockOp) ir.Expr {
    dst, doff := self.blockLocal(v.Dst)
    src, soff := self.blockLocal(v.Src)

    /* fields sharing bytes cannot be moved one at a time */
    if v.Class.Custom || v.Class.Overlaps() {
        return nil
    }

    /* only whole promoted locals of the block's class */
    if !self.isWholePromoted(dst, doff, v.Class) { dst = nil }
    if v.Init || !self.isWholePromoted(src, soff, v.Class) { src = nil }

    /* initialization of a promoted destination */
    if v.Init {
        if c, ok := intConst(v.Src); ok && dst != nil {
            return self.initFields(dst, c.V & 0xff)
        } else {
            return nil
        }
    }

    /* both sides promoted */
    if dst != nil && src != nil {
        var asg []ir.Expr
        for i, fn := range dst.Fields {
            fv := self.m.Local(fn)
            asg = append(asg, self.morph(ir.NewAssign(ir.NewLocal(fn, fv.Type), ir.NewLocal(src.Fields[i], fv.Type))))
        }
        return chain(asg)
    }

    /* the other side is accessed through its address */
    switch {
        case v.Class.Holes() : return nil
        case dst != nil      : return self.copyFields(dst, v.Src, true)
        case src != nil      : return self.copyFields(src, v.Dst, false)
        default              : return nil
    }
}

func (self *Context) isWholePromoted(lv *ir.LocalVar, off int, cls *ir.Class) bool {
    return lv != nil && lv.Promoted && off == 0 && lv.Class == cls
}

// copyFields copies between the promoted local lv and the struct at addr,
// load tells the direction.
func (self *Context) copyFields(lv *ir.LocalVar, addr ir.Expr, load bool) ir.Expr {
    var asg []ir.Expr
    setup, use := self.reusable(addr, "block field address")

    /* a plain local is addressed by field */
    other, base := self.blockLocal(addr)
    if other != nil {
        other.DoNotEnregister = true
    }

    /* one assignment per field */
    for _, fn := range lv.Fields {
        var mem ir.Expr
        fv := self.m.Local(fn)

        /* the memory side of the field */
        if other != nil {
            mem = ir.NewLocalField(other.Num, base + fv.FieldOffset, fv.Type)
        } else {
            mem = ir.NewIndir(fv.Type, offsetOf(use(), fv.FieldOffset))
        }

        /* copy in the right direction */
        if load {
            asg = append(asg, self.morph(ir.NewAssign(ir.NewLocal(fn, fv.Type), mem)))
        } else {
            asg = append(asg, self.morph(ir.NewAssign(mem, ir.NewLocal(fn, fv.Type))))
        }
    }

    /* the address is evaluated first */
    if other != nil {
        return chain(asg)
    } else {
        return sequence(chain(asg), setup)
    }
}

func (self *Context) initFields(lv *ir.LocalVar, b int64) ir.Expr {
    var asg []ir.Expr
    for _, fn := range lv.Fields {
        fv := self.m.Local(fn)
        asg = append(asg, self.morph(ir.NewAssign(ir.NewLocal(fn, fv.Type), self.filled(fv.Type, b))))
    }
    return chain(asg)
}

// filled returns a constant of type ty whose every byte is b.
func (self *Context) filled(ty ir.Type, b int64) ir.Expr {
    v := replicate(b)
    switch ty {
        case ir.Float32 : return ir.NewFloat(ty, float64(math.Float32frombits(uint32(v))))
        case ir.Float64 : return ir.NewFloat(ty, math.Float64frombits(uint64(v)))
        default         : return ir.NewInt(ty, ir.Truncate(v, ty, self.ptr))
    }
}

// reusable returns a generator of copies of e, spilling it into a
// temporary first unless it is cheap to clone.
func (self *Context) reusable(e ir.Expr, reason string) (ir.Expr, func() ir.Expr) {
    if ir.IsCheapToClone(e) {
        return nil, func() ir.Expr { return ir.Clone(e) }
    }

    /* spill into a temporary */
    asg, tmp := self.newTemp(e, reason)
    ty := asg.Dst.Type()
    return asg, func() ir.Expr { return ir.NewLocal(tmp, ty) }
}

func replicate(b int64) int64 {
    return int64(uint64(b & 0xff) * 0x0101010101010101)
}

// chain sequences the expressions left to right, the last one is the value.
func chain(v []ir.Expr) ir.Expr {
    if len(v) == 0 {
        return ir.NewNop(nil)
    }

    /* fold from the right */
    ret := v[len(v) - 1]
    for i := len(v) - 2; i >= 0; i-- {
        ret = ir.NewComma(v[i], ret)
    }
    return ret
}
