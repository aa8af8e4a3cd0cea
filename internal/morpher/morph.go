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

func (self *Context) morph(e ir.Expr) ir.Expr {
    return self.morphExpr(e, false)
}

// morphExpr rewrites e bottom-up. cond tells whether the value of e is
// consumed by a branch rather than used as a value.
func (self *Context) morphExpr(e ir.Expr, cond bool) ir.Expr {
    switch v := e.(type) {
        case *ir.Call       : return self.morphCall(v)
        case *ir.ArrIndex   : return self.morphArrIndex(v)
        case *ir.Binary     : return self.morphBinary(v, cond)
        case *ir.Comma      : return self.morphComma(v, cond)
        case *ir.Select     : return self.morphSelect(v)
        case *ir.Jump       : v.Cond = self.morphExpr(v.Cond, true); return ir.Refresh(v)
        case *ir.Addr       : return self.morphAddr(v)
        case *ir.Local      : return self.morphLocal(v)
        case *ir.LocalField : return self.morphLocal(v)
    }

    /* operands are final before the node is inspected */
    for _, p := range ir.Children(e) {
        if *p != nil {
            *p = self.morph(*p)
        }
    }

    /* node specific rewrites */
    switch v := ir.Refresh(e).(type) {
        case *ir.Cast    : return self.morphCast(v)
        case *ir.Indir   : return self.morphIndir(v)
        case *ir.Unary   : return self.morphUnary(v)
        case *ir.Assign  : return self.morphAssign(v)
        case *ir.BlockOp : return self.morphBlockOp(v)
        default          : return e
    }
}

func (self *Context) morphSelect(v *ir.Select) ir.Expr {
    v.Cond = self.morphExpr(v.Cond, true)
    v.Then = self.morph(v.Then)
    v.Else = self.morph(v.Else)
    return ir.Refresh(v)
}

func (self *Context) morphComma(v *ir.Comma, cond bool) ir.Expr {
    v.X = self.morph(v.X)
    v.Y = self.morphExpr(v.Y, cond)
    v.Ty = v.Y.Type()

    /* the first part is only kept for its side effects */
    if !ir.HasEffects(v.X, ir.EffSide) {
        return self.rewritten("comma", self.dump(v), v.Y)
    }

    /* a trailing empty nop is useless */
    if n, ok := v.Y.(*ir.Nop); ok && n.X == nil {
        return self.rewritten("comma", self.dump(v), v.X)
    }
    return ir.Refresh(v)
}

func (self *Context) morphAddr(v *ir.Addr) ir.Expr {
    v.X = self.morph(v.X)
    old := self.dump(v)

    /* check the address shape, taking an address reads nothing */
    switch x := v.X.(type) {
        case *ir.Local      : x.Exposed = false; ir.Refresh(x); return ir.Refresh(v)
        case *ir.LocalField : x.Exposed = false; ir.Refresh(x); return ir.Refresh(v)
        case *ir.Indir      : return self.morphAddrOfIndir(v, x)
        case *ir.Comma      : return self.rewritten("addr", old, self.morph(ir.NewComma(x.X, ir.NewAddr(x.Y))))
        default             : panic(utils.EBadCode("taking the address of %s", v.X))
    }
}

// morphAddrOfIndir folds &(*p) into p, unless the indirection is an array
// element whose bounds check bookkeeping must be kept.
func (self *Context) morphAddrOfIndir(v *ir.Addr, x *ir.Indir) ir.Expr {
    if x.ArrElem {
        return ir.Refresh(v)
    } else {
        return self.rewritten("addr", self.dump(v), x.Addr)
    }
}

func (self *Context) morphIndir(v *ir.Indir) ir.Expr {
    if a, ok := v.Addr.(*ir.Addr); ok {
        switch x := a.X.(type) {
            case *ir.Local      : return self.localRead(v, x.Num, 0)
            case *ir.LocalField : return self.localRead(v, x.Num, x.Off)
        }
    }

    /* *(&local + c) is a local field */
    if b, ok := v.Addr.(*ir.Binary); ok && b.Op == ir.OpAdd && ir.IsLocalAddr(b.X) {
        if c, ok := b.Y.(*ir.IntConst); ok && c.Class == nil {
            switch x := b.X.(*ir.Addr).X.(type) {
                case *ir.Local      : return self.localRead(v, x.Num, int(c.V))
                case *ir.LocalField : return self.localRead(v, x.Num, x.Off + int(c.V))
            }
        }
    }
    return v
}

// localRead rewrites an indirection through the address of local num plus
// off into a direct access of the local.
func (self *Context) localRead(v *ir.Indir, num int, off int) ir.Expr {
    lv := self.m.Local(num)
    old := self.dump(v)

    /* the whole local */
    if off == 0 && v.Ty == lv.Type && (v.Ty != ir.Struct || v.Class == lv.Class) {
        return self.rewritten("indir", old, self.morphLocal(ir.NewLocal(num, lv.Type)))
    }

    /* only primitive reads within the local */
    if v.Ty == ir.Struct || lv.Class == nil || off < 0 || off + v.Ty.Size(self.ptr) > lv.Class.Size {
        return v
    }

    /* a promoted field matching exactly */
    if fv := self.promotedField(lv, off, v.Ty); fv >= 0 {
        return self.rewritten("indir", old, self.morphLocal(ir.NewLocal(fv, v.Ty)))
    }

    /* otherwise the local must stay in memory */
    if lv.Promoted {
        lv.DoNotEnregister = true
    }
    return self.rewritten("indir", old, self.morphLocal(ir.NewLocalField(num, off, v.Ty)))
}

// morphLocal tags accesses of address exposed locals as global references,
// a store through the escaped address may change them.
func (self *Context) morphLocal(e ir.Expr) ir.Expr {
    switch v := e.(type) {
        case *ir.Local      : v.Exposed = self.isExposed(v.Num)
        case *ir.LocalField : v.Exposed = self.isExposed(v.Num)
    }
    return ir.Refresh(e)
}

func (self *Context) isExposed(num int) bool {
    if lv := self.m.Local(num); !lv.IsField() {
        return lv.AddrExposed
    } else {
        return lv.AddrExposed || self.m.Local(lv.Parent).AddrExposed
    }
}

func (self *Context) promotedField(lv *ir.LocalVar, off int, ty ir.Type) int {
    if lv.Promoted {
        for _, fn := range lv.Fields {
            if fv := self.m.Local(fn); fv.FieldOffset == off && fv.Type == ty {
                return fn
            }
        }
    }
    return -1
}

func (self *Context) morphUnary(v *ir.Unary) ir.Expr {
    old := self.dump(v)
    switch x := v.X.(type) {
        case *ir.IntConst : if x.Class == nil { return self.rewritten("fold", old, ir.NewInt(v.Ty, foldUnary(v.Op, x.V, v.Ty, self.ptr))) }
        case *ir.FltConst : if v.Op == ir.OpNeg { return self.rewritten("fold", old, ir.NewFloat(v.Ty, -x.V)) }
        case *ir.Unary    : if x.Op == v.Op && x.Ty == v.Ty { return self.rewritten("unary", old, x.X) }
    }
    return v
}

func foldUnary(op ir.Op, v int64, ty ir.Type, ptr int) int64 {
    switch op {
        case ir.OpNeg : return ir.Truncate(-v, ty, ptr)
        case ir.OpNot : return ir.Truncate(^v, ty, ptr)
        default       : panic(utils.EInternal("unexpected unary operator %s", op))
    }
}

func (self *Context) morphAssign(v *ir.Assign) ir.Expr {
    old := self.dump(v)

    /* struct assignments become block operations */
    if v.Dst.Type() == ir.Struct {
        return self.morphStructAssign(v)
    }

    /* assigning a local to itself does nothing */
    if d, ok := v.Dst.(*ir.Local); ok && v.Op == ir.OpNop {
        if s, ok := v.Src.(*ir.Local); ok && s.Num == d.Num && s.Ty == d.Ty {
            return self.rewritten("asg", old, ir.NewNop(nil))
        }
        self.m.Local(d.Num).Defined = true
    }

    /* "x = x op y" becomes "x op= y" */
    if self.feat.InPlaceOps && v.Op == ir.OpNop {
        if r := self.inPlaceOp(v); r != nil {
            return self.rewritten("asgop", old, r)
        }
    }
    return v
}

func (self *Context) inPlaceOp(v *ir.Assign) ir.Expr {
    d, ok := v.Dst.(*ir.Local)
    if !ok {
        return nil
    }

    /* the source must be "x op y" of the same type */
    b, ok := v.Src.(*ir.Binary)
    if !ok || b.Overflow || b.Ty != d.Ty || !b.Ty.IsIntegral() {
        return nil
    }

    /* only the accumulating operators */
    switch b.Op {
        case ir.OpAdd, ir.OpSub, ir.OpAnd, ir.OpOr, ir.OpXor : break
        default                                              : return nil
    }

    /* x must be the first operand and unexposed */
    lv := self.m.Local(d.Num)
    if x, ok := b.X.(*ir.Local); !ok || x.Num != d.Num || lv.AddrExposed {
        return nil
    } else if ir.HasEffects(b.Y, ir.EffAssign | ir.EffCall) {
        return nil
    }

    /* the local is both read and written by the node */
    dst := ir.NewLocal(d.Num, d.Ty)
    dst.Def = true
    dst.UseAsg = true
    lv.Used = true
    lv.Defined = true

    /* build the in-place assignment */
    ret := ir.NewAssign(dst, b.Y)
    ret.Op = b.Op
    return ir.Refresh(ret)
}

// morphStructAssign lowers a struct assignment into a block copy or init.
func (self *Context) morphStructAssign(v *ir.Assign) ir.Expr {
    switch src := v.Src.(type) {
        case *ir.Call      : return v
        case *ir.FieldList : return v
        case *ir.Comma     : return self.morph(ir.NewComma(src.X, ir.NewAssign(v.Dst, src.Y)))
    }

    /* find the layout */
    old := self.dump(v)
    cls := self.classOf(v.Dst)
    if cls == nil {
        panic(utils.EInternal("struct assignment without a class: %s", v))
    }

    /* initialization or copy */
    var blk *ir.BlockOp
    if c, ok := v.Src.(*ir.IntConst); ok {
        blk = ir.NewInitBlock(self.addrOf(v.Dst), c, cls)
    } else {
        blk = ir.NewCopyBlock(self.addrOf(v.Dst), self.addrOf(v.Src), cls)
    }

    /* lower the block operation */
    return self.rewritten("blkasg", old, self.morphBlockOp(blk))
}

// lowerStructAssign is the hook used by the argument table for struct
// temporaries.
func (self *Context) lowerStructAssign(v *ir.Assign) ir.Expr {
    return self.morphStructAssign(v)
}

func (self *Context) classOf(e ir.Expr) *ir.Class {
    switch v := e.(type) {
        case *ir.Local       : return self.m.Local(v.Num).Class
        case *ir.Indir       : return v.Class
        case *ir.Call        : return v.RetClass
        case *ir.FieldList   : return v.Class
        case *ir.Placeholder : return v.Class
        case *ir.ArrIndex    : return v.Class
        default              : return nil
    }
}

func (self *Context) addrOf(e ir.Expr) ir.Expr {
    switch v := e.(type) {
        case *ir.Local      : return ir.NewAddr(v)
        case *ir.LocalField : return ir.NewAddr(v)
        case *ir.Indir      : return v.Addr
        default             : panic(utils.EInternal("cannot take the address of %s", e))
    }
}
