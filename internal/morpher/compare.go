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
    `github.com/cloudwego/morph/args`
    `github.com/cloudwego/morph/ir`
)

func (self *Context) morphCompare(v *ir.Binary, cond bool) ir.Expr {
    old := self.dump(v)

    /* constants go to the right */
    if _, ok := intConst(v.X); ok {
        if _, ok = intConst(v.Y); !ok {
            v.X, v.Y, v.Op = v.Y, v.X, v.Op.Swap()
        }
    }

    /* fold integer constants */
    x, xc := intConst(v.X)
    y, yc := intConst(v.Y)
    if xc && yc && v.X.Type().IsIntegral() {
        return self.rewritten("fold", old, ir.NewInt(ir.Int32, foldCompare(v, x.V, y.V, self.ptr)))
    }

    /* runtime type checks and nullable boxes */
    if r := self.compareHelpers(v); r != nil {
        return self.rewritten("cmp", old, self.morphExpr(r, cond))
    }

    /* comparisons against one become comparisons against zero */
    if yc && !v.Unsigned && v.X.Type().IsIntegral() && !v.X.Type().IsUnsigned() {
        switch {
            case y.V == 1  && v.Op == ir.OpGe : v.Op, v.Y = ir.OpGt, ir.NewInt(y.Ty, 0)
            case y.V == 1  && v.Op == ir.OpLt : v.Op, v.Y = ir.OpLe, ir.NewInt(y.Ty, 0)
            case y.V == -1 && v.Op == ir.OpLe : v.Op, v.Y = ir.OpLt, ir.NewInt(y.Ty, 0)
            case y.V == -1 && v.Op == ir.OpGt : v.Op, v.Y = ir.OpGe, ir.NewInt(y.Ty, 0)
        }
    }

    /* some compares only exist as branches */
    if !cond && self.feat.CompareNeedsBranch(v.X.Type()) {
        self.m.QmarkUsed = true
        return self.rewritten("cmp", old, ir.NewSelect(ir.Int32, ir.Refresh(v), ir.NewInt(ir.Int32, 1), ir.NewInt(ir.Int32, 0)))
    }
    return ir.Refresh(v)
}

func foldCompare(v *ir.Binary, x int64, y int64, ptr int) int64 {
    var r bool
    w := v.X.Type().Bits(ptr)

    /* unsigned compares look at the truncated bits */
    if v.Unsigned || v.X.Type().IsUnsigned() {
        ux := uint64(x) & widthMask(w)
        uy := uint64(y) & widthMask(w)
        switch v.Op {
            case ir.OpEq : r = ux == uy
            case ir.OpNe : r = ux != uy
            case ir.OpLt : r = ux < uy
            case ir.OpLe : r = ux <= uy
            case ir.OpGt : r = ux > uy
            case ir.OpGe : r = ux >= uy
        }
    } else {
        switch v.Op {
            case ir.OpEq : r = x == y
            case ir.OpNe : r = x != y
            case ir.OpLt : r = x < y
            case ir.OpLe : r = x <= y
            case ir.OpGt : r = x > y
            case ir.OpGe : r = x >= y
        }
    }

    /* booleans are 0 or 1 */
    if r {
        return 1
    } else {
        return 0
    }
}

// compareHelpers recognizes equality tests on the results of type helpers
// that can be answered without calling them.
func (self *Context) compareHelpers(v *ir.Binary) ir.Expr {
    if v.Op != ir.OpEq && v.Op != ir.OpNe {
        return nil
    }

    /* typeof(A) == typeof(B) compares the handles */
    if a, ok := helperArgs(v.X, ir.HelperTypeHandleToRuntimeType); ok {
        if b, ok := helperArgs(v.Y, ir.HelperTypeHandleToRuntimeType); ok {
            return ir.NewBinary(v.Op, v.Ty, a[0], b[0])
        }
    }

    /* obj.GetType() == typeof(A) compares the method table */
    if r := self.compareGetType(v, v.X, v.Y); r != nil {
        return r
    } else if r = self.compareGetType(v, v.Y, v.X); r != nil {
        return r
    }

    /* box(nullable) == null tests the hasValue flag */
    if y, ok := intConst(v.Y); ok && y.V == 0 {
        if a, ok := helperArgs(v.X, ir.HelperBoxNullable); ok && len(a) == 2 {
            if h, ok := a[0].(*ir.IntConst); ok && h.Class != nil && h.Class.Nullable {
                flag := ir.NewIndir(ir.Bool, offsetOf(a[1], h.Class.HasValue))
                return ir.NewBinary(v.Op, v.Ty, flag, ir.NewInt(ir.Int32, 0))
            }
        }
    }
    return nil
}

func (self *Context) compareGetType(v *ir.Binary, obj ir.Expr, typ ir.Expr) ir.Expr {
    a, ok := helperArgs(obj, ir.HelperGetType)
    if !ok || len(a) != 1 {
        return nil
    }

    /* the other side must be typeof of a known class */
    b, ok := helperArgs(typ, ir.HelperTypeHandleToRuntimeType)
    if !ok || len(b) != 1 {
        return nil
    }

    /* proxies do not have their own method table */
    if h, ok := b[0].(*ir.IntConst); !ok || h.Class == nil || h.Class.Proxy {
        return nil
    }

    /* the method table is the first word of the object */
    mt := ir.NewIndir(ir.IntPtr, a[0])
    return ir.NewBinary(v.Op, v.Ty, mt, b[0])
}

// helperArgs returns the argument values of a call to fn. A morphed call
// only qualifies while none of its arguments was spilled into a temporary.
func helperArgs(e ir.Expr, fn ir.Helper) ([]ir.Expr, bool) {
    c, ok := e.(*ir.Call)
    if !ok || c.Kind != ir.CallHelper || c.Helper != fn {
        return nil, false
    }

    /* not morphed yet */
    info, ok := c.Info.(*args.Info)
    if !ok {
        return c.Args, true
    }

    /* collect the final argument nodes */
    ret := make([]ir.Expr, info.ArgCount())
    for i := range ret {
        if p := info.EntryFor(i); p.IsTemp {
            return nil, false
        } else {
            ret[i] = p.Node
        }
    }
    return ret, true
}

func offsetOf(addr ir.Expr, off int) ir.Expr {
    if off == 0 {
        return addr
    } else {
        return ir.NewBinary(ir.OpAdd, addr.Type(), addr, ir.NewInt(ir.IntPtr, int64(off)))
    }
}
