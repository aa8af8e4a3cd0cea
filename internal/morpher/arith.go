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
    `math/bits`

    `github.com/cloudwego/morph/internal/utils`
    `github.com/cloudwego/morph/ir`
)

func (self *Context) morphBinary(v *ir.Binary, cond bool) ir.Expr {
    v.X = self.morph(v.X)
    v.Y = self.morph(v.Y)
    ir.Refresh(v)

    /* dispatch by operator */
    switch {
        case v.Op.IsCompare()     : return self.morphCompare(v, cond)
        case v.Op.IsDivMod()      : return self.morphDivMod(v)
        case v.Op.IsShift()       : return self.morphShift(v)
        case v.Op == ir.OpSub     : return self.morphSub(v)
        case v.Op == ir.OpMul     : return self.morphMul(v)
        case v.Op == ir.OpOr      : return self.morphOrXor(v)
        case v.Op == ir.OpXor     : return self.morphOrXor(v)
        case v.Op.IsCommutative() : return self.morphCommutative(v)
        default                   : return v
    }
}

func intConst(e ir.Expr) (*ir.IntConst, bool) {
    if c, ok := e.(*ir.IntConst); ok && c.Class == nil {
        return c, true
    } else {
        return nil, false
    }
}

func foldBinary(op ir.Op, ty ir.Type, x int64, y int64, ptr int) int64 {
    switch op {
        case ir.OpAdd : return ir.Truncate(x + y, ty, ptr)
        case ir.OpSub : return ir.Truncate(x - y, ty, ptr)
        case ir.OpMul : return ir.Truncate(x * y, ty, ptr)
        case ir.OpAnd : return ir.Truncate(x & y, ty, ptr)
        case ir.OpOr  : return ir.Truncate(x | y, ty, ptr)
        case ir.OpXor : return ir.Truncate(x ^ y, ty, ptr)
        default       : panic(utils.EInternal("cannot fold operator %s", op))
    }
}

// morphCommutative brings chains of a commutative operator into a left
// leaning form with the constants combined on the right.
func (self *Context) morphCommutative(v *ir.Binary) ir.Expr {
    if !v.Ty.IsIntOrPtr() {
        return v
    }

    /* constants go to the right */
    old := self.dump(v)
    if _, ok := intConst(v.X); ok {
        if _, ok = intConst(v.Y); !ok {
            v.X, v.Y = v.Y, v.X
        }
    }

    /* checked arithmetic is only commuted */
    if v.Overflow {
        return v
    }

    /* both constant */
    x, xc := intConst(v.X)
    y, yc := intConst(v.Y)
    if xc && yc {
        return self.rewritten("fold", old, ir.NewInt(v.Ty, foldBinary(v.Op, v.Ty, x.V, y.V, self.ptr)))
    }

    /* "a op (b op c)" becomes "(a op b) op c" */
    if r, ok := v.Y.(*ir.Binary); ok && r.Op == v.Op && r.Ty == v.Ty && !r.Overflow && !v.Ty.IsGC() {
        ret := ir.NewBinary(v.Op, v.Ty, self.morphCommutative(ir.NewBinary(v.Op, v.Ty, v.X, r.X)), r.Y)
        return self.rewritten("reassoc", old, self.morphCommutative(ret))
    }

    /* "(x op c1) op c2" becomes "x op (c1 op c2)" */
    if l, ok := v.X.(*ir.Binary); ok && yc && l.Op == v.Op && l.Ty == v.Ty && !l.Overflow {
        if c, ok := intConst(l.Y); ok {
            l.Y = ir.NewInt(c.Ty, foldBinary(v.Op, v.Ty, c.V, y.V, self.ptr))
            return self.rewritten("reassoc", old, self.morphCommutative(ir.Refresh(l).(*ir.Binary)))
        }
    }

    /* identities that keep the type of the value */
    if yc && v.X.Type() == v.Ty {
        switch {
            case v.Op == ir.OpAdd && y.V == 0 : return self.rewritten("identity", old, v.X)
            case v.Op == ir.OpOr  && y.V == 0 : return self.rewritten("identity", old, v.X)
            case v.Op == ir.OpXor && y.V == 0 : return self.rewritten("identity", old, v.X)
            case v.Op == ir.OpAnd && y.V == ir.Truncate(-1, v.Ty, self.ptr) : return self.rewritten("identity", old, v.X)
        }
    }
    return ir.Refresh(v)
}

// morphSub turns the subtraction of a constant into an addition.
func (self *Context) morphSub(v *ir.Binary) ir.Expr {
    if !v.Ty.IsIntOrPtr() || v.Overflow {
        return v
    }

    /* constant operands */
    old := self.dump(v)
    x, xc := intConst(v.X)
    y, yc := intConst(v.Y)

    /* fold or negate */
    switch {
        case xc && yc : return self.rewritten("fold", old, ir.NewInt(v.Ty, foldBinary(ir.OpSub, v.Ty, x.V, y.V, self.ptr)))
        case yc       : return self.rewritten("sub", old, self.morphCommutative(ir.NewBinary(ir.OpAdd, v.Ty, v.X, ir.NewInt(y.Ty, ir.Truncate(-y.V, y.Ty, self.ptr)))))
        default       : return v
    }
}

func (self *Context) morphShift(v *ir.Binary) ir.Expr {
    y, ok := intConst(v.Y)
    if !ok {
        return v
    }

    /* shift counts are masked by the operand width */
    if y.V & int64(v.Ty.Bits(self.ptr) - 1) == 0 && v.X.Type() == v.Ty {
        return self.rewritten("identity", self.dump(v), v.X)
    } else {
        return v
    }
}

func (self *Context) morphOrXor(v *ir.Binary) ir.Expr {
    if e := self.morphCommutative(v); e != ir.Expr(v) {
        return e
    } else {
        return self.morphRotate(v)
    }
}

// morphMul reduces multiplications by constants.
func (self *Context) morphMul(v *ir.Binary) ir.Expr {
    e := self.morphCommutative(v)
    r, ok := e.(*ir.Binary)

    /* unchecked integer multiplications only */
    if !ok || r.Op != ir.OpMul || r.Overflow || !r.Ty.IsIntegral() {
        return e
    }

    /* only constant multipliers */
    y, ok := intConst(r.Y)
    if !ok {
        return r
    }

    /* trivial multipliers */
    old := self.dump(r)
    switch y.V {
        case 0  : return self.rewritten("mul", old, self.zeroOf(r))
        case 1  : return self.rewritten("mul", old, r.X)
        case -1 : return self.rewritten("mul", old, ir.NewUnary(ir.OpNeg, r.Ty, r.X))
    }

    /* powers of two become shifts, negated first when negative */
    x := r.X
    c := uint64(y.V)
    if y.V < 0 {
        x = ir.NewUnary(ir.OpNeg, r.Ty, x)
        c = uint64(-y.V) & widthMask(r.Ty.Bits(self.ptr))
    }

    /* single bit multiplier */
    if bits.OnesCount64(c) == 1 {
        sh := ir.NewInt(ir.Int32, int64(bits.TrailingZeros64(c)))
        return self.rewritten("mul", old, ir.NewBinary(ir.OpLsh, r.Ty, x, sh))
    }

    /* 3, 5 or 9 times a power of two is a lea and a shift */
    if self.feat.PreferLeaMul && y.V > 0 {
        if k := bits.TrailingZeros64(c); k != 0 {
            if f := int64(c >> uint(k)); f == 3 || f == 5 || f == 9 {
                mul := ir.NewBinary(ir.OpMul, r.Ty, r.X, ir.NewInt(y.Ty, f))
                return self.rewritten("mul", old, ir.NewBinary(ir.OpLsh, r.Ty, mul, ir.NewInt(ir.Int32, int64(k))))
            }
        }
    }
    return r
}

// zeroOf returns a zero of the type of v, keeping the side effects of its
// first operand.
func (self *Context) zeroOf(v *ir.Binary) ir.Expr {
    if zero := ir.NewInt(v.Ty, 0); ir.HasEffects(v.X, ir.EffSide) {
        return ir.NewComma(v.X, zero)
    } else {
        return zero
    }
}

func widthMask(w int) uint64 {
    if w >= 64 {
        return ^uint64(0)
    } else {
        return 1 << uint(w) - 1
    }
}
