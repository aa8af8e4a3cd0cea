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
    `github.com/cloudwego/morph/ir`
)

func (self *Context) morphDivMod(v *ir.Binary) ir.Expr {
    old := self.dump(v)

    /* floating point remainder has no instruction */
    if v.Ty.IsFloat() {
        if v.Op != ir.OpMod {
            return v
        } else if v.Ty == ir.Float32 {
            return self.rewritten("divmod", old, self.morph(ir.NewHelperCall(ir.HelperFltRem, v.Ty, v.X, v.Y)))
        } else {
            return self.rewritten("divmod", old, self.morph(ir.NewHelperCall(ir.HelperDblRem, v.Ty, v.X, v.Y)))
        }
    }

    /* long division on 32-bit targets */
    if v.Ty.IsLong(self.ptr) && self.ptr == 4 {
        return self.rewritten("divmod", old, self.morph(ir.NewHelperCall(longDivHelper(v.Op), v.Ty, v.X, v.Y)))
    }

    /* constant operands */
    x, xc := intConst(v.X)
    y, yc := intConst(v.Y)
    if xc && yc {
        if r, ok := foldDivMod(v, x.V, y.V, self.ptr); ok {
            return self.rewritten("fold", old, ir.NewInt(v.Ty, r))
        }
    }

    /* targets without a remainder instruction */
    if !self.feat.HasRemainder && (v.Op == ir.OpMod || v.Op == ir.OpUMod) {
        return self.rewritten("divmod", old, self.modToDiv(v))
    }

    /* only signed division by a constant is reduced further */
    if !yc || (v.Op != ir.OpDiv && v.Op != ir.OpMod) {
        return v
    }

    /* n / 1 is n */
    if v.Op == ir.OpDiv && y.V == 1 && v.X.Type() == v.Ty {
        return self.rewritten("divmod", old, v.X)
    }

    /* check the divisor */
    if !isMagicDivisor(y.V, v.Ty.Bits(self.ptr)) {
        return v
    }

    /* division, or remainder in terms of division */
    if v.Op == ir.OpDiv {
        return self.rewritten("magic", old, self.magicDiv(v.Ty, v.X, y.V))
    } else {
        return self.rewritten("divmod", old, self.modToDiv(v))
    }
}

// modToDiv rewrites "n % d" as "n - (n / d) * d".
func (self *Context) modToDiv(v *ir.Binary) ir.Expr {
    op := ir.OpDiv
    if v.Op == ir.OpUMod {
        op = ir.OpUDiv
    }

    /* both operands are used twice */
    ns, n1, n2 := self.multiUse(v.X, "mod dividend")
    ds, d1, d2 := self.multiUse(v.Y, "mod divisor")

    /* build the identity, the quotient is reduced on its own */
    div := self.morph(ir.NewBinary(op, v.Ty, n2, d1))
    mul := self.morph(ir.NewBinary(ir.OpMul, v.Ty, div, d2))
    return sequence(ir.NewBinary(ir.OpSub, v.Ty, n1, mul), ns, ds)
}

// magicDiv emits signed division of n by the constant d as a
// multiply-high, an optional correction, a shift, and a sign fix-up.
func (self *Context) magicDiv(ty ir.Type, n ir.Expr, d int64) ir.Expr {
    var ns ir.Expr
    var n2 ir.Expr

    /* find the magic numbers */
    w := ty.Bits(self.ptr)
    m, s := magicSigned(d, w)
    fix := (d > 0 && m < 0) || (d < 0 && m > 0)

    /* the dividend is needed twice when a correction is required */
    if fix {
        ns, n, n2 = self.multiUse(n, "magic dividend")
    }

    /* t = mulhi(n, m) */
    t := ir.Expr(ir.NewBinary(ir.OpMulHi, ty, n, ir.NewInt(ty, m)))
    if d > 0 && m < 0 {
        t = ir.NewBinary(ir.OpAdd, ty, t, n2)
    } else if d < 0 && m > 0 {
        t = ir.NewBinary(ir.OpSub, ty, t, n2)
    }

    /* t >>= s */
    if s > 0 {
        t = ir.NewBinary(ir.OpRsh, ty, t, ir.NewInt(ir.Int32, int64(s)))
    }

    /* q = t + (t >>> (w - 1)) */
    asg, tmp := self.newTemp(t, "magic quotient")
    q := ir.NewBinary(ir.OpAdd, ty,
        ir.NewComma(asg, ir.NewLocal(tmp, ty)),
        ir.NewBinary(ir.OpRsz, ty, ir.NewLocal(tmp, ty), ir.NewInt(ir.Int32, int64(w - 1))),
    )

    /* prepend the dividend spill */
    self.m.Local(tmp).Defined = true
    return sequence(q, ns)
}

func longDivHelper(op ir.Op) ir.Helper {
    switch op {
        case ir.OpDiv  : return ir.HelperLDiv
        case ir.OpMod  : return ir.HelperLMod
        case ir.OpUDiv : return ir.HelperULDiv
        default        : return ir.HelperULMod
    }
}

func foldDivMod(v *ir.Binary, x int64, y int64, ptr int) (int64, bool) {
    w := v.Ty.Bits(ptr)
    min := int64(-1) << uint(w - 1)

    /* the faulting cases are left to run time */
    if y == 0 || (!v.Ty.IsUnsigned() && (v.Op == ir.OpDiv || v.Op == ir.OpMod) && x == min && y == -1) {
        return 0, false
    }

    /* unsigned operators work on the truncated bits */
    ux := uint64(x) & widthMask(w)
    uy := uint64(y) & widthMask(w)
    switch v.Op {
        case ir.OpDiv  : return ir.Truncate(x / y, v.Ty, ptr), true
        case ir.OpMod  : return ir.Truncate(x % y, v.Ty, ptr), true
        case ir.OpUDiv : return ir.Truncate(int64(ux / uy), v.Ty, ptr), true
        default        : return ir.Truncate(int64(ux % uy), v.Ty, ptr), true
    }
}
