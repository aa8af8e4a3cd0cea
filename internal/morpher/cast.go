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

func (self *Context) morphCast(v *ir.Cast) ir.Expr {
    src := v.X.Type()
    old := self.dump(v)

    /* GC pointers lose their GC-ness through an untracked temporary */
    if src.IsGC() && v.Ty.IsIntegral() {
        return self.rewritten("cast", old, self.castFromGC(v))
    }

    /* "(int)(x & c)" cannot overflow when c is in range */
    if v.Overflow && self.maskedInRange(v) {
        v.Overflow = false
    }

    /* floating point sources and destinations */
    if src.IsFloat() || v.Ty.IsFloat() {
        if r := self.morphFloatCast(v); r != nil {
            return self.rewritten("cast", old, r)
        } else {
            return v
        }
    }

    /* only integer conversions from here */
    if !src.IsIntegral() || !v.Ty.IsIntegral() {
        return v
    }

    /* fold constants */
    if c, ok := v.X.(*ir.IntConst); ok && c.Class == nil {
        if r, ok := self.foldCast(v, c); ok {
            return self.rewritten("fold", old, r)
        }
    }

    /* widening never overflows unless a signed value becomes unsigned */
    ss := src.Size(self.ptr)
    ds := v.Ty.Size(self.ptr)
    if ss < ds && (src.IsUnsigned() || v.Unsigned || !v.Ty.IsUnsigned()) {
        v.Overflow = false
    }

    /* same width and signedness is a no-op */
    if ss == ds && src.IsUnsigned() == v.Ty.IsUnsigned() && !v.Overflow {
        return self.rewritten("cast", old, v.X)
    }

    /* fold a narrowing cast of a cast */
    if r := self.castOfCast(v); r != nil {
        return self.rewritten("cast", old, r)
    }
    return v
}

func (self *Context) castFromGC(v *ir.Cast) ir.Expr {
    tmp := self.m.GrabTemp(ir.IntPtr, nil, "GC pointer cast")
    asg := ir.NewAssign(ir.NewLocal(tmp, ir.IntPtr), v.X)
    cvt := ir.NewCast(v.Ty, ir.NewLocal(tmp, ir.IntPtr))
    cvt.Unsigned = v.Unsigned
    cvt.Overflow = v.Overflow
    return ir.NewComma(asg, self.morph(cvt))
}

func (self *Context) maskedInRange(v *ir.Cast) bool {
    b, ok := v.X.(*ir.Binary)
    if !ok || b.Op != ir.OpAnd || !v.Ty.IsIntegral() {
        return false
    }

    /* the mask must be a non-negative constant within the destination range */
    if c, ok := b.Y.(*ir.IntConst); !ok || c.Class != nil || c.V < 0 {
        return false
    } else {
        return ir.Truncate(c.V, v.Ty, self.ptr) == c.V
    }
}

func (self *Context) foldCast(v *ir.Cast, c *ir.IntConst) (ir.Expr, bool) {
    x := c.V
    src := c.Ty

    /* widen the source by its signedness */
    if v.Unsigned && !src.IsUnsigned() && src.Size(self.ptr) < 8 {
        x = ir.Truncate(x, src.Unsigned(), self.ptr)
    }

    /* checked casts out of range stay and throw at run time */
    r := ir.Truncate(x, v.Ty, self.ptr)
    if v.Overflow && (r != x || x < 0 && (src.IsUnsigned() || v.Unsigned) != v.Ty.IsUnsigned()) {
        return nil, false
    } else {
        return ir.NewInt(v.Ty, r), true
    }
}

func (self *Context) castOfCast(v *ir.Cast) ir.Expr {
    in, ok := v.X.(*ir.Cast)
    if !ok || v.Overflow || in.Overflow || !in.X.Type().IsIntegral() || in.X.Type().IsGC() {
        return nil
    }

    /* the outer cast must not be wider than the inner one */
    if v.Ty.Size(self.ptr) > in.Ty.Size(self.ptr) {
        return nil
    }

    /* the inner extension rule carries over */
    ret := ir.NewCast(v.Ty, in.X)
    ret.Unsigned = in.Unsigned
    return self.morphCast(ret)
}

// morphFloatCast legalizes conversions involving floating point values,
// returning nil when the cast is supported as is.
func (self *Context) morphFloatCast(v *ir.Cast) ir.Expr {
    src := v.X.Type()
    dst := v.Ty

    /* float to float */
    if src.IsFloat() && dst.IsFloat() {
        if c, ok := v.X.(*ir.FltConst); ok {
            return ir.NewFloat(dst, convFloat(dst, c.V))
        } else if src == dst {
            return v.X
        } else {
            return nil
        }
    }

    /* integer to float */
    if dst.IsFloat() {
        return self.intToFloat(v)
    }

    /* float to small integer goes through int */
    if dst.IsSmall() {
        mid := ir.NewCast(ir.Int32, v.X)
        mid.Overflow = v.Overflow
        ret := ir.NewCast(dst, self.morph(mid))
        ret.Overflow = v.Overflow
        return ir.Refresh(ret)
    }

    /* native integers have a fixed width */
    if dst == ir.IntPtr {
        dst = ir.IntOfSize(self.ptr, false)
    }

    /* checked conversions always call a helper */
    if v.Overflow {
        switch dst {
            case ir.Int32  : return self.floatHelper(ir.HelperDbl2IntOvf, dst, v.X)
            case ir.Uint32 : return self.floatHelper(ir.HelperDbl2UIntOvf, dst, v.X)
            case ir.Int64  : return self.floatHelper(ir.HelperDbl2LngOvf, dst, v.X)
            case ir.Uint64 : return self.floatHelper(ir.HelperDbl2ULngOvf, dst, v.X)
        }
    }

    /* the remaining unchecked conversions */
    switch {
        case self.feat.UnsignedFloatConv                : return nil
        case dst == ir.Uint64                           : return self.floatHelper(ir.HelperDbl2ULng, dst, v.X)
        case dst == ir.Int64 && !self.feat.Target64     : return self.floatHelper(ir.HelperDbl2Lng, dst, v.X)
        case dst == ir.Uint32 && !self.feat.Target64    : return self.floatHelper(ir.HelperDbl2UInt, dst, v.X)
        case dst == ir.Uint32                           : return ir.NewCast(dst, self.morph(ir.NewCast(ir.Int64, v.X)))
        default                                         : return nil
    }
}

func convFloat(ty ir.Type, v float64) float64 {
    if ty == ir.Float32 {
        return float64(float32(v))
    } else {
        return v
    }
}

// floatHelper converts x with a helper taking a double.
func (self *Context) floatHelper(fn ir.Helper, ret ir.Type, x ir.Expr) ir.Expr {
    if x.Type() != ir.Float64 {
        x = ir.NewCast(ir.Float64, x)
    }
    return self.morph(ir.NewHelperCall(fn, ret, x))
}

func (self *Context) intToFloat(v *ir.Cast) ir.Expr {
    src := v.X.Type()
    unsigned := v.Unsigned || src.IsUnsigned()

    /* fold constants */
    if c, ok := v.X.(*ir.IntConst); ok && c.Class == nil {
        if unsigned {
            return ir.NewFloat(v.Ty, convFloat(v.Ty, float64(uint64(ir.Truncate(c.V, src.Unsigned(), self.ptr)))))
        } else {
            return ir.NewFloat(v.Ty, convFloat(v.Ty, float64(c.V)))
        }
    }

    /* the target converts anything */
    if self.feat.UnsignedFloatConv {
        return nil
    }

    /* 64-bit sources */
    if src.Size(self.ptr) == 8 {
        switch {
            case unsigned            : return self.toFloat(v.Ty, self.morph(ir.NewHelperCall(ir.HelperULng2Dbl, ir.Float64, v.X)))
            case !self.feat.Target64 : return self.toFloat(v.Ty, self.morph(ir.NewHelperCall(ir.HelperLng2Dbl, ir.Float64, v.X)))
            default                  : return nil
        }
    }

    /* unsigned 32-bit sources are zero extended to 64 bits first */
    if unsigned {
        wide := ir.NewCast(ir.Int64, v.X)
        wide.Unsigned = true
        return self.morph(ir.NewCast(v.Ty, wide))
    }
    return nil
}

func (self *Context) toFloat(ty ir.Type, x ir.Expr) ir.Expr {
    if ty == ir.Float64 {
        return x
    } else {
        return ir.NewCast(ty, x)
    }
}
