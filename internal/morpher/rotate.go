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

// morphRotate recognizes "(x << a) | (x >>> b)" where the two amounts add up
// to the operand width and replaces it with a single rotation.
func (self *Context) morphRotate(v *ir.Binary) ir.Expr {
    if !v.Ty.IsIntegral() || v.Overflow {
        return v
    }

    /* rotations exist for 32 and 64 bit values */
    w := v.Ty.Bits(self.ptr)
    if w != 32 && w != 64 {
        return v
    }

    /* one side shifts left, the other shifts right with zero fill */
    lsh, ok1 := v.X.(*ir.Binary)
    rsz, ok2 := v.Y.(*ir.Binary)
    if !ok1 || !ok2 {
        return v
    } else if lsh.Op == ir.OpRsz {
        lsh, rsz = rsz, lsh
    }

    /* check the shape */
    if lsh.Op != ir.OpLsh || rsz.Op != ir.OpRsz || lsh.Ty != v.Ty || rsz.Ty != v.Ty {
        return v
    }

    /* both must shift the same pure value */
    if ir.HasEffects(lsh, ir.EffSide) || ir.HasEffects(rsz, ir.EffSide) || !ir.Equal(lsh.X, rsz.X) {
        return v
    }

    /* constant or variable amounts */
    lc, ok1 := intConst(lsh.Y)
    rc, ok2 := intConst(rsz.Y)
    old := self.dump(v)

    /* constant amounts are taken modulo the width */
    if ok1 && ok2 {
        l := lc.V & int64(w - 1)
        r := rc.V & int64(w - 1)
        if l + r == int64(w) || (l == 0 && r == 0 && v.Op == ir.OpOr) {
            return self.rewritten("rotate", old, ir.NewBinary(ir.OpRol, v.Ty, lsh.X, ir.NewInt(ir.Int32, l)))
        } else {
            return v
        }
    }

    /* with a zero amount "x | x" is x but "x ^ x" is not */
    if v.Op != ir.OpOr || (w == 64 && self.ptr == 4) {
        return v
    }

    /* "x << s | x >>> (w - s)" and its mirror */
    if s := rotateAmount(lsh.Y, rsz.Y, w); s != nil {
        return self.rewritten("rotate", old, ir.NewBinary(ir.OpRol, v.Ty, lsh.X, s))
    } else if s = rotateAmount(rsz.Y, lsh.Y, w); s != nil {
        return self.rewritten("rotate", old, ir.NewBinary(ir.OpRor, v.Ty, lsh.X, s))
    } else {
        return v
    }
}

// rotateAmount returns s when a is s and b is "w - s", either of them
// optionally masked with a constant that keeps the low bits of the count.
func rotateAmount(a ir.Expr, b ir.Expr, w int) ir.Expr {
    a = unmaskShift(a, w)
    b = unmaskShift(b, w)

    /* b must be "w - a" */
    if sub, ok := b.(*ir.Binary); !ok || sub.Op != ir.OpSub || sub.Overflow {
        return nil
    } else if c, ok := intConst(sub.X); !ok || c.V & int64(w - 1) != 0 || c.V == 0 {
        return nil
    } else if !ir.Equal(unmaskShift(sub.Y, w), a) {
        return nil
    } else {
        return a
    }
}

func unmaskShift(e ir.Expr, w int) ir.Expr {
    if b, ok := e.(*ir.Binary); !ok || b.Op != ir.OpAnd {
        return e
    } else if c, ok := intConst(b.Y); !ok || c.V & int64(w - 1) != int64(w - 1) {
        return e
    } else {
        return b.X
    }
}
