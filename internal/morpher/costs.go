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

// cost estimates the execution cost of evaluating e. It is monotonic: a
// node never costs less than any of its operands.
func (self *Context) cost(e ir.Expr) int {
    ret := ownCost(e)
    for _, p := range ir.Children(e) {
        if *p != nil {
            ret += self.cost(*p)
        }
    }
    return ret
}

func ownCost(e ir.Expr) int {
    switch v := e.(type) {
        case *ir.IntConst    : if v.Class != nil { return 2 } else { return 1 }
        case *ir.FltConst    : return 2
        case *ir.Local       : return 3
        case *ir.LocalField  : return 3
        case *ir.Addr        : return 1
        case *ir.Indir       : return 3
        case *ir.Unary       : return 1
        case *ir.Binary      : return binaryCost(v)
        case *ir.Cast        : if v.Ty.IsFloat() || v.X.Type().IsFloat() { return 5 } else { return 1 }
        case *ir.Assign      : return 2
        case *ir.Comma       : return 0
        case *ir.Select      : return 3
        case *ir.Call        : return 25
        case *ir.ArrIndex    : return 6
        case *ir.ArrLen      : return 2
        case *ir.BoundsCheck : return 2
        case *ir.BlockOp     : return 10
        default              : return 1
    }
}

func binaryCost(v *ir.Binary) int {
    switch {
        case v.Op.IsDivMod()                          : return 20
        case v.Op == ir.OpMul                         : return 4
        case v.Op == ir.OpMulHi                       : return 4
        case v.Ty.IsFloat()                           : return 3
        case v.Op.IsCompare() && v.X.Type().IsFloat() : return 3
        default                                       : return 1
    }
}
