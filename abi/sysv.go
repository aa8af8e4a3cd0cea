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

package abi

import (
    `github.com/chenzhuoyu/iasm/x86_64`
    `github.com/cloudwego/morph/ir`
)

var _SysVIntArgs = [...]x86_64.Register64 {
    x86_64.RDI,
    x86_64.RSI,
    x86_64.RDX,
    x86_64.RCX,
    x86_64.R8,
    x86_64.R9,
}

var _SysVFloatArgs = [...]x86_64.XMMRegister {
    x86_64.XMM0,
    x86_64.XMM1,
    x86_64.XMM2,
    x86_64.XMM3,
    x86_64.XMM4,
    x86_64.XMM5,
    x86_64.XMM6,
    x86_64.XMM7,
}

// SysVAMD64 is the System V x86-64 convention: six integer and eight float
// registers with independent cursors, structs up to 16 bytes classified per
// eightbyte.
func SysVAMD64() Descriptor {
    ret := &target {
        name     : "sysv-amd64",
        ptr      : 8,
        slot     : 8,
        fixed    : true,
        unroll   : 64,
        partial  : partialReads,
        classify : sysvClassify,
        features : amd64Features,
        nonstd   : map[NonStandard]Reg {
            VirtualStubCell : mkReg(RegInt, -1, x86_64.R11),
            PInvokeCookie   : mkReg(RegInt, -1, x86_64.R11),
            PInvokeTarget   : mkReg(RegInt, -1, x86_64.R10),
        },
    }
    for i, r := range _SysVIntArgs   { ret.iregs = append(ret.iregs, mkReg(RegInt, i, r)) }
    for i, r := range _SysVFloatArgs { ret.fregs = append(ret.fregs, mkReg(RegFloat, i, r)) }
    return ret
}

var amd64Features = Features {
    Target64     : true,
    HasRemainder : true,
    PreferLeaMul : true,
    InPlaceOps   : true,
}

// structs of these sizes cannot be loaded as whole registers without
// reading past the end of the value
var partialReads = map[int]bool {
    3: true, 5: true, 6: true, 7: true, 11: true, 13: true, 14: true, 15: true,
}

func sysvClassify(self *target, cls *ir.Class) Passing {
    if cls.Size > 16 || cls.Size == 0 {
        return Passing { Kind: PassStack, Slots: self.stackSlots(cls) }
    }

    /* classify every eightbyte */
    regs := pieces(cls, 8, self.ptr)
    for i := range regs {
        if et := eightbyteFloat(cls, i); et != ir.Void {
            regs[i] = et
        }
    }

    /* a single power-of-two sized eightbyte is a primitive */
    switch cls.Size {
        case 1, 2, 4, 8 : return Passing { Kind: PassPrimitive, Prim: regs[0] }
        default         : return Passing { Kind: PassMultiReg, Regs: regs }
    }
}

// eightbyteFloat returns the float type of the i-th eightbyte when every
// field overlapping it is a float, and ir.Void otherwise.
func eightbyteFloat(cls *ir.Class, i int) ir.Type {
    n := 0
    et := ir.Void

    /* scan fields in this eightbyte */
    for _, f := range cls.Flatten() {
        if f.Off >= (i + 1) * 8 || f.Off + f.Type.Size(8) <= i * 8 {
            continue
        } else if !f.Type.IsFloat() {
            return ir.Void
        } else {
            n++
            et = f.Type
        }
    }

    /* two floats share one register as a double */
    if n > 1 {
        return ir.Float64
    } else {
        return et
    }
}
