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
    `github.com/cloudwego/morph/ir`
    `golang.org/x/arch/arm/armasm`
)

var _ARM32IntArgs = [...]armasm.Reg {
    armasm.R0,
    armasm.R1,
    armasm.R2,
    armasm.R3,
}

var _ARM32FloatArgs = [...]armasm.Reg {
    armasm.S0,
    armasm.S1,
    armasm.S2,
    armasm.S3,
    armasm.S4,
    armasm.S5,
    armasm.S6,
    armasm.S7,
    armasm.S8,
    armasm.S9,
    armasm.S10,
    armasm.S11,
    armasm.S12,
    armasm.S13,
    armasm.S14,
    armasm.S15,
}

// ARM32 is the AAPCS hard-float convention: doubles take two aligned single
// registers and singles back-fill the holes, 8-byte aligned values start on
// an even register or stack slot, and structs may be split between the last
// registers and the stack.
func ARM32() Descriptor {
    ret := &target {
        name     : "arm32",
        ptr      : 4,
        slot     : 4,
        fixed    : true,
        backfill : true,
        split    : true,
        noregs   : true,
        pairs    : true,
        dblregs  : 2,
        hfa      : 4,
        unroll   : 32,
        classify : arm32Classify,
        align    : arm32Align,
        nonstd   : map[NonStandard]Reg {
            VirtualStubCell : mkReg(RegInt, -1, armasm.R12),
            PInvokeCookie   : mkReg(RegInt, -1, armasm.R4),
            PInvokeTarget   : mkReg(RegInt, -1, armasm.R12),
        },
        features : Features {
            LongCompareBranch : true,
        },
    }
    for i, r := range _ARM32IntArgs   { ret.iregs = append(ret.iregs, mkReg(RegInt, i, r)) }
    for i, r := range _ARM32FloatArgs { ret.fregs = append(ret.fregs, mkReg(RegFloat, i, r)) }
    return ret
}

func arm32Classify(self *target, cls *ir.Class) Passing {
    if pt, ok := primitiveOf(cls, self.ptr, true); ok {
        return Passing { Kind: PassPrimitive, Prim: pt }
    } else if et := HomogeneousFloat(cls, self.hfa); et != ir.Void {
        regs := make([]ir.Type, cls.Size / et.Size(self.ptr))
        for i := range regs {
            regs[i] = et
        }
        return Passing { Kind: PassMultiReg, Regs: regs, HFA: true }
    } else {
        return Passing { Kind: PassMultiReg, Regs: pieces(cls, 4, self.ptr) }
    }
}

func arm32Align(self *target, ty ir.Type, cls *ir.Class) int {
    if ty == ir.Int64 || ty == ir.Uint64 || ty == ir.Float64 {
        return 2
    } else if cls != nil && cls.Align() >= 8 {
        return 2
    } else {
        return 1
    }
}
