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
    `golang.org/x/arch/arm64/arm64asm`
)

var _ARM64IntArgs = [...]arm64asm.Reg {
    arm64asm.X0,
    arm64asm.X1,
    arm64asm.X2,
    arm64asm.X3,
    arm64asm.X4,
    arm64asm.X5,
    arm64asm.X6,
    arm64asm.X7,
}

var _ARM64FloatArgs = [...]arm64asm.Reg {
    arm64asm.D0,
    arm64asm.D1,
    arm64asm.D2,
    arm64asm.D3,
    arm64asm.D4,
    arm64asm.D5,
    arm64asm.D6,
    arm64asm.D7,
}

// ARM64 is the AAPCS64 convention with a fixed return buffer register.
func ARM64() Descriptor {
    ret := &target {
        name     : "arm64",
        ptr      : 8,
        slot     : 8,
        fixed    : true,
        noregs   : true,
        dblregs  : 1,
        hfa      : 4,
        unroll   : 64,
        partial  : partialReads,
        classify : arm64Classify,
        nonstd   : map[NonStandard]Reg {
            VirtualStubCell : mkReg(RegInt, -1, arm64asm.X11),
            PInvokeCookie   : mkReg(RegInt, -1, arm64asm.X15),
            PInvokeTarget   : mkReg(RegInt, -1, arm64asm.X14),
            ReturnBuffer    : mkReg(RegInt, -1, arm64asm.X8),
        },
        features : Features {
            Target64          : true,
            UnsignedFloatConv : true,
        },
    }
    for i, r := range _ARM64IntArgs   { ret.iregs = append(ret.iregs, mkReg(RegInt, i, r)) }
    for i, r := range _ARM64FloatArgs { ret.fregs = append(ret.fregs, mkReg(RegFloat, i, r)) }
    return ret
}

func arm64Classify(self *target, cls *ir.Class) Passing {
    if pt, ok := primitiveOf(cls, self.ptr, true); ok {
        return Passing { Kind: PassPrimitive, Prim: pt }
    }

    /* homogeneous float aggregates take one register per element */
    if et := HomogeneousFloat(cls, self.hfa); et != ir.Void {
        regs := make([]ir.Type, cls.Size / et.Size(self.ptr))
        for i := range regs {
            regs[i] = et
        }
        return Passing { Kind: PassMultiReg, Regs: regs, HFA: true }
    }

    /* up to two integer registers, larger structs go by reference */
    if cls.Size <= 16 {
        return Passing { Kind: PassMultiReg, Regs: pieces(cls, 8, self.ptr) }
    } else {
        return Passing { Kind: PassByRef }
    }
}
