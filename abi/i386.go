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
    `golang.org/x/arch/x86/x86asm`
)

var _X86IntArgs = [...]x86asm.Reg {
    x86asm.ECX,
    x86asm.EDX,
}

// X86 is the managed 32-bit x86 convention: the first two integer sized
// arguments in ECX and EDX, everything else pushed onto the stack.
func X86() Descriptor {
    ret := &target {
        name     : "x86",
        ptr      : 4,
        slot     : 4,
        unroll   : 32,
        classify : x86Classify,
        nonstd   : map[NonStandard]Reg {
            VirtualStubCell : mkReg(RegInt, -1, x86asm.EAX),
        },
        features : Features {
            HasRemainder       : true,
            PreferLeaMul       : true,
            InPlaceOps         : true,
            FloatCompareBranch : true,
            LongCompareBranch  : true,
        },
    }
    for i, r := range _X86IntArgs {
        ret.iregs = append(ret.iregs, mkReg(RegInt, i, r))
    }
    return ret
}

func x86Classify(self *target, cls *ir.Class) Passing {
    return Passing { Kind: PassStack, Slots: self.stackSlots(cls) }
}
