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

var _WinIntArgs = [...]x86_64.Register64 {
    x86_64.RCX,
    x86_64.RDX,
    x86_64.R8,
    x86_64.R9,
}

var _WinFloatArgs = [...]x86_64.XMMRegister {
    x86_64.XMM0,
    x86_64.XMM1,
    x86_64.XMM2,
    x86_64.XMM3,
}

// WinAMD64 is the Windows x64 convention: four argument positions shared by
// the integer and float registers, structs other than 1, 2, 4 or 8 bytes are
// passed by reference to a copy.
func WinAMD64() Descriptor {
    ret := &target {
        name     : "win-amd64",
        ptr      : 8,
        slot     : 8,
        fixed    : true,
        shared   : true,
        unroll   : 64,
        classify : winClassify,
        features : amd64Features,
        nonstd   : map[NonStandard]Reg {
            VirtualStubCell : mkReg(RegInt, -1, x86_64.R11),
            PInvokeCookie   : mkReg(RegInt, -1, x86_64.R11),
            PInvokeTarget   : mkReg(RegInt, -1, x86_64.R10),
        },
    }
    for i, r := range _WinIntArgs   { ret.iregs = append(ret.iregs, mkReg(RegInt, i, r)) }
    for i, r := range _WinFloatArgs { ret.fregs = append(ret.fregs, mkReg(RegFloat, i, r)) }
    return ret
}

func winClassify(self *target, cls *ir.Class) Passing {
    if pt, ok := primitiveOf(cls, self.ptr, false); ok {
        return Passing { Kind: PassPrimitive, Prim: pt }
    } else {
        return Passing { Kind: PassByRef }
    }
}
