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
    `github.com/cloudwego/morph/abi`
    `github.com/cloudwego/morph/ir`
)

type nonStandardArg struct {
    node ir.Expr
    kind abi.NonStandard
    reg  abi.Reg
}

// nonStandardArgs binds synthetic call arguments to the fixed registers the
// convention assigns them. Bindings are keyed by node identity and follow
// the node when morphing replaces it.
type nonStandardArgs []nonStandardArg

func (self *nonStandardArgs) reset() {
    *self = (*self)[:0]
}

func (self *nonStandardArgs) add(node ir.Expr, kind abi.NonStandard, reg abi.Reg) {
    *self = append(*self, nonStandardArg { node: node, kind: kind, reg: reg })
}

func (self nonStandardArgs) find(node ir.Expr) (abi.Reg, bool) {
    for _, v := range self {
        if v.node == node {
            return v.reg, true
        }
    }
    return abi.RegStack, false
}

func (self nonStandardArgs) replace(old ir.Expr, node ir.Expr) {
    for i := range self {
        if self[i].node == old {
            self[i].node = node
        }
    }
}
