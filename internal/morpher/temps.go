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

// newTemp assigns e to a fresh temporary and returns the assignment.
func (self *Context) newTemp(e ir.Expr, reason string) (*ir.Assign, int) {
    ty := e.Type().Actual()
    tmp := self.m.GrabTemp(ty, self.classOf(e), reason)
    return ir.NewAssign(ir.NewLocal(tmp, ty), e), tmp
}

// multiUse makes e usable twice. Cheap values are cloned, anything else is
// evaluated once into a temporary whose assignment is returned as setup.
func (self *Context) multiUse(e ir.Expr, reason string) (setup ir.Expr, a ir.Expr, b ir.Expr) {
    if ir.IsCheapToClone(e) {
        return nil, e, ir.Clone(e)
    }

    /* spill into a temporary */
    asg, tmp := self.newTemp(e, reason)
    ty := asg.Dst.Type()
    return asg, ir.NewLocal(tmp, ty), ir.NewLocal(tmp, ty)
}

// sequence prepends the non-nil setups to e.
func sequence(e ir.Expr, setups ...ir.Expr) ir.Expr {
    for i := len(setups) - 1; i >= 0; i-- {
        if setups[i] != nil {
            e = ir.NewComma(setups[i], e)
        }
    }
    return e
}
