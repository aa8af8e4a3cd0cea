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

package ir

import (
    `github.com/oleiade/lane`
)

// Walk visits e and its operands in pre-order, operands left to right. The
// operands of a node are skipped when fn returns false for it.
func Walk(e Expr, fn func(e Expr) bool) {
    st := lane.NewStack()
    st.Push(e)

    /* scan until the stack is empty */
    for !st.Empty() {
        p := st.Pop().(Expr)
        if !fn(p) {
            continue
        }

        /* push the operands in reverse order */
        ops := Children(p)
        for i := len(ops) - 1; i >= 0; i-- {
            if *ops[i] != nil {
                st.Push(*ops[i])
            }
        }
    }
}

// Any reports whether pred holds for any node of e.
func Any(e Expr, pred func(e Expr) bool) bool {
    found := false
    Walk(e, func(p Expr) bool {
        if found {
            return false
        } else if pred(p) {
            found = true
            return false
        } else {
            return true
        }
    })
    return found
}

// UsesLocal reports whether e reads or writes local num.
func UsesLocal(e Expr, num int) bool {
    return Any(e, func(p Expr) bool {
        switch v := p.(type) {
            case *Local      : return v.Num == num
            case *LocalField : return v.Num == num
            default          : return false
        }
    })
}

// Count returns the number of nodes in e.
func Count(e Expr) int {
    n := 0
    Walk(e, func(Expr) bool { n++; return true })
    return n
}
