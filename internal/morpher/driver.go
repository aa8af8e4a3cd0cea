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
    `sync/atomic`

    `github.com/cloudwego/morph/internal/opts`
    `github.com/cloudwego/morph/ir`
    `github.com/oleiade/lane`
)

// Run morphs every statement of m in block order. A statement that morphs
// into a comma of side effects is split in two, and the tail goes back to
// the front of the work list to be morphed as a statement of its own. It
// panics with a utils.CompileError when the method cannot be compiled.
func Run(m *ir.Method, o opts.Options) {
    ctx := newContext(m, o)
    nl := len(m.Locals)

    /* apply the local limit */
    if o.MaxLocals > 0 {
        m.MaxLocals = o.MaxLocals
    }

    /* morph block by block */
    for _, bb := range m.Blocks {
        q := lane.NewDeque()
        for _, st := range bb.Stmts {
            q.Append(st)
        }

        /* rebuild the statement list */
        bb.Stmts = bb.Stmts[:0]
        for !q.Empty() {
            st := q.Shift().(*ir.Stmt)
            ctx.stmt = st
            st.Root = ctx.MorphStmt(st.Root)

            /* split at a top level comma */
            if c, ok := st.Root.(*ir.Comma); ok && ir.HasEffects(c.X, ir.EffSide) {
                q.Prepend(&ir.Stmt { Root: c.Y })
                st.Root = c.X
                atomic.AddInt64(&SplitCount, 1)
            }
            bb.Stmts = append(bb.Stmts, st)
        }
    }

    /* update the statistics */
    atomic.AddInt64(&TempCount, int64(len(m.Locals) - nl))
    freeContext(ctx)
}

// New returns a context for morphing single trees of m, used by tests and
// by passes that re-morph a statement after changing it.
func New(m *ir.Method, o opts.Options) *Context {
    if o.MaxLocals > 0 {
        m.MaxLocals = o.MaxLocals
    }
    return resetContext(new(Context), m, o)
}

// MorphStmt morphs the root of a statement, a root comparison is consumed by
// its statement and is never turned into a value.
func (self *Context) MorphStmt(e ir.Expr) ir.Expr {
    return self.morphExpr(e, true)
}

// Morph morphs e in a value context.
func (self *Context) Morph(e ir.Expr) ir.Expr {
    return self.morphExpr(e, false)
}
