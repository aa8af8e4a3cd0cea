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
    `fmt`
    `io`
    `sync`
    `sync/atomic`

    `github.com/cloudwego/morph/abi`
    `github.com/cloudwego/morph/internal/opts`
    `github.com/cloudwego/morph/ir`
    `github.com/davecgh/go-spew/spew`
)

var (
    CallCount    int64
    ArgCount     int64
    TempCount    int64
    RewriteCount int64
    SplitCount   int64
)

var contextPool sync.Pool

var dumper = spew.ConfigState {
    Indent                  : "    ",
    SortKeys                : true,
    DisablePointerMethods   : true,
    DisablePointerAddresses : true,
    MaxDepth                : 4,
}

// Context is the state of morphing one method. Register cursors and the
// synthetic argument side table are reset for every call.
type Context struct {
    m      *ir.Method
    opts   opts.Options
    target abi.Descriptor
    feat   abi.Features
    ptr    int
    trace  io.Writer
    stmt   *ir.Stmt
    cur    argCursors
    nonstd nonStandardArgs
}

func newContext(m *ir.Method, o opts.Options) *Context {
    if v := contextPool.Get(); v == nil {
        return resetContext(new(Context), m, o)
    } else {
        return resetContext(v.(*Context), m, o)
    }
}

func freeContext(p *Context) {
    p.m = nil
    p.stmt = nil
    p.trace = nil
    p.nonstd.reset()
    contextPool.Put(p)
}

func resetContext(p *Context, m *ir.Method, o opts.Options) *Context {
    p.m      = m
    p.opts   = o
    p.target = o.Target
    p.feat   = o.Target.Features()
    p.ptr    = o.Target.PtrSize()
    p.trace  = o.Trace
    p.stmt   = nil
    p.cur    = argCursors{}
    p.nonstd.reset()
    return p
}

func (self *Context) dump(e ir.Expr) string {
    if self.trace == nil {
        return ""
    } else {
        return e.String()
    }
}

// rewritten counts a rewrite and traces it as "old => new".
func (self *Context) rewritten(tag string, old string, e ir.Expr) ir.Expr {
    atomic.AddInt64(&RewriteCount, 1)
    if self.trace != nil {
        fmt.Fprintf(self.trace, "[%s] %s => %s\n", tag, old, e)
    }
    return e
}

func (self *Context) traceTable(v interface{}) {
    if self.trace != nil {
        dumper.Fprintf(self.trace, "%v\n", v)
    }
}
