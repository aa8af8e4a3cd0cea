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
    `fmt`
    `sync/atomic`
)

// Effect is the side-effect summary of a subtree.
type Effect uint8

const (
    EffAssign Effect = 1 << iota
    EffCall
    EffExcept
    EffGlobRef
    EffOrder
)

const (
    EffSide = EffAssign | EffCall | EffExcept
    EffAll  = EffAssign | EffCall | EffExcept | EffGlobRef | EffOrder
)

func (self Effect) String() string {
    buf := []byte("-----")
    if self & EffAssign  != 0 { buf[0] = 'A' }
    if self & EffCall    != 0 { buf[1] = 'C' }
    if self & EffExcept  != 0 { buf[2] = 'X' }
    if self & EffGlobRef != 0 { buf[3] = 'G' }
    if self & EffOrder   != 0 { buf[4] = 'O' }
    return string(buf)
}

var nodeSeq int64

// Header carries the identity and the cached side-effect summary shared by
// every node kind.
type Header struct {
    id    int64
    fx    Effect
    NoCSE bool
}

func (self *Header) Head() *Header {
    return self
}

// ID is the stable identity of the node, it survives operand rewrites.
func (self *Header) ID() int64 {
    return self.id
}

// Effects returns the side effects of the node and all of its operands, as
// of the last Refresh.
func (self *Header) Effects() Effect {
    return self.fx
}

// Expr is an expression tree node.
type Expr interface {
    fmt.Stringer
    Type() Type
    Head() *Header
}

// Operands is implemented by nodes that have children, every child is
// returned as a pointer to the slot that owns it.
type Operands interface {
    Expr
    Operands() []*Expr
}

type ownEffects interface {
    own() Effect
}

func newHeader() Header {
    return Header { id: atomic.AddInt64(&nodeSeq, 1) }
}

// Refresh recomputes the side-effect summary of e from its own operator and
// the cached summaries of its operands.
func Refresh(e Expr) Expr {
    var fx Effect
    if p, ok := e.(ownEffects); ok {
        fx = p.own()
    }

    /* fold the operands */
    if p, ok := e.(Operands); ok {
        for _, v := range p.Operands() {
            if *v != nil {
                fx |= (*v).Head().fx
            }
        }
    }

    /* update the cache */
    e.Head().fx = fx
    return e
}

// HasEffects reports whether any of the requested effects are present.
func HasEffects(e Expr, fx Effect) bool {
    return e.Head().fx & fx != 0
}

// Children returns the operand slots of e, nil for leaves.
func Children(e Expr) []*Expr {
    if p, ok := e.(Operands); ok {
        return p.Operands()
    } else {
        return nil
    }
}
