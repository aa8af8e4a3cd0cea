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
    `sync/atomic`
)

// Clone deep-copies e. Every copied node gets a fresh identity, and a call
// that already owns an argument table gets a table re-pointed at the copy.
func Clone(e Expr) Expr {
    var r Expr
    if e == nil {
        return nil
    }

    /* shallow copy the node */
    switch v := e.(type) {
        case *IntConst    : c := *v; r = &c
        case *FltConst    : c := *v; r = &c
        case *Local       : c := *v; r = &c
        case *LocalField  : c := *v; r = &c
        case *Addr        : c := *v; r = &c
        case *Indir       : c := *v; r = &c
        case *Unary       : c := *v; r = &c
        case *Binary      : c := *v; r = &c
        case *Cast        : c := *v; r = &c
        case *Assign      : c := *v; r = &c
        case *Comma       : c := *v; r = &c
        case *Select      : c := *v; r = &c
        case *Jump        : c := *v; r = &c
        case *Nop         : c := *v; r = &c
        case *Placeholder : c := *v; r = &c
        case *ArrIndex    : c := *v; r = &c
        case *ArrLen      : c := *v; r = &c
        case *BoundsCheck : c := *v; r = &c
        case *BlockOp     : c := *v; r = &c
        case *FieldList   : c := *v; c.Items = append([]FieldItem(nil), v.Items...); r = &c
        case *Call        : r = cloneCall(v)
        default           : panic("ir: cannot clone node of type " + e.Type().String())
    }

    /* assign a new identity */
    r.Head().id = atomic.AddInt64(&nodeSeq, 1)

    /* clone all the operands through their slots */
    for _, p := range Children(r) {
        *p = Clone(*p)
    }

    /* the argument table must follow the copied operands */
    if c, ok := r.(*Call); ok && c.Info != nil {
        c.Info = c.Info.CloneFor(c)
    }
    return r
}

func cloneCall(v *Call) *Call {
    c := *v
    c.Args = append([]Expr(nil), v.Args...)
    c.Late = append([]Expr(nil), v.Late...)
    return &c
}

// IsCheapToClone reports whether e can be duplicated instead of being
// spilled into a temporary.
func IsCheapToClone(e Expr) bool {
    switch v := e.(type) {
        case *IntConst   : return true
        case *FltConst   : return true
        case *Local      : return true
        case *LocalField : return true
        case *Addr       : return IsLocalAddr(v)
        default          : return false
    }
}
