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
    `strings`
)

type CallKind uint8

const (
    CallUser CallKind = iota
    CallHelper
    CallIndirect
)

// SlotList names one of the operand lists of a call.
type SlotList uint8

const (
    SlotNone SlotList = iota
    SlotThis
    SlotArgs
    SlotLate
)

// Slot is a handle to one operand position of a call, it replaces the
// pointer-into-list parent links with an index into an explicit container.
type Slot struct {
    List  SlotList
    Index int
}

var NoSlot = Slot { List: SlotNone, Index: -1 }

func (self Slot) String() string {
    switch self.List {
        case SlotNone : return "-"
        case SlotThis : return "this"
        case SlotArgs : return fmt.Sprintf("args[%d]", self.Index)
        case SlotLate : return fmt.Sprintf("late[%d]", self.Index)
        default       : return "?"
    }
}

// ArgTable is the argument placement table attached to a call once its
// arguments were morphed.
type ArgTable interface {
    ArgCount() int
    CloneFor(call *Call) ArgTable
}

// Call invokes a user method, a runtime helper or an indirect target.
//
// This is the receiver, Args are the early-evaluated arguments in source
// order and Late holds values that were deferred past all early arguments.
type Call struct {
    Header
    Kind       CallKind
    Ret        Type
    RetClass   *Class
    Method     string
    Helper     Helper
    Target     Expr
    This       Expr
    Args       []Expr
    Late       []Expr
    Info       ArgTable
    Pure       bool
    StubCell   int64
    Cookie     int64
    Virtual    bool
    Unmanaged  bool
    RetBuf     bool
}

func NewCall(method string, ret Type, args ...Expr) *Call {
    return Refresh(&Call { Header: newHeader(), Kind: CallUser, Method: method, Ret: ret, Args: args }).(*Call)
}

func NewHelperCall(helper Helper, ret Type, args ...Expr) *Call {
    return Refresh(&Call { Header: newHeader(), Kind: CallHelper, Helper: helper, Ret: ret, Args: args }).(*Call)
}

func NewIndirectCall(target Expr, ret Type, args ...Expr) *Call {
    return Refresh(&Call { Header: newHeader(), Kind: CallIndirect, Target: target, Ret: ret, Args: args }).(*Call)
}

func (self *Call) Type() Type {
    return self.Ret
}

func (self *Call) Operands() []*Expr {
    ret := make([]*Expr, 0, len(self.Args) + len(self.Late) + 2)
    if self.Target != nil { ret = append(ret, &self.Target) }
    if self.This   != nil { ret = append(ret, &self.This) }
    for i := range self.Args { ret = append(ret, &self.Args[i]) }
    for i := range self.Late { ret = append(ret, &self.Late[i]) }
    return ret
}

func (self *Call) own() Effect {
    if self.Pure {
        return EffCall
    } else {
        return EffCall | EffExcept | EffGlobRef
    }
}

// Name returns the callee name for dumps.
func (self *Call) Name() string {
    switch self.Kind {
        case CallUser     : return self.Method
        case CallHelper   : return "help." + self.Helper.String()
        case CallIndirect : return "ind"
        default           : return "?"
    }
}

func (self *Call) String() string {
    var buf []string
    if self.Target != nil { buf = append(buf, fmt.Sprintf("target=%s", self.Target)) }
    if self.This   != nil { buf = append(buf, fmt.Sprintf("this=%s", self.This)) }
    for _, v := range self.Args { buf = append(buf, v.String()) }
    if len(self.Late) != 0 {
        late := make([]string, len(self.Late))
        for i, v := range self.Late { late[i] = v.String() }
        buf = append(buf, fmt.Sprintf("late={%s}", strings.Join(late, " ")))
    }
    return fmt.Sprintf("(call.%s %s %s)", self.Ret, self.Name(), strings.Join(buf, " "))
}

// Get returns the operand held by the slot.
func (self *Call) Get(s Slot) Expr {
    switch s.List {
        case SlotThis : return self.This
        case SlotArgs : return self.Args[s.Index]
        case SlotLate : return self.Late[s.Index]
        default       : panic("ir: get through an empty call slot")
    }
}

// Set replaces the operand held by the slot and refreshes the call summary.
func (self *Call) Set(s Slot, e Expr) {
    switch s.List {
        case SlotThis : self.This = e
        case SlotArgs : self.Args[s.Index] = e
        case SlotLate : self.Late[s.Index] = e
        default       : panic("ir: set through an empty call slot")
    }
    Refresh(self)
}
