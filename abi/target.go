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
)

// target implements Descriptor from a register table and a handful of
// convention switches, the per-architecture rules live in the classify and
// align hooks.
type target struct {
    name      string
    ptr       int
    slot      int
    iregs     []Reg
    fregs     []Reg
    fixed     bool
    shared    bool
    backfill  bool
    split     bool
    noregs    bool
    pairs     bool
    dblregs   int
    hfa       int
    unroll    int
    partial   map[int]bool
    nonstd    map[NonStandard]Reg
    features  Features
    classify  func(self *target, cls *ir.Class) Passing
    align     func(self *target, ty ir.Type, cls *ir.Class) int
}

func (self *target) Name() string                 { return self.name }
func (self *target) PtrSize() int                 { return self.ptr }
func (self *target) StackSlotSize() int           { return self.slot }
func (self *target) MaxIntArgRegs() int           { return len(self.iregs) }
func (self *target) MaxFloatArgRegs() int         { return len(self.fregs) }
func (self *target) FixedOutgoingArgArea() bool   { return self.fixed }
func (self *target) SharedArgCursor() bool        { return self.shared }
func (self *target) BackFill() bool               { return self.backfill }
func (self *target) SplitStructs() bool           { return self.split }
func (self *target) NoRegsAfterStackStruct() bool { return self.noregs }
func (self *target) FloatRegsPerDouble() int      { return self.dblregs }
func (self *target) UnrollLimit() int             { return self.unroll }
func (self *target) Features() Features           { return self.features }
func (self *target) PartialReadNeedsTemp(size int) bool { return self.partial[size] }

func (self *target) IntArgReg(i int) Reg {
    if i < 0 || i >= len(self.iregs) {
        panic("abi: integer argument register index out of range")
    }
    return self.iregs[i]
}

func (self *target) FloatArgReg(i int) Reg {
    if i < 0 || i >= len(self.fregs) {
        panic("abi: float argument register index out of range")
    }
    return self.fregs[i]
}

func (self *target) HFA(cls *ir.Class) ir.Type {
    if CheckClass(cls, self.ptr); self.hfa == 0 {
        return ir.Void
    } else {
        return HomogeneousFloat(cls, self.hfa)
    }
}

func (self *target) StructPassing(cls *ir.Class) Passing {
    CheckClass(cls, self.ptr)
    return self.classify(self, cls)
}

func (self *target) ArgAlignment(ty ir.Type, cls *ir.Class) int {
    if self.align == nil {
        return 1
    } else {
        return self.align(self, ty, cls)
    }
}

func (self *target) IsRegArgType(ty ir.Type) bool {
    switch {
        case ty.IsFloat()                 : return len(self.fregs) != 0
        case ty == ir.Struct              : return true
        case ty.Size(self.ptr) > self.ptr : return self.pairs
        default                           : return true
    }
}

func (self *target) NonStandardReg(kind NonStandard) (Reg, bool) {
    r, ok := self.nonstd[kind]
    return r, ok
}

// stackSlots returns the number of stack slots a struct occupies.
func (self *target) stackSlots(cls *ir.Class) int {
    return cls.Slots(self.slot)
}

// Lookup returns the descriptor with the given name, or nil.
func Lookup(name string) Descriptor {
    switch name {
        case "sysv-amd64" : return SysVAMD64()
        case "win-amd64"  : return WinAMD64()
        case "arm64"      : return ARM64()
        case "arm32"      : return ARM32()
        case "x86"        : return X86()
        default           : return nil
    }
}
