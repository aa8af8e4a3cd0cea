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

package args

import (
    `fmt`
    `strings`

    `github.com/cloudwego/morph/abi`
    `github.com/cloudwego/morph/internal/utils`
    `github.com/cloudwego/morph/ir`
)

type _State uint8

const (
    _S_building _State = iota
    _S_complete
    _S_sorted
    _S_evaluated
)

func (self _State) String() string {
    switch self {
        case _S_building  : return "building"
        case _S_complete  : return "complete"
        case _S_sorted    : return "sorted"
        case _S_evaluated : return "evaluated"
        default           : return "?"
    }
}

// Info is the argument table of one call. Entries are kept in evaluation
// order, which is argument order until SortArgs reorders them.
type Info struct {
    call     *ir.Call
    target   abi.Descriptor
    count    int
    entries  []*Entry
    hasRegs  bool
    hasStack bool
    nextSlot int
    stkLevel int
    state    _State
    remorph  bool
}

// New creates the argument table of call for count logical arguments.
func New(call *ir.Call, target abi.Descriptor, count int) *Info {
    return &Info {
        call    : call,
        target  : target,
        count   : count,
        entries : make([]*Entry, 0, count),
    }
}

func (self *Info) Call() *ir.Call          { return self.call }
func (self *Info) Target() abi.Descriptor  { return self.target }
func (self *Info) Entries() []*Entry       { return self.entries }
func (self *Info) ArgCount() int           { return len(self.entries) }
func (self *Info) HasRegArgs() bool        { return self.hasRegs }
func (self *Info) HasStackArgs() bool      { return self.hasStack }
func (self *Info) StackSlots() int         { return self.nextSlot }
func (self *Info) Complete() bool          { return self.state >= _S_complete }
func (self *Info) Sorted() bool            { return self.state >= _S_sorted }
func (self *Info) Evaluated() bool         { return self.state >= _S_evaluated }
func (self *Info) Remorphing() bool        { return self.remorph }

// EntryFor returns the entry of a logical argument.
func (self *Info) EntryFor(argNum int) *Entry {
    for _, e := range self.entries {
        if e.ArgNum == argNum {
            return e
        }
    }
    panic(utils.EInternal("args: no entry for argument %d of %s", argNum, self.call.Name()))
}

func (self *Info) must(st _State, op string) {
    if self.state != st {
        panic(utils.EInternal("args: %s on a %s table, expected %s", op, self.state, st))
    }
}

func (self *Info) mustBuild(op string) {
    if self.must(_S_building, op); self.remorph {
        panic(utils.EInternal("args: %s on a remorphed table", op))
    }
}

func (self *Info) mustRemorph(op string) {
    if !self.remorph {
        panic(utils.EInternal("args: %s on a table that was not reset for remorphing", op))
    }
}

func (self *Info) append(e *Entry) *Entry {
    if len(self.entries) >= self.count {
        panic(utils.EInternal("args: too many arguments for %s, expected %d", self.call.Name(), self.count))
    } else if e.ArgNum != len(self.entries) {
        panic(utils.EInternal("args: argument %d added out of order, expected %d", e.ArgNum, len(self.entries)))
    }
    self.entries = append(self.entries, e)
    return e
}

func alignSlot(v int, align int) int {
    if align <= 1 {
        return v
    } else {
        return (v + align - 1) / align * align
    }
}

// AddRegArg appends an argument passed in regCount registers starting at reg.
func (self *Info) AddRegArg(argNum int, node ir.Expr, parent ir.Slot, reg abi.Reg, regCount int, align int) *Entry {
    self.mustBuild("AddRegArg")
    e := newEntry(argNum, node, parent, align)
    e.Reg = reg
    e.RegCount = regCount
    self.hasRegs = true
    return self.append(e)
}

// AddStkArg appends an argument passed in slotCount stack slots.
func (self *Info) AddStkArg(argNum int, node ir.Expr, parent ir.Slot, slotCount int, align int) *Entry {
    self.mustBuild("AddStkArg")
    e := newEntry(argNum, node, parent, align)
    self.nextSlot = alignSlot(self.nextSlot, align)
    e.SlotNum = self.nextSlot
    e.SlotCount = slotCount
    self.nextSlot += slotCount
    self.hasStack = true
    return self.append(e)
}

// SplitArg marks an argument as straddling the last registers and the stack.
// On a remorphed table it only checks that the split is unchanged.
func (self *Info) SplitArg(argNum int, regCount int, slotCount int) *Entry {
    e := self.EntryFor(argNum)
    if self.remorph {
        if !e.IsSplit || e.RegCount != regCount || e.SlotCount != slotCount || e.SlotNum != self.nextSlot {
            panic(utils.EInternal("args: split of argument %d changed while remorphing", argNum))
        }
    } else {
        self.mustBuild("SplitArg")
        e.IsSplit = true
        e.RegCount = regCount
        e.SlotCount = slotCount
        e.SlotNum = self.nextSlot
    }
    self.nextSlot += slotCount
    self.hasStack = true
    return e
}

// EvalToTmp binds an argument to a temporary that was assigned elsewhere,
// node replaces the argument in its call slot.
func (self *Info) EvalToTmp(argNum int, tmpNum int, node ir.Expr) *Entry {
    e := self.EntryFor(argNum)
    e.TmpNum = tmpNum
    e.IsTemp = true
    e.Node = node
    self.call.Set(e.Parent, node)
    return e
}

// ArgsComplete decides which arguments must be evaluated into temporaries
// or moved into the late list so that reordering the argument setup keeps
// the source evaluation order of their side effects.
func (self *Info) ArgsComplete(m *ir.Method, cost func(ir.Expr) int) {
    self.mustBuild("ArgsComplete")
    fixed := self.target.FixedOutgoingArgArea()
    argc := len(self.entries)

    /* every logical argument must be there */
    if argc != self.count {
        panic(utils.EInternal("args: %s has %d arguments, expected %d", self.call.Name(), argc, self.count))
    }

    /* scan every argument */
    stack := false
    sregs := false
    for i, e := range self.entries {
        pushed := false
        if !e.InReg() {
            stack = true
            pushed = !fixed
        } else if e.IsSplit {
            sregs = true
            stack = true
        } else if e.Type == ir.Struct || e.IsStruct {
            sregs = true
        }

        /* an embedded assignment pins every earlier argument except constants,
         * pushed arguments are evaluated in place and never need a temporary */
        if ir.HasEffects(e.Node, ir.EffAssign) {
            if _, blk := e.Node.(*ir.BlockOp); !pushed && (argc > 1 || blk || e.IsTemp && fixed) {
                e.NeedTmp = true
            }
            for _, p := range self.entries[:i] {
                if _, ok := p.Node.(*ir.IntConst); !ok {
                    p.NeedTmp = true
                }
            }
        }

        /* a nested call goes first, effects before it must be frozen */
        if ir.HasEffects(e.Node, ir.EffCall) {
            if _, ok := e.Node.(*ir.Call); !pushed && (argc > 1 || ok && e.Type.IsFloat()) {
                e.NeedTmp = true
            }
            for _, p := range self.entries[:i] {
                if ir.HasEffects(p.Node, ir.EffAll) {
                    p.NeedTmp = true
                } else if fixed && (!p.InReg() || p.IsSplit) {
                    p.NeedPlace = true
                }
            }
        }

        /* multi-register structs are read once per register */
        if e.Type == ir.Struct && !e.NeedTmp && e.RegCount > 1 {
            self.checkMultiReg(e, cost)
        }
    }

    /* register arguments cannot move across a localloc or a qmark */
    if (stack && (!fixed || m.LocallocUsed)) || (sregs && m.QmarkUsed) {
        for _, e := range self.entries {
            if e.NeedTmp || !e.InReg() {
                continue
            } else if stack && (!fixed || m.LocallocUsed) && ir.HasEffects(e.Node, ir.EffExcept) {
                e.NeedTmp = true
            } else if sregs && m.QmarkUsed && ir.Any(e.Node, isSelect) {
                e.NeedTmp = true
            }
        }
    }

    /* placement is final from now on */
    self.state = _S_complete
}

// costly is the evaluation cost above which a multi-register struct is
// spilled rather than evaluated once per register.
const costly = 18

func (self *Info) checkMultiReg(e *Entry, cost func(ir.Expr) int) {
    if ir.HasEffects(e.Node, ir.EffAssign | ir.EffCall) {
        e.NeedTmp = true
    } else if cost(e.Node) > costly {
        e.NeedTmp = true
    } else if obj, ok := e.Node.(*ir.Indir); ok && obj.Class != nil && self.target.PartialReadNeedsTemp(obj.Class.Size) {
        e.NeedTmp = obj.Class.Size > self.target.PtrSize() || !ir.IsLocalAddr(obj.Addr)
    }
}

func isSelect(e ir.Expr) bool {
    _, ok := e.(*ir.Select)
    return ok
}

// SortArgs orders the table for evaluation: arguments with calls first,
// then arguments needing a temporary, then everything else by descending
// cost, then local reads, and constants last. Ties keep their relative order.
func (self *Info) SortArgs(cost func(ir.Expr) int) {
    self.must(_S_complete, "SortArgs")
    nb := len(self.entries)
    calls := make([]*Entry, 0, nb)
    temps := make([]*Entry, 0, nb)
    other := make([]*Entry, 0, nb)
    local := make([]*Entry, 0, nb)
    consts := make([]*Entry, 0, nb)

    /* bucket every argument */
    for _, e := range self.entries {
        e.Processed = true
        switch e.Node.(type) {
            case *ir.IntConst                : consts = append(consts, e); continue
            case *ir.Local, *ir.LocalField   : if !e.NeedTmp && !ir.HasEffects(e.Node, ir.EffCall) { local = append(local, e); continue }
        }
        if ir.HasEffects(e.Node, ir.EffCall) {
            calls = append(calls, e)
        } else if e.NeedTmp {
            temps = append(temps, e)
        } else {
            other = append(other, e)
        }
    }

    /* the rest goes by descending cost, stable */
    sortByCost(other, cost)

    /* rebuild the table */
    self.entries = self.entries[:0]
    self.entries = append(self.entries, calls...)
    self.entries = append(self.entries, temps...)
    self.entries = append(self.entries, other...)
    self.entries = append(self.entries, local...)
    self.entries = append(self.entries, consts...)
    self.state = _S_sorted
}

func sortByCost(ev []*Entry, cost func(ir.Expr) int) {
    cv := make([]int, len(ev))
    for i, e := range ev {
        cv[i] = cost(e.Node)
    }

    /* insertion sort keeps equal costs in order */
    for i := 1; i < len(ev); i++ {
        for j := i; j > 0 && cv[j] > cv[j - 1]; j-- {
            ev[j], ev[j - 1] = ev[j - 1], ev[j]
            cv[j], cv[j - 1] = cv[j - 1], cv[j]
        }
    }
}

// EvalArgsToTemps rewrites the call so that arguments needing a temporary
// are assigned to one in their original position and read back from the
// late list, while register arguments and arguments needing a placeholder
// leave a Placeholder behind and move into the late list. The late list
// follows the sorted table order. lower, when not nil, rewrites the struct
// assignments synthesized for struct temporaries.
func (self *Info) EvalArgsToTemps(m *ir.Method, lower func(*ir.Assign) ir.Expr) {
    self.must(_S_sorted, "EvalArgsToTemps")
    late := make([]ir.Expr, 0, len(self.entries))
    fixed := self.target.FixedOutgoingArgArea()

    /* scan in evaluation order */
    for _, e := range self.entries {
        var def ir.Expr
        var setup ir.Expr

        /* pushed stack arguments are evaluated in place */
        if !e.InReg() && !fixed {
            continue
        }

        /* plain stack arguments are stored in place too */
        if !e.InReg() && !e.IsSplit && !e.NeedTmp && !e.NeedPlace {
            continue
        }

        /* bind to a temporary, or move the whole node */
        if e.NeedTmp {
            def, setup = self.evalToTemp(m, e, lower)
        } else {
            def = e.Node
            setup = ir.NewPlaceholder(e.Node.Type(), self.classOf(e))
        }

        /* replace the original argument */
        if setup != nil {
            self.call.Set(e.Parent, setup)
        }

        /* the deferred value goes into the late list */
        e.Node = def
        e.LateIndex = len(late)
        late = append(late, def)
    }

    /* update the call */
    self.call.Late = late
    ir.Refresh(self.call)
    self.state = _S_evaluated
}

func (self *Info) evalToTemp(m *ir.Method, e *Entry, lower func(*ir.Assign) ir.Expr) (ir.Expr, ir.Expr) {
    if e.IsTemp {
        if lv := ir.NewLocal(e.TmpNum, m.Local(e.TmpNum).Type); e.PassedByRef {
            return ir.NewAddr(lv), nil
        } else {
            return lv, nil
        }
    }

    /* create the temporary */
    ty := e.Node.Type().Actual()
    cls := self.classOf(e)
    tmp := m.GrabTemp(ty, cls, "argument with side effect")
    asg := ir.NewAssign(ir.NewLocal(tmp, ty), e.Node)

    /* struct assignments are lowered right away */
    var setup ir.Expr = asg
    if ty == ir.Struct && lower != nil {
        setup = lower(asg)
    }

    /* the late list reads the temporary */
    e.IsTemp = true
    e.TmpNum = tmp
    return ir.NewLocal(tmp, ty), setup
}

func (self *Info) classOf(e *Entry) *ir.Class {
    if e.Class != nil {
        return e.Class
    }
    switch v := e.Node.(type) {
        case *ir.Indir       : return v.Class
        case *ir.FieldList   : return v.Class
        case *ir.Placeholder : return v.Class
        case *ir.Call        : return v.RetClass
        default              : return nil
    }
}

// RemorphReset prepares a completed table to be matched against a
// re-morphed call, resetting the stack cursor.
func (self *Info) RemorphReset() {
    if self.state < _S_complete {
        panic(utils.EInternal("args: remorphing an incomplete table"))
    }
    self.remorph = true
    self.nextSlot = 0
}

// RemorphRegArg re-points a register argument at its node in the
// re-morphed call, its placement must not have changed.
func (self *Info) RemorphRegArg(argNum int, node ir.Expr, parent ir.Slot, reg abi.Reg, regCount int, align int) *Entry {
    self.mustRemorph("RemorphRegArg")
    e := self.EntryFor(argNum)

    /* non-standard registers are fixed by the table */
    if e.IsNonStandard {
        reg = e.Reg
    }

    /* placement is immutable */
    if e.Reg != reg || e.Align != align || e.Parent != parent || e.RegCount != regCount {
        panic(utils.EInternal("args: placement of register argument %d changed while remorphing: %s", argNum, e))
    }

    /* the value may have been moved into the late list */
    self.repoint(e, node)
    return e
}

// RemorphStkArg re-points a stack argument, its slot must not have changed.
func (self *Info) RemorphStkArg(argNum int, node ir.Expr, parent ir.Slot, slotCount int, align int) *Entry {
    self.mustRemorph("RemorphStkArg")
    e := self.EntryFor(argNum)
    self.nextSlot = alignSlot(self.nextSlot, align)

    /* placement is immutable */
    if e.InReg() || e.SlotCount != slotCount || e.SlotNum != self.nextSlot || e.Align != align || e.Parent != parent {
        panic(utils.EInternal("args: placement of stack argument %d changed while remorphing: %s", argNum, e))
    }

    /* advance the cursor and re-point */
    self.nextSlot += slotCount
    self.repoint(e, node)
    return e
}

func (self *Info) repoint(e *Entry, node ir.Expr) {
    if !e.IsLate() {
        e.Node = node
    } else if e.LateIndex >= len(self.call.Late) {
        panic(utils.EInternal("args: late index %d of argument %d out of range", e.LateIndex, e.ArgNum))
    } else {
        e.Node = self.call.Late[e.LateIndex]
    }
}

// RecordStkLevel remembers the stack depth at the call.
func (self *Info) RecordStkLevel(level int) {
    self.stkLevel = level
}

// RetrieveStkLevel returns the stack depth recorded with RecordStkLevel.
func (self *Info) RetrieveStkLevel() int {
    return self.stkLevel
}

// CloneFor copies the table for a clone of its call, every entry is
// re-pointed at the node in the same position of the new call.
func (self *Info) CloneFor(call *ir.Call) ir.ArgTable {
    ret := *self
    ret.call = call
    ret.entries = make([]*Entry, len(self.entries))

    /* copy every entry */
    for i, e := range self.entries {
        ne := *e
        ret.entries[i] = &ne

        /* find the node in the new call */
        if ne.IsLate() {
            ne.Node = call.Late[ne.LateIndex]
        } else {
            ne.Node = call.Get(ne.Parent)
        }
    }
    return &ret
}

func (self *Info) String() string {
    buf := make([]string, 0, len(self.entries) + 1)
    buf = append(buf, fmt.Sprintf("args of %s (%s, %d slots):", self.call.Name(), self.state, self.nextSlot))
    for _, e := range self.entries {
        buf = append(buf, "    " + e.String())
    }
    return strings.Join(buf, "\n")
}
