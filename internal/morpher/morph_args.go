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

    `github.com/cloudwego/morph/abi`
    `github.com/cloudwego/morph/args`
    `github.com/cloudwego/morph/internal/utils`
    `github.com/cloudwego/morph/ir`
)

// argCursors are the next free argument registers while the arguments of
// one call are placed. fmask is the set of float registers in use, it lets
// a narrow argument back-fill a register skipped by alignment.
type argCursors struct {
    ints   int
    flts   int
    fmask  uint64
    shared int
}

type placement struct {
    reg      abi.Reg
    other    abi.Reg
    regs     int
    slots    int
    align    int
    split    bool
    hfa      bool
    backfill bool
}

func (self *Context) morphCall(call *ir.Call) ir.Expr {
    cur, ns := self.cur, self.nonstd
    self.cur, self.nonstd = argCursors{}, nil

    /* place the arguments, or re-point an existing table */
    if info, ok := call.Info.(*args.Info); ok {
        self.remorphArgs(call, info)
    } else {
        self.morphArgs(call)
    }

    /* the target is evaluated after the arguments */
    if call.Target != nil {
        call.Target = self.morph(call.Target)
    }

    /* restore the cursors of the enclosing call */
    self.cur, self.nonstd = cur, ns
    return ir.Refresh(call)
}

// argSlots lists the logical arguments of a call: the receiver, then every
// explicit and synthetic argument.
func argSlots(call *ir.Call) []ir.Slot {
    ret := make([]ir.Slot, 0, len(call.Args) + 1)
    if call.This != nil {
        ret = append(ret, ir.Slot { List: ir.SlotThis })
    }
    for i := range call.Args {
        ret = append(ret, ir.Slot { List: ir.SlotArgs, Index: i })
    }
    return ret
}

func (self *Context) morphArgs(call *ir.Call) {
    self.addSyntheticArgs(call)
    slots := argSlots(call)
    info := args.New(call, self.target, len(slots))

    /* classify every argument in order */
    copied := false
    call.Info = info
    for i, s := range slots {
        if self.addArg(info, i, s) {
            copied = true
        }
    }

    /* freeze the evaluation order */
    info.ArgsComplete(self.m, self.cost)
    if info.HasRegArgs() || copied {
        info.SortArgs(self.cost)
        info.EvalArgsToTemps(self.m, self.lowerStructAssign)
        self.traceTable(info.String())
    }

    /* struct pieces and the outgoing area */
    self.decomposeStructArgs(info)
    self.recordStackSize(info)
    atomic.AddInt64(&CallCount, 1)
    atomic.AddInt64(&ArgCount, int64(len(slots)))
}

func (self *Context) remorphArgs(call *ir.Call, info *args.Info) {
    for i := range call.Late {
        call.Late[i] = self.morph(call.Late[i])
    }

    /* the early nodes are part of the tree too */
    for _, s := range argSlots(call) {
        call.Set(s, self.morph(call.Get(s)))
    }

    /* placement is recomputed from the recorded types and must not change */
    info.RemorphReset()
    for i := 0; i < info.ArgCount(); i++ {
        e := info.EntryFor(i)
        self.record(info, i, call.Get(e.Parent), e.Parent, self.replace(info, e))
    }

    /* the table stays as it was */
    self.decomposeStructArgs(info)
    self.recordStackSize(info)
}

// addSyntheticArgs appends the arguments the convention adds to a call and
// binds them to their fixed registers.
func (self *Context) addSyntheticArgs(call *ir.Call) {
    if call.RetBuf && len(call.Args) != 0 {
        if r, ok := self.target.NonStandardReg(abi.ReturnBuffer); ok {
            self.nonstd.add(call.Args[0], abi.ReturnBuffer, r)
        }
    }

    /* virtual stub dispatch passes the indirection cell */
    if call.Virtual && call.StubCell != 0 {
        self.addSynthetic(call, ir.NewInt(ir.IntPtr, call.StubCell), abi.VirtualStubCell)
    }

    /* unmanaged indirect calls pass the cookie and the target */
    if call.Unmanaged && call.Kind == ir.CallIndirect && call.Target != nil {
        self.addSynthetic(call, ir.NewInt(ir.IntPtr, call.Cookie), abi.PInvokeCookie)
        self.addSynthetic(call, call.Target, abi.PInvokeTarget)
        call.Target = nil
    }
    ir.Refresh(call)
}

func (self *Context) addSynthetic(call *ir.Call, node ir.Expr, kind abi.NonStandard) {
    call.Args = append(call.Args, node)
    if r, ok := self.target.NonStandardReg(kind); ok {
        self.nonstd.add(node, kind, r)
    }
}

// addArg morphs one argument and adds it to the table, it reports whether
// a struct copy was made for it.
func (self *Context) addArg(info *args.Info, argNum int, slot ir.Slot) bool {
    call := info.Call()
    old := call.Get(slot)
    node := self.morph(old)

    /* synthetic bindings follow the morphed node */
    self.nonstd.replace(old, node)
    call.Set(slot, node)

    /* fixed registers take no cursor */
    if reg, ok := self.nonstd.find(node); ok {
        info.AddRegArg(argNum, node, slot, reg, 1, 1).IsNonStandard = true
        return false
    }

    /* primitive values */
    if node.Type() != ir.Struct {
        self.record(info, argNum, node, slot, self.place(info, node.Type(), nil))
        return false
    }

    /* structs are classified by their layout */
    cls := self.classOf(node)
    if cls == nil {
        panic(utils.EBadCode("struct argument %d of %s has no class", argNum, call.Name()))
    }

    /* check how the struct is passed */
    switch pass := self.target.StructPassing(cls); pass.Kind {
        case abi.PassPrimitive : self.addPrimitiveArg(info, argNum, node, slot, cls, pass.Prim)
        case abi.PassByRef     : self.addStructCopy(info, argNum, node, slot, cls); return true
        default                : self.addStructArg(info, argNum, node, slot, cls)
    }
    return false
}

// addStructArg passes a struct by value. Register pieces are read from a
// local or from memory, any other value is evaluated into a temporary.
func (self *Context) addStructArg(info *args.Info, argNum int, node ir.Expr, slot ir.Slot, cls *ir.Class) {
    e := self.record(info, argNum, node, slot, self.place(info, ir.Struct, cls))
    self.markStruct(e, cls)

    /* check for readable values */
    switch node.(type) {
        case *ir.Local     : break
        case *ir.Indir     : break
        case *ir.FieldList : break
        default            : e.NeedTmp = e.InReg()
    }
}

// addPrimitiveArg passes a small struct as a single primitive value.
func (self *Context) addPrimitiveArg(info *args.Info, argNum int, node ir.Expr, slot ir.Slot, cls *ir.Class, ty ir.Type) {
    old := self.dump(node)
    val := self.rewritten("retype", old, self.retypeStruct(node, ty))
    info.Call().Set(slot, val)
    self.markStruct(self.record(info, argNum, val, slot, self.place(info, ty, cls)), cls)
}

// addStructCopy passes a struct by reference to a fresh copy of it.
func (self *Context) addStructCopy(info *args.Info, argNum int, node ir.Expr, slot ir.Slot, cls *ir.Class) {
    tmp := self.m.GrabTemp(ir.Struct, cls, "outgoing struct copy")
    asg := self.lowerStructAssign(ir.NewAssign(ir.NewLocal(tmp, ir.Struct), node))

    /* the copy lives in memory */
    lv := self.m.Local(tmp)
    lv.AddrExposed = true
    lv.DoNotEnregister = true

    /* the argument is the address of the copy */
    val := ir.NewComma(asg, ir.NewAddr(ir.NewLocal(tmp, ir.Struct)))
    info.Call().Set(slot, val)
    e := self.record(info, argNum, val, slot, self.place(info, ir.ByRef, cls))

    /* bind the temporary */
    info.EvalToTmp(argNum, tmp, val)
    e.PassedByRef = true
    self.markStruct(e, cls)
}

func (self *Context) markStruct(e *args.Entry, cls *ir.Class) {
    e.IsStruct = true
    e.Class = cls
}

// retypeStruct reads a struct value as the primitive type ty.
func (self *Context) retypeStruct(node ir.Expr, ty ir.Type) ir.Expr {
    switch v := node.(type) {
        case *ir.Local : return self.morph(ir.NewIndir(ty, ir.NewAddr(v)))
        case *ir.Indir : return self.morph(ir.NewIndir(ty, v.Addr))
    }

    /* anything else is read back from a temporary */
    asg, tmp := self.newTemp(node, "struct argument")
    return ir.NewComma(self.lowerStructAssign(asg), ir.NewLocalField(tmp, 0, ty))
}

// replace recomputes the placement of an entry from its recorded type.
func (self *Context) replace(info *args.Info, e *args.Entry) placement {
    if e.IsNonStandard {
        return placement { reg: e.Reg, regs: 1, align: 1 }
    } else {
        return self.place(info, e.Type, e.Class)
    }
}

// record adds a placed argument to the table, or checks it against the
// table when remorphing.
func (self *Context) record(info *args.Info, argNum int, node ir.Expr, slot ir.Slot, p placement) *args.Entry {
    var e *args.Entry
    remorph := info.Remorphing()

    /* register or stack */
    switch {
        case p.reg.IsStack() && remorph : e = info.RemorphStkArg(argNum, node, slot, p.slots, p.align)
        case p.reg.IsStack()            : e = info.AddStkArg(argNum, node, slot, p.slots, p.align)
        case remorph                    : e = info.RemorphRegArg(argNum, node, slot, p.reg, p.regs, p.align)
        default                         : e = info.AddRegArg(argNum, node, slot, p.reg, p.regs, p.align)
    }

    /* the rest of the struct goes on the stack */
    if p.split {
        info.SplitArg(argNum, p.regs, p.slots)
    }

    /* register details are only recorded once */
    if !remorph {
        e.OtherReg = p.other
        e.IsHfaReg = p.hfa
        e.IsBackFilled = p.backfill
    }
    return e
}

func (self *Context) place(info *args.Info, ty ir.Type, cls *ir.Class) placement {
    align := self.target.ArgAlignment(ty, cls)
    if ty != ir.Struct {
        return self.placeScalar(ty, align)
    }

    /* by-value structs */
    switch pass := self.target.StructPassing(cls); pass.Kind {
        case abi.PassStack    : return self.placeStack(pass.Slots, align, true)
        case abi.PassMultiReg : return self.placeMultiReg(info, cls, pass, align)
        default               : panic(utils.EInternal("struct %s cannot be passed by value as %s", cls.Name, pass.Kind))
    }
}

func (self *Context) placeStack(slots int, align int, structs bool) placement {
    if structs && self.target.NoRegsAfterStackStruct() {
        self.cur.ints = self.target.MaxIntArgRegs()
    }
    return placement { reg: abi.RegStack, slots: slots, align: align }
}

func (self *Context) placeScalar(ty ir.Type, align int) placement {
    size := ty.Size(self.ptr)
    slot := self.target.StackSlotSize()
    slots := (size + slot - 1) / slot

    /* some types are never passed in registers */
    if !self.target.IsRegArgType(ty) {
        return self.placeStack(slots, align, false)
    }

    /* one shared position per argument */
    if self.target.SharedArgCursor() {
        return self.placeShared(ty, slots, align)
    }

    /* float or integer registers */
    if !ty.IsFloat() {
        return self.placeInts((size + self.ptr - 1) / self.ptr, slots, align, false)
    } else if per := self.target.FloatRegsPerDouble(); ty == ir.Float64 && per > 1 {
        return self.placeFloats(per, per, slots, align, false)
    } else {
        return self.placeFloats(1, 1, slots, align, false)
    }
}

func (self *Context) placeShared(ty ir.Type, slots int, align int) placement {
    if i := self.cur.shared; i >= self.target.MaxIntArgRegs() {
        return self.placeStack(slots, align, false)
    } else if self.cur.shared++; ty.IsFloat() {
        return placement { reg: self.target.FloatArgReg(i), regs: 1, align: align }
    } else {
        return placement { reg: self.target.IntArgReg(i), regs: 1, align: align }
    }
}

func (self *Context) placeInts(n int, slots int, align int, structs bool) placement {
    i := alignUp(self.cur.ints, align)
    if i + n > self.target.MaxIntArgRegs() {
        if n > 1 && self.target.NoRegsAfterStackStruct() {
            self.cur.ints = self.target.MaxIntArgRegs()
        }
        return self.placeStack(slots, align, structs)
    }

    /* take the registers */
    p := placement { reg: self.target.IntArgReg(i), regs: n, align: align }
    if n > 1 {
        p.other = self.target.IntArgReg(i + 1)
    }

    /* advance the cursor */
    self.cur.ints = i + n
    return p
}

// placeFloats takes n consecutive float registers aligned to step. With
// back-fill the lowest free run is used, otherwise the cursor only moves up.
func (self *Context) placeFloats(n int, step int, slots int, align int, hfa bool) placement {
    max := self.target.MaxFloatArgRegs()
    bits := uint64(1) << uint(n) - 1

    /* find a run of free registers */
    i := alignUp(self.cur.flts, step)
    if self.target.BackFill() {
        for i = 0; i + n <= max && self.cur.fmask & (bits << uint(i)) != 0; i += step {}
    }

    /* no room, and no back-filling after a float went to the stack */
    if i + n > max {
        self.cur.flts = max
        self.cur.fmask = 1 << uint(max) - 1
        return self.placeStack(slots, align, false)
    }

    /* take the registers */
    p := placement {
        reg      : self.target.FloatArgReg(i),
        regs     : n,
        align    : align,
        hfa      : hfa,
        backfill : i < self.cur.flts,
    }

    /* a second register for pairs */
    if n > 1 && !hfa {
        p.other = self.target.FloatArgReg(i + 1)
    }

    /* advance the cursor */
    self.cur.fmask |= bits << uint(i)
    if i + n > self.cur.flts {
        self.cur.flts = i + n
    }
    return p
}

func (self *Context) placeMultiReg(info *args.Info, cls *ir.Class, pass abi.Passing, align int) placement {
    slots := cls.Slots(self.target.StackSlotSize())

    /* homogeneous float aggregates take one float register per element */
    if pass.HFA {
        per := 1
        if pass.Regs[0] == ir.Float64 && self.target.FloatRegsPerDouble() > 1 {
            per = self.target.FloatRegsPerDouble()
        }
        return self.placeFloats(len(pass.Regs) * per, per, slots, align, true)
    }

    /* count the pieces of each register class */
    nf := 0
    for _, t := range pass.Regs {
        if t.IsFloat() {
            nf++
        }
    }

    /* mixed structs must fit entirely */
    if nf != 0 {
        return self.placeMixed(pass.Regs, nf, slots, align)
    }

    /* integer pieces, possibly split with the stack */
    n := len(pass.Regs)
    i := alignUp(self.cur.ints, align)
    max := self.target.MaxIntArgRegs()
    if i + n <= max || !self.target.SplitStructs() || i >= max || info.StackSlots() != 0 {
        return self.placeInts(n, slots, align, true)
    }

    /* the first pieces in the last registers, the rest on the stack */
    p := placement {
        reg   : self.target.IntArgReg(i),
        regs  : max - i,
        slots : n - (max - i),
        align : align,
        split : true,
    }

    /* a second register when there is one */
    if self.cur.ints = max; p.regs > 1 {
        p.other = self.target.IntArgReg(i + 1)
    }
    return p
}

// placeMixed assigns every piece the next register of its class.
func (self *Context) placeMixed(regs []ir.Type, nf int, slots int, align int) placement {
    ni := len(regs) - nf
    if self.cur.ints + ni > self.target.MaxIntArgRegs() || self.cur.flts + nf > self.target.MaxFloatArgRegs() {
        return self.placeStack(slots, align, true)
    }

    /* one register per piece */
    rv := make([]abi.Reg, len(regs))
    for i, t := range regs {
        if t.IsFloat() {
            rv[i] = self.target.FloatArgReg(self.cur.flts)
            self.cur.flts++
        } else {
            rv[i] = self.target.IntArgReg(self.cur.ints)
            self.cur.ints++
        }
    }

    /* the first two registers are recorded */
    p := placement { reg: rv[0], regs: len(regs), align: align }
    if len(rv) > 1 {
        p.other = rv[1]
    }
    return p
}

// decomposeStructArgs rewrites every struct passed in several registers
// into a list of register sized pieces.
func (self *Context) decomposeStructArgs(info *args.Info) {
    call := info.Call()
    for _, e := range info.Entries() {
        if e.Type != ir.Struct || !e.InReg() || e.IsNonStandard {
            continue
        }

        /* find the current value */
        var node ir.Expr
        if e.IsLate() {
            node = call.Late[e.LateIndex]
        } else {
            node = call.Get(e.Parent)
        }

        /* already decomposed */
        if _, ok := node.(*ir.FieldList); ok {
            continue
        }

        /* build the pieces */
        old := self.dump(node)
        fl := self.rewritten("fieldlist", old, self.fieldList(node, e.Class))

        /* put it back in place */
        if e.Node = fl; e.IsLate() {
            call.Late[e.LateIndex] = fl
        } else {
            call.Set(e.Parent, fl)
        }
    }
    ir.Refresh(call)
}

func (self *Context) fieldList(node ir.Expr, cls *ir.Class) *ir.FieldList {
    pass := self.target.StructPassing(cls)
    items := make([]ir.FieldItem, len(pass.Regs))

    /* piece offsets */
    for i, t := range pass.Regs {
        if pass.HFA {
            items[i] = ir.FieldItem { Off: i * t.Size(self.ptr), Ty: t }
        } else {
            items[i] = ir.FieldItem { Off: i * self.ptr, Ty: t }
        }
    }

    /* read every piece */
    switch v := node.(type) {
        case *ir.Local : self.localPieces(v.Num, items)
        case *ir.Indir : self.memoryPieces(v.Addr, items)
        default        : panic(utils.EInternal("cannot decompose struct argument %s", node))
    }
    return ir.NewFieldList(cls, items...)
}

// localPieces reads the pieces from promoted fields when all of them
// match, and from the local's memory otherwise.
func (self *Context) localPieces(num int, items []ir.FieldItem) {
    lv := self.m.Local(num)
    fv := make([]int, len(items))

    /* try the promoted fields */
    for i, it := range items {
        if fv[i] = self.promotedField(lv, it.Off, it.Ty); fv[i] < 0 {
            fv = nil
            break
        }
    }

    /* promoted fields */
    if fv != nil {
        for i := range items {
            items[i].X = ir.NewLocal(fv[i], items[i].Ty)
        }
        return
    }

    /* the local must live in memory */
    lv.DoNotEnregister = true
    for i := range items {
        items[i].X = ir.NewLocalField(num, items[i].Off, items[i].Ty)
    }
}

func (self *Context) memoryPieces(addr ir.Expr, items []ir.FieldItem) {
    for i := range items {
        if i == 0 {
            items[i].X = ir.NewIndir(items[i].Ty, offsetOf(addr, items[i].Off))
        } else {
            items[i].X = ir.NewIndir(items[i].Ty, offsetOf(ir.Clone(addr), items[i].Off))
        }
    }
}

// recordStackSize sizes the outgoing argument area, or remembers the stack
// level for push style conventions.
func (self *Context) recordStackSize(info *args.Info) {
    if !self.target.FixedOutgoingArgArea() {
        info.RecordStkLevel(info.StackSlots())
    } else if size := info.StackSlots() * self.target.StackSlotSize(); size > self.m.OutgoingArgSpace {
        self.m.OutgoingArgSpace = size
    }
}

func alignUp(v int, align int) int {
    if align <= 1 {
        return v
    } else {
        return (v + align - 1) / align * align
    }
}
