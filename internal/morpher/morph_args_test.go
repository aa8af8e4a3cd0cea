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
    `testing`

    `github.com/cloudwego/morph/abi`
    `github.com/cloudwego/morph/args`
    `github.com/cloudwego/morph/internal/emu`
    `github.com/cloudwego/morph/ir`
    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
)

func morphedCall(t *testing.T, ctx *Context, call *ir.Call) (*ir.Call, *args.Info) {
    ret, ok := ctx.Morph(call).(*ir.Call)
    require.True(t, ok)
    info, ok := ret.Info.(*args.Info)
    require.True(t, ok, "call has no argument table")
    return ret, info
}

// remorph morphs a call a second time and checks nothing changed.
func remorph(t *testing.T, ctx *Context, call *ir.Call) {
    want := ir.Clone(call)
    info := call.Info.(*args.Info)
    regs := make([]abi.Reg, info.ArgCount())
    for i := range regs {
        regs[i] = info.EntryFor(i).Reg
    }
    again, ok := ctx.Morph(call).(*ir.Call)
    require.True(t, ok)
    require.True(t, ir.Equal(want, again), "%s\n%s", want, again)
    for i := range regs {
        assert.Equal(t, regs[i], info.EntryFor(i).Reg, "argument %d", i)
    }
}

func events(vm *emu.Emulator) []string {
    ret := make([]string, 0, len(vm.Trace))
    for _, ev := range vm.Trace {
        if ev.Kind == emu.EvCall {
            ret = append(ret, "call " + ev.Name)
        } else {
            ret = append(ret, "store")
        }
    }
    return ret
}

func TestArgs_NestedCallFirst(t *testing.T) {
    d := abi.SysVAMD64()
    ctx, m := newTestContext(d, "scenario")
    x, lx := local(m, "x", ir.Int32)
    call, info := morphedCall(t, ctx, ir.NewCall("g", ir.Void, ir.NewCall("f", ir.Int32), i32(5), lx))
    require.Equal(t, 3, info.ArgCount())
    assert.True(t, info.EntryFor(0).NeedTmp)
    assert.False(t, info.EntryFor(1).NeedTmp)
    assert.False(t, info.EntryFor(2).NeedTmp)
    for i := 0; i < 3; i++ {
        assert.Equal(t, d.IntArgReg(i), info.EntryFor(i).Reg)
    }

    /* the constant is evaluated last */
    ev := info.Entries()
    assert.Equal(t, []int { 0, 2, 1 }, []int { ev[0].ArgNum, ev[1].ArgNum, ev[2].ArgNum })
    assert.IsType(t, (*ir.Assign)(nil), call.Args[0])
    require.Len(t, call.Late, 3)

    /* the call to g happens after the temporary is assigned */
    vm := emu.New(m)
    vm.SetLocal(x, emu.Int(11))
    vm.Funcs["f"] = func(*emu.Emulator, []emu.Value) emu.Value { return emu.Int(7) }
    _, exc := vm.Run(call)
    require.Nil(t, exc)
    assert.Equal(t, []string { "call f", "store", "call g" }, events(vm))
    assert.Equal(t, []emu.Value { emu.Int(7), emu.Int(5), emu.Int(11) }, vm.Trace[2].Args)
    remorph(t, ctx, call)
}

func TestArgs_PushedStackArgument(t *testing.T) {
    d := abi.X86()
    ctx, m := newTestContext(d, "pushed")
    _, lx := local(m, "x", ir.Int32)
    call, info := morphedCall(t, ctx, ir.NewCall("g", ir.Void, ir.NewCall("f", ir.Int32), i32(5), lx))
    assert.Equal(t, d.IntArgReg(0), info.EntryFor(0).Reg)
    assert.Equal(t, d.IntArgReg(1), info.EntryFor(1).Reg)
    assert.True(t, info.EntryFor(2).Reg.IsStack())
    assert.Equal(t, 0, info.EntryFor(2).SlotNum)
    assert.Equal(t, 1, info.RetrieveStkLevel())
    assert.Equal(t, 0, m.OutgoingArgSpace)

    /* pushed arguments stay in place */
    assert.False(t, info.EntryFor(2).IsLate())
    remorph(t, ctx, call)
}

func TestArgs_LongsOnX86GoToTheStack(t *testing.T) {
    d := abi.X86()
    ctx, m := newTestContext(d, "longs")
    _, la := local(m, "a", ir.Int64)
    _, lb := local(m, "b", ir.Int32)
    _, info := morphedCall(t, ctx, ir.NewCall("g", ir.Void, la, lb))
    assert.True(t, info.EntryFor(0).Reg.IsStack())
    assert.Equal(t, 2, info.EntryFor(0).SlotCount)
    assert.Equal(t, d.IntArgReg(0), info.EntryFor(1).Reg)
}

func TestArgs_EmbeddedAssignmentKeepsOrder(t *testing.T) {
    ctx, m := newTestContext(abi.SysVAMD64(), "order")
    x, _ := local(m, "x", ir.Int32)
    first := ir.NewComma(ir.NewAssign(ir.NewLocal(x, ir.Int32), i32(5)), ir.NewLocal(x, ir.Int32))
    call, info := morphedCall(t, ctx, ir.NewCall("g", ir.Void, first, ir.NewCall("f", ir.Int32)))
    assert.True(t, info.EntryFor(0).NeedTmp)
    assert.True(t, info.EntryFor(1).NeedTmp)

    /* x is stored before f runs */
    vm := emu.New(m)
    vm.Funcs["f"] = func(e *emu.Emulator, _ []emu.Value) emu.Value {
        return emu.Int(e.GetLocal(x).I + 1)
    }
    _, exc := vm.Run(call)
    require.Nil(t, exc)
    ev := events(vm)
    require.Equal(t, "call g", ev[len(ev) - 1])
    assert.Equal(t, "store", ev[0])
    assert.Equal(t, []emu.Value { emu.Int(5), emu.Int(6) }, vm.Trace[len(vm.Trace) - 1].Args)
}

func TestArgs_ExposedLocalReadBeforeCall(t *testing.T) {
    ctx, m := newTestContext(abi.SysVAMD64(), "exposed")
    x, lx := local(m, "x", ir.Int32)
    m.Local(x).AddrExposed = true
    f := ir.NewCall("f", ir.Int32, ir.NewAddr(ir.NewLocal(x, ir.Int32)))
    call, info := morphedCall(t, ctx, ir.NewCall("g", ir.Void, lx, f))
    assert.True(t, ir.HasEffects(lx, ir.EffGlobRef))
    assert.True(t, info.EntryFor(0).NeedTmp)
    assert.True(t, info.EntryFor(1).NeedTmp)

    /* f stores through the address, g still sees the old value */
    vm := emu.New(m)
    vm.SetLocal(x, emu.Int(1))
    vm.Funcs["f"] = func(e *emu.Emulator, argv []emu.Value) emu.Value {
        e.Store(argv[0].I, ir.Int32, emu.Int(99))
        return emu.Int(2)
    }
    _, exc := vm.Run(call)
    require.Nil(t, exc)
    require.Equal(t, "call g", events(vm)[len(vm.Trace) - 1])
    assert.Equal(t, []emu.Value { emu.Int(1), emu.Int(2) }, vm.Trace[len(vm.Trace) - 1].Args)
    assert.Equal(t, int64(99), vm.GetLocal(x).I)
    remorph(t, ctx, call)
}

func TestArgs_AddressOfExposedLocalIsNotARead(t *testing.T) {
    ctx, m := newTestContext(abi.SysVAMD64(), "exposed")
    x, _ := local(m, "x", ir.Int32)
    m.Local(x).AddrExposed = true
    addr := ctx.Morph(ir.NewAddr(ir.NewLocal(x, ir.Int32)))
    assert.False(t, ir.HasEffects(addr, ir.EffAll))
    y, _ := local(m, "y", ir.Int32)
    assert.False(t, ir.HasEffects(ctx.Morph(ir.NewLocal(y, ir.Int32)), ir.EffAll))
}

func TestArgs_NestedCallsHaveTheirOwnCursors(t *testing.T) {
    d := abi.SysVAMD64()
    ctx, _ := newTestContext(d, "nested")
    inner := ir.NewCall("h", ir.Int32, i32(1), i32(2))
    _, info := morphedCall(t, ctx, ir.NewCall("g", ir.Void, i32(0), inner, i32(3)))
    assert.Equal(t, d.IntArgReg(1), info.EntryFor(1).Reg)
    assert.Equal(t, d.IntArgReg(2), info.EntryFor(2).Reg)
    hi := inner.Info.(*args.Info)
    assert.Equal(t, d.IntArgReg(0), hi.EntryFor(0).Reg)
    assert.Equal(t, d.IntArgReg(1), hi.EntryFor(1).Reg)
}

func TestArgs_SharedCursor(t *testing.T) {
    d := abi.WinAMD64()
    ctx, m := newTestContext(d, "shared")
    _, la := local(m, "a", ir.Int32)
    _, lb := local(m, "b", ir.Float64)
    _, lc := local(m, "c", ir.Int64)
    _, info := morphedCall(t, ctx, ir.NewCall("g", ir.Void, la, lb, lc, ir.NewFloat(ir.Float32, 1), i32(9)))
    assert.Equal(t, d.IntArgReg(0), info.EntryFor(0).Reg)
    assert.Equal(t, d.FloatArgReg(1), info.EntryFor(1).Reg)
    assert.Equal(t, d.IntArgReg(2), info.EntryFor(2).Reg)
    assert.Equal(t, d.FloatArgReg(3), info.EntryFor(3).Reg)
    assert.True(t, info.EntryFor(4).Reg.IsStack())
    assert.Equal(t, 8, m.OutgoingArgSpace)
}

func TestArgs_FloatBackFill(t *testing.T) {
    d := abi.ARM32()
    ctx, m := newTestContext(d, "backfill")
    _, la := local(m, "a", ir.Float32)
    _, lb := local(m, "b", ir.Float64)
    _, lc := local(m, "c", ir.Float32)
    call, info := morphedCall(t, ctx, ir.NewCall("g", ir.Void, la, lb, lc))
    assert.Equal(t, d.FloatArgReg(0), info.EntryFor(0).Reg)
    assert.Equal(t, d.FloatArgReg(2), info.EntryFor(1).Reg)
    assert.Equal(t, 2, info.EntryFor(1).RegCount)
    assert.False(t, info.EntryFor(1).IsBackFilled)
    assert.Equal(t, d.FloatArgReg(1), info.EntryFor(2).Reg)
    assert.True(t, info.EntryFor(2).IsBackFilled)
    remorph(t, ctx, call)
}

func TestArgs_LongAlignment(t *testing.T) {
    d := abi.ARM32()
    ctx, m := newTestContext(d, "align")
    _, la := local(m, "a", ir.Int32)
    _, lb := local(m, "b", ir.Int64)
    _, lc := local(m, "c", ir.Int64)
    call, info := morphedCall(t, ctx, ir.NewCall("g", ir.Void, la, lb, lc))
    assert.Equal(t, d.IntArgReg(0), info.EntryFor(0).Reg)
    assert.Equal(t, d.IntArgReg(2), info.EntryFor(1).Reg)
    assert.Equal(t, d.IntArgReg(3), info.EntryFor(1).OtherReg)
    assert.Equal(t, 2, info.EntryFor(1).RegCount)
    assert.True(t, info.EntryFor(2).Reg.IsStack())
    assert.Equal(t, 2, info.EntryFor(2).SlotCount)
    assert.Equal(t, 8, m.OutgoingArgSpace)
    remorph(t, ctx, call)
}

func TestArgs_SplitStruct(t *testing.T) {
    d := abi.ARM32()
    ctx, m := newTestContext(d, "split")
    cls := ir.NewClass("quad", 4,
        ir.Field { Name: "a", Type: ir.Int32 },
        ir.Field { Name: "b", Type: ir.Int32 },
        ir.Field { Name: "c", Type: ir.Int32 },
        ir.Field { Name: "d", Type: ir.Int32 },
    )
    s := m.AddLocal("s", ir.Struct, cls)
    call, info := morphedCall(t, ctx, ir.NewCall("g", ir.Void, i32(1), ir.NewLocal(s, ir.Struct)))
    e := info.EntryFor(1)
    assert.True(t, e.IsSplit)
    assert.True(t, e.IsStruct)
    assert.Equal(t, d.IntArgReg(1), e.Reg)
    assert.Equal(t, 3, e.RegCount)
    assert.Equal(t, 1, e.SlotCount)
    assert.Equal(t, 0, e.SlotNum)

    /* the struct is passed piecewise from memory */
    fl, ok := e.Node.(*ir.FieldList)
    require.True(t, ok, e.Node.String())
    require.Len(t, fl.Items, 4)
    assert.Equal(t, 12, fl.Items[3].Off)
    assert.True(t, m.Local(s).DoNotEnregister)
    remorph(t, ctx, call)
}

func TestArgs_StructAfterFullRegisters(t *testing.T) {
    d := abi.ARM32()
    ctx, m := newTestContext(d, "full")
    cls := ir.NewClass("triple", 4,
        ir.Field { Name: "a", Type: ir.Int32 },
        ir.Field { Name: "b", Type: ir.Int32 },
        ir.Field { Name: "c", Type: ir.Int32 },
    )
    s := m.AddLocal("s", ir.Struct, cls)
    _, la := local(m, "a", ir.Int64)
    _, lb := local(m, "b", ir.Int64)
    _, info := morphedCall(t, ctx, ir.NewCall("g", ir.Void, i32(1), la, lb, ir.NewLocal(s, ir.Struct)))
    assert.True(t, info.EntryFor(2).Reg.IsStack())
    assert.True(t, info.EntryFor(3).Reg.IsStack())
    assert.False(t, info.EntryFor(3).IsSplit)
    assert.Equal(t, 2, info.EntryFor(3).SlotNum)
    assert.Equal(t, 3, info.EntryFor(3).SlotCount)
    assert.Equal(t, d.IntArgReg(2), info.EntryFor(1).Reg)
}

func TestArgs_MixedStruct(t *testing.T) {
    d := abi.SysVAMD64()
    ctx, m := newTestContext(d, "mixed")
    cls := ir.NewClass("mixed", 8, ir.Field { Name: "n", Type: ir.Int64 }, ir.Field { Name: "f", Type: ir.Float64 })
    s := m.AddLocal("s", ir.Struct, cls)
    fv := m.Promote(s)
    call, info := morphedCall(t, ctx, ir.NewCall("g", ir.Void, ir.NewLocal(s, ir.Struct)))
    e := info.EntryFor(0)
    assert.Equal(t, d.IntArgReg(0), e.Reg)
    assert.Equal(t, d.FloatArgReg(0), e.OtherReg)
    assert.Equal(t, 2, e.RegCount)

    /* promoted fields are passed directly */
    fl, ok := e.Node.(*ir.FieldList)
    require.True(t, ok, e.Node.String())
    require.Len(t, fl.Items, 2)
    assert.Equal(t, fv[1], fl.Items[1].X.(*ir.Local).Num)
    assert.False(t, m.Local(s).DoNotEnregister)

    /* the callee sees the struct bytes */
    vm := emu.New(m)
    vm.SetLocal(fv[0], emu.Int(-3))
    vm.SetLocal(fv[1], emu.Float(0.5))
    want := vm.GetLocal(s).B
    _, exc := vm.Run(call)
    require.Nil(t, exc)
    assert.Equal(t, want, vm.Trace[len(vm.Trace) - 1].Args[0].B)
    remorph(t, ctx, call)
}

func TestArgs_StructFromCallIsSpilled(t *testing.T) {
    d := abi.ARM64()
    ctx, _ := newTestContext(d, "spill")
    cls := ir.NewClass("pair", 8, ir.Field { Name: "a", Type: ir.Int64 }, ir.Field { Name: "b", Type: ir.Ref })
    src := ir.NewCall("make", ir.Struct)
    src.RetClass = cls
    call, info := morphedCall(t, ctx, ir.NewCall("g", ir.Void, src))
    e := info.EntryFor(0)
    assert.True(t, e.IsTemp)
    fl, ok := e.Node.(*ir.FieldList)
    require.True(t, ok, e.Node.String())
    assert.Equal(t, ir.Ref, fl.Items[1].Ty)
    assert.IsType(t, (*ir.LocalField)(nil), fl.Items[1].X)
    assert.Equal(t, 1, countOf(call.Args[0], isCall))
}

func TestArgs_HomogeneousFloats(t *testing.T) {
    d := abi.ARM64()
    ctx, m := newTestContext(d, "hfa")
    cls := ir.NewClass("vec3", 8,
        ir.Field { Name: "x", Type: ir.Float32 },
        ir.Field { Name: "y", Type: ir.Float32 },
        ir.Field { Name: "z", Type: ir.Float32 },
    )
    s := m.AddLocal("s", ir.Struct, cls)
    p := m.AddLocal("p", ir.ByRef, nil)
    call, info := morphedCall(t, ctx, ir.NewCall("g", ir.Void, ir.NewLocal(s, ir.Struct), ir.NewObj(cls, ir.NewLocal(p, ir.ByRef))))
    assert.True(t, info.EntryFor(0).IsHfaReg)
    assert.Equal(t, d.FloatArgReg(0), info.EntryFor(0).Reg)
    assert.Equal(t, 3, info.EntryFor(0).RegCount)
    assert.Equal(t, d.FloatArgReg(3), info.EntryFor(1).Reg)

    /* pieces read from memory */
    fl := info.EntryFor(1).Node.(*ir.FieldList)
    require.Len(t, fl.Items, 3)
    assert.Equal(t, 8, fl.Items[2].Off)
    assert.IsType(t, (*ir.Indir)(nil), fl.Items[2].X)
    remorph(t, ctx, call)
}

func TestArgs_HomogeneousFloatsOnTheStack(t *testing.T) {
    d := abi.ARM64()
    ctx, m := newTestContext(d, "hfastack")
    cls := ir.NewClass("vec4", 8,
        ir.Field { Name: "x", Type: ir.Float64 },
        ir.Field { Name: "y", Type: ir.Float64 },
        ir.Field { Name: "z", Type: ir.Float64 },
        ir.Field { Name: "w", Type: ir.Float64 },
    )
    a := m.AddLocal("a", ir.Struct, cls)
    b := m.AddLocal("b", ir.Struct, cls)
    c := m.AddLocal("c", ir.Struct, cls)
    _, lf := local(m, "f", ir.Float64)
    _, li := local(m, "i", ir.Int32)
    _, info := morphedCall(t, ctx, ir.NewCall("g", ir.Void,
        ir.NewLocal(a, ir.Struct),
        ir.NewLocal(b, ir.Struct),
        ir.NewLocal(c, ir.Struct),
        lf,
        li,
    ))
    assert.Equal(t, d.FloatArgReg(0), info.EntryFor(0).Reg)
    assert.Equal(t, d.FloatArgReg(4), info.EntryFor(1).Reg)

    /* once a float aggregate overflows no float register is used */
    assert.True(t, info.EntryFor(2).Reg.IsStack())
    assert.Equal(t, 4, info.EntryFor(2).SlotCount)
    assert.True(t, info.EntryFor(3).Reg.IsStack())
    assert.Equal(t, 4, info.EntryFor(3).SlotNum)
    assert.Equal(t, d.IntArgReg(0), info.EntryFor(4).Reg)
}

func TestArgs_LargeStructOnTheStack(t *testing.T) {
    d := abi.SysVAMD64()
    ctx, m := newTestContext(d, "large")
    cls := ir.NewClass("triple", 8,
        ir.Field { Name: "a", Type: ir.Int64 },
        ir.Field { Name: "b", Type: ir.Int64 },
        ir.Field { Name: "c", Type: ir.Int64 },
    )
    s := m.AddLocal("s", ir.Struct, cls)
    _, info := morphedCall(t, ctx, ir.NewCall("g", ir.Void, ir.NewLocal(s, ir.Struct), i32(1)))
    assert.True(t, info.EntryFor(0).Reg.IsStack())
    assert.Equal(t, 3, info.EntryFor(0).SlotCount)
    assert.Equal(t, d.IntArgReg(0), info.EntryFor(1).Reg)
    assert.Equal(t, 24, m.OutgoingArgSpace)
}

func TestArgs_StructCopy(t *testing.T) {
    d := abi.WinAMD64()
    ctx, m := newTestContext(d, "copy")
    cls := ir.NewClass("pair", 8, ir.Field { Name: "a", Type: ir.Int64 }, ir.Field { Name: "b", Type: ir.Int64 })
    s := m.AddLocal("s", ir.Struct, cls)
    call, info := morphedCall(t, ctx, ir.NewCall("g", ir.Void, ir.NewLocal(s, ir.Struct)))
    e := info.EntryFor(0)
    assert.True(t, e.PassedByRef)
    assert.True(t, e.IsTemp)
    assert.Equal(t, d.IntArgReg(0), e.Reg)
    assert.True(t, m.Local(e.TmpNum).Temp)
    assert.True(t, m.Local(e.TmpNum).AddrExposed)

    /* the callee gets the address of a copy */
    vm := emu.New(m)
    buf := make([]byte, 16)
    buf[0], buf[8] = 42, 43
    vm.SetLocal(s, emu.Value { B: buf })
    var got []int64
    vm.Funcs["g"] = func(e *emu.Emulator, argv []emu.Value) emu.Value {
        got = append(got, argv[0].I, e.Load(argv[0].I, ir.Int64).I, e.Load(argv[0].I + 8, ir.Int64).I)
        return emu.Value{}
    }
    _, exc := vm.Run(call)
    require.Nil(t, exc)
    require.Len(t, got, 3)
    assert.NotEqual(t, vm.LocalAddr(s), got[0])
    assert.Equal(t, []int64 { 42, 43 }, got[1:])
    remorph(t, ctx, call)
}

func TestArgs_SmallStructAsPrimitive(t *testing.T) {
    d := abi.SysVAMD64()
    ctx, m := newTestContext(d, "prim")
    cls := ir.NewClass("pair", 8, ir.Field { Name: "a", Type: ir.Int32 }, ir.Field { Name: "b", Type: ir.Int32 })
    s := m.AddLocal("s", ir.Struct, cls)
    call, info := morphedCall(t, ctx, ir.NewCall("g", ir.Void, ir.NewLocal(s, ir.Struct)))
    e := info.EntryFor(0)
    assert.Equal(t, d.StructPassing(cls).Prim, e.Type)
    assert.True(t, e.IsStruct)
    assert.Same(t, cls, e.Class)

    /* both fields arrive in one register */
    vm := emu.New(m)
    vm.SetLocal(s, emu.Value { B: []byte { 1, 0, 0, 0, 2, 0, 0, 0 } })
    _, exc := vm.Run(call)
    require.Nil(t, exc)
    assert.Equal(t, int64(1 | 2 << 32), vm.Trace[len(vm.Trace) - 1].Args[0].I)
    remorph(t, ctx, call)
}

func TestArgs_VirtualStubCell(t *testing.T) {
    d := abi.SysVAMD64()
    ctx, m := newTestContext(d, "stub")
    _, lx := local(m, "x", ir.Int32)
    src := ir.NewCall("g", ir.Void, lx)
    src.Virtual = true
    src.StubCell = 0x1234
    call, info := morphedCall(t, ctx, src)
    require.Equal(t, 2, info.ArgCount())
    e := info.EntryFor(1)
    r, _ := d.NonStandardReg(abi.VirtualStubCell)
    assert.True(t, e.IsNonStandard)
    assert.Equal(t, r, e.Reg)
    assert.Equal(t, d.IntArgReg(0), info.EntryFor(0).Reg)

    /* the callee does not see the cell */
    vm := emu.New(m)
    _, exc := vm.Run(call)
    require.Nil(t, exc)
    assert.Len(t, vm.Trace[len(vm.Trace) - 1].Args, 1)
    remorph(t, ctx, call)
}

func TestArgs_UnmanagedIndirect(t *testing.T) {
    d := abi.SysVAMD64()
    ctx, m := newTestContext(d, "pinvoke")
    _, fp := local(m, "fp", ir.IntPtr)
    src := ir.NewIndirectCall(fp, ir.Int32, i32(1))
    src.Unmanaged = true
    src.Cookie = 0x99
    call, info := morphedCall(t, ctx, src)
    assert.Nil(t, call.Target)
    require.Equal(t, 3, info.ArgCount())
    cookie, _ := d.NonStandardReg(abi.PInvokeCookie)
    target, _ := d.NonStandardReg(abi.PInvokeTarget)
    assert.Equal(t, cookie, info.EntryFor(1).Reg)
    assert.Equal(t, target, info.EntryFor(2).Reg)
    assert.Equal(t, d.IntArgReg(0), info.EntryFor(0).Reg)
}

func TestArgs_ReturnBuffer(t *testing.T) {
    d := abi.ARM64()
    ctx, m := newTestContext(d, "retbuf")
    _, lp := local(m, "p", ir.ByRef)
    src := ir.NewCall("g", ir.Void, lp, i32(1))
    src.RetBuf = true
    _, info := morphedCall(t, ctx, src)
    r, _ := d.NonStandardReg(abi.ReturnBuffer)
    assert.True(t, info.EntryFor(0).IsNonStandard)
    assert.Equal(t, r, info.EntryFor(0).Reg)
    assert.Equal(t, d.IntArgReg(0), info.EntryFor(1).Reg)
}

func TestArgs_ClonedCallKeepsItsTable(t *testing.T) {
    ctx, m := newTestContext(abi.SysVAMD64(), "clone")
    _, lx := local(m, "x", ir.Int32)
    call, _ := morphedCall(t, ctx, ir.NewCall("g", ir.Void, ir.NewCall("f", ir.Int32), lx))
    dup := ir.Clone(call).(*ir.Call)
    remorph(t, ctx, dup)
    assert.NotSame(t, call.Info, dup.Info)
}
