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
    `testing`

    `github.com/cloudwego/morph/internal/utils`
    `github.com/cloudwego/morph/ir`
    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
)

func TestABI_Registers(t *testing.T) {
    sysv := SysVAMD64()
    require.Equal(t, 6, sysv.MaxIntArgRegs())
    require.Equal(t, 8, sysv.MaxFloatArgRegs())
    assert.Equal(t, "%rdi", sysv.IntArgReg(0).String())
    assert.Equal(t, "%xmm7", sysv.FloatArgReg(7).String())
    win := WinAMD64()
    require.Equal(t, 4, win.MaxIntArgRegs())
    assert.True(t, win.SharedArgCursor())
    assert.Equal(t, "%rcx", win.IntArgReg(0).String())
    a64 := ARM64()
    assert.Equal(t, "%X0", a64.IntArgReg(0).String())
    assert.Equal(t, "%D7", a64.FloatArgReg(7).String())
    a32 := ARM32()
    assert.Equal(t, "%R3", a32.IntArgReg(3).String())
    assert.Equal(t, 16, a32.MaxFloatArgRegs())
    x86 := X86()
    assert.Equal(t, "%ECX", x86.IntArgReg(0).String())
    assert.Equal(t, "%EDX", x86.IntArgReg(1).String())
    assert.False(t, x86.FixedOutgoingArgArea())
    assert.Panics(t, func() { x86.IntArgReg(2) })
}

func TestABI_NonStandard(t *testing.T) {
    r, ok := ARM64().NonStandardReg(ReturnBuffer)
    require.True(t, ok)
    assert.Equal(t, "X8", r.Name)
    assert.Equal(t, -1, r.Index)
    _, ok = SysVAMD64().NonStandardReg(ReturnBuffer)
    assert.False(t, ok)
    _, ok = X86().NonStandardReg(PInvokeCookie)
    assert.False(t, ok)
}

func TestABI_SysVClassify(t *testing.T) {
    d := SysVAMD64()
    i8 := ir.NewClass("I8", 8, ir.Field { Name: "a", Type: ir.Int64 })
    p2 := ir.NewClass("P2", 8, ir.Field { Name: "a", Type: ir.Ref }, ir.Field { Name: "b", Type: ir.Int64 })
    fi := ir.NewClass("FI", 8, ir.Field { Name: "a", Type: ir.Float64 }, ir.Field { Name: "b", Type: ir.Int32 })
    ff := ir.NewClass("FF", 8, ir.Field { Name: "a", Type: ir.Float32 }, ir.Field { Name: "b", Type: ir.Float32 })
    b3 := ir.NewClass("B3", 8, ir.Field { Name: "a", Type: ir.Int8 }, ir.Field { Name: "b", Type: ir.Int8 }, ir.Field { Name: "c", Type: ir.Int8 })
    big := ir.NewClass("Big", 8, ir.Field { Name: "a", Type: ir.Int64 }, ir.Field { Name: "b", Type: ir.Int64 }, ir.Field { Name: "c", Type: ir.Int64 })
    assert.Equal(t, Passing { Kind: PassPrimitive, Prim: ir.IntPtr }, d.StructPassing(i8))
    assert.Equal(t, Passing { Kind: PassMultiReg, Regs: []ir.Type { ir.Ref, ir.IntPtr } }, d.StructPassing(p2))
    assert.Equal(t, Passing { Kind: PassMultiReg, Regs: []ir.Type { ir.Float64, ir.IntPtr } }, d.StructPassing(fi))
    assert.Equal(t, Passing { Kind: PassPrimitive, Prim: ir.Float64 }, d.StructPassing(ff))
    assert.Equal(t, Passing { Kind: PassMultiReg, Regs: []ir.Type { ir.Int64 } }, d.StructPassing(b3))
    assert.Equal(t, Passing { Kind: PassStack, Slots: 3 }, d.StructPassing(big))
    assert.True(t, d.PartialReadNeedsTemp(3))
    assert.False(t, d.PartialReadNeedsTemp(4))
}

func TestABI_WinClassify(t *testing.T) {
    d := WinAMD64()
    s4 := ir.NewClass("S4", 8, ir.Field { Name: "a", Type: ir.Float32 })
    s12 := ir.NewClass("S12", 8, ir.Field { Name: "a", Type: ir.Int32 }, ir.Field { Name: "b", Type: ir.Int32 }, ir.Field { Name: "c", Type: ir.Int32 })
    assert.Equal(t, Passing { Kind: PassPrimitive, Prim: ir.Int32 }, d.StructPassing(s4))
    assert.Equal(t, PassByRef, d.StructPassing(s12).Kind)
}

func TestABI_HFA(t *testing.T) {
    d := ARM64()
    h3 := ir.NewClass("H3", 8, ir.Field { Name: "x", Type: ir.Float32 }, ir.Field { Name: "y", Type: ir.Float32 }, ir.Field { Name: "z", Type: ir.Float32 })
    h5 := ir.NewClass("H5", 8,
        ir.Field { Name: "a", Type: ir.Float64 },
        ir.Field { Name: "b", Type: ir.Float64 },
        ir.Field { Name: "c", Type: ir.Float64 },
        ir.Field { Name: "d", Type: ir.Float64 },
        ir.Field { Name: "e", Type: ir.Float64 },
    )
    mix := ir.NewClass("Mix", 8, ir.Field { Name: "a", Type: ir.Float32 }, ir.Field { Name: "b", Type: ir.Float64 })
    assert.Equal(t, ir.Float32, d.HFA(h3))
    assert.Equal(t, ir.Void, d.HFA(h5))
    assert.Equal(t, ir.Void, d.HFA(mix))
    assert.Equal(t, Passing { Kind: PassMultiReg, Regs: []ir.Type { ir.Float32, ir.Float32, ir.Float32 }, HFA: true }, d.StructPassing(h3))
    assert.Equal(t, PassByRef, d.StructPassing(h5).Kind)
    assert.Equal(t, ir.Void, SysVAMD64().HFA(h3))
}

func TestABI_ARM32(t *testing.T) {
    d := ARM32()
    l := ir.NewClass("L", 4, ir.Field { Name: "a", Type: ir.Int64 })
    s20 := ir.NewClass("S20", 4,
        ir.Field { Name: "a", Type: ir.Int32 },
        ir.Field { Name: "b", Type: ir.Int32 },
        ir.Field { Name: "c", Type: ir.Ref },
        ir.Field { Name: "d", Type: ir.Int32 },
        ir.Field { Name: "e", Type: ir.Int16 },
    )
    assert.Equal(t, 2, d.ArgAlignment(ir.Int64, nil))
    assert.Equal(t, 2, d.ArgAlignment(ir.Float64, nil))
    assert.Equal(t, 1, d.ArgAlignment(ir.Int32, nil))
    assert.Equal(t, 2, d.ArgAlignment(ir.Struct, l))
    assert.True(t, d.IsRegArgType(ir.Int64))
    assert.False(t, X86().IsRegArgType(ir.Int64))
    assert.False(t, X86().IsRegArgType(ir.Float32))
    ps := d.StructPassing(s20)
    require.Equal(t, PassMultiReg, ps.Kind)
    assert.Equal(t, []ir.Type { ir.IntPtr, ir.IntPtr, ir.Ref, ir.IntPtr, ir.IntPtr }, ps.Regs)
}

func TestABI_BadClass(t *testing.T) {
    d := SysVAMD64()
    wrong := ir.NewClass("W", 4, ir.Field { Name: "a", Type: ir.Int32 })
    neg := ir.NewExplicitClass("N", -4, 8)
    for _, cls := range []*ir.Class { nil, wrong, neg } {
        func() {
            defer func() {
                e, ok := recover().(utils.CompileError)
                require.True(t, ok)
                assert.Equal(t, utils.KindBadCode, e.Kind)
            }()
            d.StructPassing(cls)
        }()
    }
}

func TestABI_Features(t *testing.T) {
    f := X86().Features()
    assert.True(t, f.CompareNeedsBranch(ir.Float64))
    assert.True(t, f.CompareNeedsBranch(ir.Int64))
    assert.False(t, f.CompareNeedsBranch(ir.Int32))
    assert.False(t, SysVAMD64().Features().CompareNeedsBranch(ir.Int64))
    d := WithFeatures(SysVAMD64(), Features { Target64: true })
    assert.False(t, d.Features().HasRemainder)
    assert.True(t, SysVAMD64().Features().HasRemainder)
    assert.NotNil(t, Host())
    assert.Equal(t, "arm32", Lookup("arm32").Name())
    assert.Nil(t, Lookup("mips"))
}
