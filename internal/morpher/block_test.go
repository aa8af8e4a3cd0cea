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

    `github.com/brianvoe/gofakeit/v6`
    `github.com/cloudwego/morph/abi`
    `github.com/cloudwego/morph/internal/emu`
    `github.com/cloudwego/morph/ir`
    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
)

func isBlockOp(e ir.Expr) bool {
    _, ok := e.(*ir.BlockOp)
    return ok
}

func randomBytes(n int) []byte {
    ret := make([]byte, n)
    for i := range ret {
        ret[i] = gofakeit.Uint8()
    }
    return ret
}

func TestBlock_SmallCopiesAreScalar(t *testing.T) {
    for _, ty := range []ir.Type { ir.Uint8, ir.Int16, ir.Int32, ir.Int64 } {
        ctx, m := newTestContext(abi.SysVAMD64(), "scalar")
        cls := ir.NewClass("small", 8, ir.Field { Name: "v", Type: ty })
        d := m.AddLocal("d", ir.Struct, cls)
        s := m.AddLocal("s", ir.Struct, cls)
        e := ctx.MorphStmt(ir.NewAssign(ir.NewLocal(d, ir.Struct), ir.NewLocal(s, ir.Struct)))
        require.False(t, ir.Any(e, isBlockOp), e.String())
        asg, ok := e.(*ir.Assign)
        require.True(t, ok, e.String())
        assert.Equal(t, cls.Size, asg.Dst.Type().Size(8))

        /* the bytes are copied */
        vm := emu.New(m)
        buf := randomBytes(cls.Size)
        vm.SetLocal(s, emu.Value { B: buf })
        _, exc := vm.Run(e)
        require.Nil(t, exc)
        assert.Equal(t, buf, vm.GetLocal(d).B)
    }
}

func TestBlock_SinglePointerKeepsGCType(t *testing.T) {
    ctx, m := newTestContext(abi.SysVAMD64(), "gcref")
    cls := ir.NewClass("box", 8, ir.Field { Name: "p", Type: ir.Ref })
    d := m.AddLocal("d", ir.Struct, cls)
    s := m.AddLocal("s", ir.Struct, cls)
    e := ctx.MorphStmt(ir.NewAssign(ir.NewLocal(d, ir.Struct), ir.NewLocal(s, ir.Struct)))
    assert.Equal(t, ir.Ref, e.(*ir.Assign).Dst.Type())
}

func TestBlock_PromotedFields(t *testing.T) {
    ctx, m := newTestContext(abi.SysVAMD64(), "promoted")
    cls := ir.NewClass("pair", 8, ir.Field { Name: "a", Type: ir.Int32 }, ir.Field { Name: "b", Type: ir.Float64 })
    d := m.AddLocal("d", ir.Struct, cls)
    s := m.AddLocal("s", ir.Struct, cls)
    df := m.Promote(d)
    sf := m.Promote(s)
    e := ctx.MorphStmt(ir.NewAssign(ir.NewLocal(d, ir.Struct), ir.NewLocal(s, ir.Struct)))
    require.False(t, ir.Any(e, isBlockOp), e.String())
    assert.False(t, m.Local(d).DoNotEnregister)
    assert.False(t, m.Local(s).DoNotEnregister)

    /* field by field */
    vm := emu.New(m)
    vm.SetLocal(sf[0], emu.Int(-5))
    vm.SetLocal(sf[1], emu.Float(2.5))
    _, exc := vm.Run(e)
    require.Nil(t, exc)
    assert.Equal(t, int64(-5), vm.GetLocal(df[0]).I)
    assert.Equal(t, 2.5, vm.GetLocal(df[1]).F)
}

func TestBlock_PromotedFromMemory(t *testing.T) {
    ctx, m := newTestContext(abi.SysVAMD64(), "load")
    cls := ir.NewClass("pair", 8, ir.Field { Name: "a", Type: ir.Int32 }, ir.Field { Name: "b", Type: ir.Int32 }, ir.Field { Name: "c", Type: ir.Int64 })
    d := m.AddLocal("d", ir.Struct, cls)
    p := m.AddLocal("p", ir.ByRef, nil)
    df := m.Promote(d)
    e := ctx.MorphStmt(ir.NewAssign(ir.NewLocal(d, ir.Struct), ir.NewObj(cls, ir.NewLocal(p, ir.ByRef))))
    require.False(t, ir.Any(e, isBlockOp), e.String())

    /* every field is loaded from the source address */
    vm := emu.New(m)
    src := vm.Alloc(cls.Size)
    vm.Store(src, ir.Int32, emu.Int(1))
    vm.Store(src + 4, ir.Int32, emu.Int(2))
    vm.Store(src + 8, ir.Int64, emu.Int(3))
    vm.SetLocal(p, emu.Int(src))
    _, exc := vm.Run(e)
    require.Nil(t, exc)
    assert.Equal(t, int64(1), vm.GetLocal(df[0]).I)
    assert.Equal(t, int64(2), vm.GetLocal(df[1]).I)
    assert.Equal(t, int64(3), vm.GetLocal(df[2]).I)
}

func unionClass() *ir.Class {
    return ir.NewExplicitClass("union", 24, 8,
        ir.Field { Name: "a", Off: 0, Type: ir.Int64 },
        ir.Field { Name: "b", Off: 0, Type: ir.Float64 },
        ir.Field { Name: "c", Off: 8, Type: ir.Int64 },
        ir.Field { Name: "d", Off: 16, Type: ir.Int64 },
    )
}

func TestBlock_CustomLayoutKeepsBlock(t *testing.T) {
    ctx, m := newTestContext(abi.SysVAMD64(), "custom")
    cls := unionClass()
    d := m.AddLocal("d", ir.Struct, cls)
    s := m.AddLocal("s", ir.Struct, cls)
    m.Promote(d)
    e := ctx.MorphStmt(ir.NewAssign(ir.NewLocal(d, ir.Struct), ir.NewLocal(s, ir.Struct)))
    blk, ok := e.(*ir.BlockOp)
    require.True(t, ok, e.String())
    assert.True(t, blk.Unroll)
    assert.True(t, m.Local(d).DoNotEnregister)
    assert.True(t, m.Local(s).DoNotEnregister)
}

func TestBlock_CustomLayoutBothPromoted(t *testing.T) {
    ctx, m := newTestContext(abi.SysVAMD64(), "custom")
    cls := unionClass()
    d := m.AddLocal("d", ir.Struct, cls)
    s := m.AddLocal("s", ir.Struct, cls)
    m.Promote(d)
    m.Promote(s)
    e := ctx.MorphStmt(ir.NewAssign(ir.NewLocal(d, ir.Struct), ir.NewLocal(s, ir.Struct)))
    _, ok := e.(*ir.BlockOp)
    require.True(t, ok, e.String())
    assert.True(t, m.Local(d).DoNotEnregister)
    assert.True(t, m.Local(s).DoNotEnregister)

    /* every byte is copied */
    vm := emu.New(m)
    buf := randomBytes(cls.Size)
    vm.SetLocal(s, emu.Value { B: buf })
    _, exc := vm.Run(e)
    require.Nil(t, exc)
    assert.Equal(t, buf, vm.GetLocal(d).B)
}

func TestBlock_CustomLayoutInit(t *testing.T) {
    ctx, m := newTestContext(abi.SysVAMD64(), "custom")
    cls := unionClass()
    d := m.AddLocal("d", ir.Struct, cls)
    m.Promote(d)
    e := ctx.MorphStmt(ir.NewAssign(ir.NewLocal(d, ir.Struct), i32(0)))
    blk, ok := e.(*ir.BlockOp)
    require.True(t, ok, e.String())
    assert.True(t, blk.Init)
    assert.True(t, m.Local(d).DoNotEnregister)

    /* the whole local is cleared */
    vm := emu.New(m)
    vm.SetLocal(d, emu.Value { B: randomBytes(cls.Size) })
    _, exc := vm.Run(e)
    require.Nil(t, exc)
    assert.Equal(t, make([]byte, cls.Size), vm.GetLocal(d).B)
}

func TestBlock_LargeCopyIsNotUnrolled(t *testing.T) {
    fv := make([]ir.Field, 64)
    for i := range fv {
        fv[i] = ir.Field { Name: gofakeit.LetterN(8), Type: ir.Int64 }
    }
    ctx, m := newTestContext(abi.SysVAMD64(), "large")
    cls := ir.NewClass("large", 8, fv...)
    d := m.AddLocal("d", ir.Struct, cls)
    s := m.AddLocal("s", ir.Struct, cls)
    e := ctx.MorphStmt(ir.NewAssign(ir.NewLocal(d, ir.Struct), ir.NewLocal(s, ir.Struct)))
    blk, ok := e.(*ir.BlockOp)
    require.True(t, ok, e.String())
    assert.False(t, blk.Unroll)
}

func TestBlock_InitPromoted(t *testing.T) {
    ctx, m := newTestContext(abi.SysVAMD64(), "init")
    cls := ir.NewClass("pair", 8, ir.Field { Name: "a", Type: ir.Int32 }, ir.Field { Name: "b", Type: ir.Float32 })
    d := m.AddLocal("d", ir.Struct, cls)
    df := m.Promote(d)
    e := ctx.MorphStmt(ir.NewAssign(ir.NewLocal(d, ir.Struct), i32(0)))
    require.False(t, ir.Any(e, isBlockOp), e.String())
    vm := emu.New(m)
    vm.SetLocal(df[0], emu.Int(9))
    vm.SetLocal(df[1], emu.Float(1.5))
    _, exc := vm.Run(e)
    require.Nil(t, exc)
    assert.Equal(t, int64(0), vm.GetLocal(df[0]).I)
    assert.Equal(t, 0.0, vm.GetLocal(df[1]).F)
}

func TestBlock_SelfCopy(t *testing.T) {
    ctx, m := newTestContext(abi.SysVAMD64(), "self")
    cls := ir.NewClass("triple", 8, ir.Field { Name: "a", Type: ir.Int64 }, ir.Field { Name: "b", Type: ir.Int64 }, ir.Field { Name: "c", Type: ir.Int64 })
    d := m.AddLocal("d", ir.Struct, cls)
    e := ctx.MorphStmt(ir.NewCopyBlock(ir.NewAddr(ir.NewLocal(d, ir.Struct)), ir.NewAddr(ir.NewLocal(d, ir.Struct)), cls))
    n, ok := e.(*ir.Nop)
    require.True(t, ok, e.String())
    assert.Nil(t, n.X)
}
