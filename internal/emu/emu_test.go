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

package emu

import (
    `math`
    `os`
    `testing`

    `github.com/brianvoe/gofakeit/v6`
    `github.com/cloudwego/morph/ir`
    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
)

func TestMain(m *testing.M) {
    gofakeit.Seed(1)
    os.Exit(m.Run())
}

func i32(v int64) *ir.IntConst {
    return ir.NewInt(ir.Int32, v)
}

func i64(v int64) *ir.IntConst {
    return ir.NewInt(ir.Int64, v)
}

func eval(t *testing.T, e ir.Expr) Value {
    m := ir.NewMethod("eval", 8)
    v, exc := New(m).Run(e)
    require.Nil(t, exc)
    return v
}

func TestEmu_Arithmetic(t *testing.T) {
    assert.Equal(t, int64(-2147483648), eval(t, ir.NewBinary(ir.OpAdd, ir.Int32, i32(math.MaxInt32), i32(1))).I)
    assert.Equal(t, int64(-3), eval(t, ir.NewBinary(ir.OpDiv, ir.Int32, i32(-7), i32(2))).I)
    assert.Equal(t, int64(-1), eval(t, ir.NewBinary(ir.OpMod, ir.Int32, i32(-7), i32(2))).I)
    assert.Equal(t, int64(0x7ffffffc), eval(t, ir.NewBinary(ir.OpUDiv, ir.Int32, i32(-7), i32(2))).I)
    assert.Equal(t, int64(-1), eval(t, ir.NewBinary(ir.OpMulHi, ir.Int32, i32(-7), i32(3))).I)
    assert.Equal(t, int64(1), eval(t, ir.NewBinary(ir.OpMulHi, ir.Int64, i64(math.MaxInt64), i64(4))).I)
    assert.Equal(t, int64(-1), eval(t, ir.NewBinary(ir.OpMulHi, ir.Int64, i64(-1), i64(5))).I)
}

func TestEmu_MulHiMatchesWide(t *testing.T) {
    for i := 0; i < 1000; i++ {
        a, b := gofakeit.Int32(), gofakeit.Int32()
        v := eval(t, ir.NewBinary(ir.OpMulHi, ir.Int32, i32(int64(a)), i32(int64(b))))
        require.Equal(t, (int64(a) * int64(b)) >> 32, v.I, "%d * %d", a, b)
    }
}

func TestEmu_ShiftMasking(t *testing.T) {
    assert.Equal(t, int64(2), eval(t, ir.NewBinary(ir.OpLsh, ir.Int32, i32(1), i32(33))).I)
    assert.Equal(t, int64(2), eval(t, ir.NewBinary(ir.OpLsh, ir.Int64, i64(1), i32(65))).I)
    assert.Equal(t, int64(-1), eval(t, ir.NewBinary(ir.OpRsh, ir.Int32, i32(-1), i32(31))).I)
    assert.Equal(t, int64(1), eval(t, ir.NewBinary(ir.OpRsz, ir.Int32, i32(-1), i32(31))).I)
    assert.Equal(t, int64(int32(-0x7fffffff)), eval(t, ir.NewBinary(ir.OpRol, ir.Int32, i32(-0x40000000), i32(1))).I)
    assert.Equal(t, int64(math.MinInt32), eval(t, ir.NewBinary(ir.OpRor, ir.Int32, i32(1), i32(33))).I)
}

func TestEmu_Exceptions(t *testing.T) {
    m := ir.NewMethod("exc", 8)
    e := New(m)
    _, exc := e.Run(ir.NewBinary(ir.OpDiv, ir.Int32, i32(1), i32(0)))
    assert.Equal(t, ErrDivideByZero, exc)
    _, exc = e.Run(ir.NewBinary(ir.OpDiv, ir.Int32, i32(math.MinInt32), i32(-1)))
    assert.Equal(t, ErrArithmetic, exc)
    _, exc = e.Run(ir.NewIndir(ir.Int32, ir.NewInt(ir.Ref, 0)))
    assert.Equal(t, ErrNullRef, exc)
    ovf := ir.NewCast(ir.Int8, i32(200))
    ovf.Overflow = true
    _, exc = e.Run(ovf)
    assert.Equal(t, ErrOverflow, exc)
}

func TestEmu_Casts(t *testing.T) {
    assert.Equal(t, int64(-56), eval(t, ir.NewCast(ir.Int8, i32(200))).I)
    assert.Equal(t, int64(200), eval(t, ir.NewCast(ir.Uint8, i32(200))).I)
    u := ir.NewCast(ir.Int64, i32(-1))
    u.Unsigned = true
    assert.Equal(t, int64(0xffffffff), eval(t, u).I)
    assert.Equal(t, int64(-1), eval(t, ir.NewCast(ir.Int64, i32(-1))).I)
    assert.Equal(t, 3.0, eval(t, ir.NewCast(ir.Float64, i32(3))).F)
    assert.Equal(t, int64(-3), eval(t, ir.NewCast(ir.Int32, ir.NewFloat(ir.Float64, -3.75))).I)
}

func TestEmu_Compare(t *testing.T) {
    lt := ir.NewBinary(ir.OpLt, ir.Int32, i32(-1), i32(1))
    assert.Equal(t, int64(1), eval(t, lt).I)
    ult := ir.NewBinary(ir.OpLt, ir.Int32, i32(-1), i32(1))
    ult.Unsigned = true
    assert.Equal(t, int64(0), eval(t, ult).I)
    nan := ir.NewBinary(ir.OpEq, ir.Int32, ir.NewFloat(ir.Float64, math.NaN()), ir.NewFloat(ir.Float64, 0))
    assert.Equal(t, int64(0), eval(t, nan).I)
    sel := ir.NewSelect(ir.Int32, lt, i32(10), i32(20))
    assert.Equal(t, int64(10), eval(t, sel).I)
}

func TestEmu_LocalsAndTrace(t *testing.T) {
    m := ir.NewMethod("trace", 8)
    a := m.AddLocal("a", ir.Int32, nil)
    e := New(m)
    e.Funcs["f"] = func(_ *Emulator, argv []Value) Value { return Int(argv[0].I * 2) }
    tree := ir.NewComma(
        ir.NewAssign(ir.NewLocal(a, ir.Int32), ir.NewCall("f", ir.Int32, i32(21))),
        ir.NewLocal(a, ir.Int32),
    )
    v, exc := e.Run(tree)
    require.Nil(t, exc)
    assert.Equal(t, int64(42), v.I)
    assert.Equal(t, []string { "f" }, e.Calls())
    require.Len(t, e.Trace, 2)
    assert.Equal(t, EvStore, e.Trace[1].Kind)
    assert.Equal(t, a, e.Trace[1].Local)
}

func TestEmu_InPlaceAssign(t *testing.T) {
    m := ir.NewMethod("inplace", 8)
    a := m.AddLocal("a", ir.Int32, nil)
    e := New(m)
    e.SetLocal(a, Int(5))
    asg := ir.NewAssign(ir.NewLocal(a, ir.Int32), i32(3))
    asg.Op = ir.OpSub
    _, exc := e.Run(asg)
    require.Nil(t, exc)
    assert.Equal(t, int64(2), e.GetLocal(a).I)
}

func TestEmu_PromotedFieldsAlias(t *testing.T) {
    cls := ir.NewClass("pair", 8, ir.Field { Name: "a", Type: ir.Int32 }, ir.Field { Name: "b", Type: ir.Int32 })
    m := ir.NewMethod("alias", 8)
    s := m.AddLocal("s", ir.Struct, cls)
    fv := m.Promote(s)
    e := New(m)
    e.SetLocal(fv[1], Int(7))
    assert.Equal(t, int64(7), e.Load(e.LocalAddr(s) + 4, ir.Int32).I)
    assert.Equal(t, []byte { 0, 0, 0, 0, 7, 0, 0, 0 }, e.GetLocal(s).B)
}

func TestEmu_Arrays(t *testing.T) {
    m := ir.NewMethod("arrays", 8)
    e := New(m)
    arr := e.NewArray(4, 3, 8, 16)
    e.Store(arr + 16 + 8, ir.Int32, Int(99))
    idx := ir.NewArrIndex(ir.Int32, ir.NewInt(ir.Ref, arr), i32(2), 4, 8, 16)
    v, exc := e.Run(idx)
    require.Nil(t, exc)
    assert.Equal(t, int64(99), v.I)
    _, exc = e.Run(ir.NewArrIndex(ir.Int32, ir.NewInt(ir.Ref, arr), i32(3), 4, 8, 16))
    assert.Equal(t, ErrIndex, exc)
    _, exc = e.Run(ir.NewBoundsCheck(i32(-1), ir.NewArrLen(ir.NewInt(ir.Ref, arr), 8)))
    assert.Equal(t, ErrIndex, exc)
}

func TestEmu_BlockOps(t *testing.T) {
    cls := ir.NewClass("blk", 8, ir.Field { Name: "a", Type: ir.Int64 }, ir.Field { Name: "b", Type: ir.Int64 })
    m := ir.NewMethod("blocks", 8)
    x := m.AddLocal("x", ir.Struct, cls)
    y := m.AddLocal("y", ir.Struct, cls)
    e := New(m)
    _, exc := e.Run(ir.NewInitBlock(ir.NewAddr(ir.NewLocal(x, ir.Struct)), i32(0xab), cls))
    require.Nil(t, exc)
    _, exc = e.Run(ir.NewCopyBlock(ir.NewAddr(ir.NewLocal(y, ir.Struct)), ir.NewAddr(ir.NewLocal(x, ir.Struct)), cls))
    require.Nil(t, exc)
    assert.Equal(t, fill(16, 0xab), e.GetLocal(y).B)
}

func TestEmu_TypeHelpers(t *testing.T) {
    a := ir.NewClass("A", 8, ir.Field { Name: "v", Type: ir.Int32 })
    b := ir.NewClass("B", 8, ir.Field { Name: "v", Type: ir.Int32 })
    m := ir.NewMethod("types", 8)
    e := New(m)
    obj := e.NewObject(a)
    typeOf := func(cls *ir.Class) ir.Expr {
        return ir.NewHelperCall(ir.HelperTypeHandleToRuntimeType, ir.Ref, ir.NewHandle(cls))
    }
    getType := ir.NewHelperCall(ir.HelperGetType, ir.Ref, ir.NewInt(ir.Ref, obj))
    assert.Equal(t, int64(1), eval2(t, e, ir.NewBinary(ir.OpEq, ir.Int32, getType, typeOf(a))).I)
    assert.Equal(t, int64(0), eval2(t, e, ir.NewBinary(ir.OpEq, ir.Int32, typeOf(a), typeOf(b))).I)
    assert.Empty(t, e.Calls())
}

func TestEmu_BoxNullable(t *testing.T) {
    cls := ir.NewNullable("int?", 8, ir.Field { Name: "value", Type: ir.Int32 })
    m := ir.NewMethod("box", 8)
    n := m.AddLocal("n", ir.Struct, cls)
    e := New(m)
    box := func() ir.Expr {
        return ir.NewHelperCall(ir.HelperBoxNullable, ir.Ref, ir.NewHandle(cls), ir.NewAddr(ir.NewLocal(n, ir.Struct)))
    }
    assert.Equal(t, int64(0), eval2(t, e, box()).I)
    e.SetLocal(n, Value { B: []byte { 1, 0, 0, 0, 9, 0, 0, 0 } })
    p := eval2(t, e, box()).I
    require.NotZero(t, p)
    assert.Equal(t, int64(9), e.Load(p + 8 + 4, ir.Int32).I)
}

func eval2(t *testing.T, e *Emulator, x ir.Expr) Value {
    v, exc := e.Run(x)
    require.Nil(t, exc)
    return v
}
