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
    `fmt`
    `math`

    `github.com/cloudwego/morph/args`
    `github.com/cloudwego/morph/ir`
)

// Handle returns the method table address standing for a class.
func (self *Emulator) Handle(cls *ir.Class) int64 {
    if h, ok := self.hmap[cls]; ok {
        return h
    }
    h := int64(0x10000 + len(self.hmap) * 0x100)
    self.hmap[cls] = h
    self.cmap[h] = cls
    return h
}

// NewObject allocates a heap object of class cls, the method table pointer
// is stored in the first word and the fields follow it.
func (self *Emulator) NewObject(cls *ir.Class) int64 {
    p := self.Alloc(self.M.PtrSize + cls.Size)
    self.Store(p, ir.IntPtr, Int(self.Handle(cls)))
    return p
}

func fill(n int, v byte) []byte {
    buf := make([]byte, n)
    for i := range buf {
        buf[i] = v
    }
    return buf
}

func (self *Emulator) sizeOf(e ir.Expr) int {
    switch v := e.(type) {
        case *ir.Local     : return self.M.Local(v.Num).Class.Size
        case *ir.Indir     : return v.Class.Size
        case *ir.FieldList : return v.Class.Size
        default            : panic(fmt.Sprintf("emu: no struct size for %s", e))
    }
}

func (self *Emulator) evalFieldList(v *ir.FieldList) Value {
    buf := make([]byte, v.Class.Size + 8)
    tmp := self.Alloc(len(buf))

    /* assemble the pieces in scratch memory */
    for _, it := range v.Items {
        self.Store(tmp + int64(it.Off), it.Ty, self.Eval(it.X))
    }

    /* pieces may extend past the class size */
    copy(buf, self.Mem[tmp:])
    return Value { B: buf[:v.Class.Size] }
}

func (self *Emulator) evalCast(v *ir.Cast) Value {
    x := self.Eval(v.X)
    st := v.X.Type()
    unsigned := v.Unsigned || st.IsUnsigned()

    /* float sources */
    if st.IsFloat() {
        if v.Ty.IsFloat() {
            return self.fconv(v.Ty, x.F)
        } else {
            return Int(self.f2i(x.F, v.Ty, v.Overflow))
        }
    }

    /* widen the source by its signedness */
    iv := x.I
    if unsigned && st.Size(self.M.PtrSize) < 8 {
        iv = int64(uint64(iv) & mask(self.width(st)))
    }

    /* integer to float */
    if v.Ty.IsFloat() {
        if unsigned {
            return self.fconv(v.Ty, float64(uint64(iv)))
        } else {
            return self.fconv(v.Ty, float64(iv))
        }
    }

    /* integer to integer */
    if v.Overflow {
        self.checkRange(iv, unsigned, v.Ty)
    }
    return Int(self.norm(iv, v.Ty))
}

func (self *Emulator) checkRange(v int64, unsigned bool, ty ir.Type) {
    w := self.width(ty)
    if ty.IsUnsigned() {
        if !unsigned && v < 0 || uint64(v) > mask(w) {
            panic(ErrOverflow)
        }
    } else {
        if unsigned && v < 0 || v < minOf(w) || w < 64 && v > -minOf(w) - 1 {
            panic(ErrOverflow)
        }
    }
}

func (self *Emulator) fconv(ty ir.Type, v float64) Value {
    if ty == ir.Float32 {
        return Float(float64(float32(v)))
    } else {
        return Float(v)
    }
}

func (self *Emulator) f2i(f float64, ty ir.Type, ovf bool) int64 {
    w := self.width(ty)
    t := math.Trunc(f)

    /* checked conversions throw when out of range */
    if ovf {
        if math.IsNaN(f) {
            panic(ErrOverflow)
        } else if ty.IsUnsigned() && (t < 0 || t >= math.Ldexp(1, w)) {
            panic(ErrOverflow)
        } else if !ty.IsUnsigned() && (t < -math.Ldexp(1, w - 1) || t >= math.Ldexp(1, w - 1)) {
            panic(ErrOverflow)
        }
    }

    /* unchecked conversions saturate */
    switch {
        case math.IsNaN(f)                      : return 0
        case ty.IsUnsigned() && t <= 0          : return 0
        case ty.IsUnsigned() && w == 64         : if t >= math.Ldexp(1, 64) { return -1 } else { return int64(uint64(t)) }
        case ty.IsUnsigned()                    : return self.norm(int64(math.Min(t, float64(mask(w)))), ty)
        case t >= math.Ldexp(1, w - 1)          : return -minOf(w) - 1
        case t < -math.Ldexp(1, w - 1)          : return minOf(w)
        default                                 : return int64(t)
    }
}

func (self *Emulator) elemAddr(v *ir.ArrIndex) int64 {
    arr := self.Eval(v.Arr).I
    idx := self.Eval(v.Index).I
    n := self.evalLen(arr, v.LenOffset)

    /* bounds check */
    if uint64(idx) >= uint64(n) {
        panic(ErrIndex)
    }
    return arr + int64(v.DataOffset) + idx * int64(v.ElemSize)
}

func (self *Emulator) evalArrIndex(v *ir.ArrIndex) Value {
    p := self.elemAddr(v)
    if v.Ty != ir.Struct {
        return self.Load(p, v.Ty)
    } else {
        return Value { B: append([]byte(nil), self.Mem[p:p + int64(v.Class.Size)]...) }
    }
}

func (self *Emulator) evalLen(arr int64, off int) int64 {
    self.check(arr, off + 4)
    return self.Load(arr + int64(off), ir.Int32).I
}

func (self *Emulator) evalArrLen(arr ir.Expr, off int) Value {
    return Int(self.evalLen(self.Eval(arr).I, off))
}

func (self *Emulator) evalBoundsCheck(v *ir.BoundsCheck) Value {
    idx := self.Eval(v.Index).I
    n := self.Eval(v.Length).I

    /* compare unsigned so negative indices fail too */
    if uint64(idx) >= uint64(n) {
        panic(ErrIndex)
    }
    return Value{}
}

func (self *Emulator) evalBlockOp(v *ir.BlockOp) Value {
    dst := self.Eval(v.Dst).I
    src := self.Eval(v.Src).I
    self.check(dst, v.Size)

    /* fill or copy */
    if v.Init {
        copy(self.Mem[dst:], fill(v.Size, byte(src)))
    } else {
        self.check(src, v.Size)
        copy(self.Mem[dst:dst + int64(v.Size)], self.Mem[src:src + int64(v.Size)])
    }

    /* record the store */
    self.Trace = append(self.Trace, Event {
        Kind  : EvStore,
        Name  : fmt.Sprintf("%#x", dst),
        Local : -1,
        Value : Value { B: append([]byte(nil), self.Mem[dst:dst + int64(v.Size)]...) },
    })
    return Value{}
}

func (self *Emulator) evalCall(v *ir.Call) Value {
    var argv []Value
    if info, ok := v.Info.(*args.Info); ok && info.Evaluated() {
        argv = self.evalPlaced(v, info)
    } else {
        argv = self.evalOrdered(v)
    }

    /* the target is evaluated after the arguments */
    if v.Target != nil {
        self.Eval(v.Target)
    }

    /* record the call */
    self.Trace = append(self.Trace, Event {
        Kind   : EvCall,
        Name   : v.Name(),
        Local  : -1,
        Args   : argv,
        Helper : v.Kind == ir.CallHelper,
    })

    /* dispatch */
    if v.Kind == ir.CallHelper {
        return self.helper(v.Helper, argv)
    } else if fn := self.Funcs[v.Name()]; fn != nil {
        return fn(self, argv)
    } else {
        return Value{}
    }
}

func (self *Emulator) evalOrdered(v *ir.Call) []Value {
    var ret []Value
    if v.This != nil {
        ret = append(ret, self.Eval(v.This))
    }
    for _, x := range v.Args {
        ret = append(ret, self.Eval(x))
    }
    return ret
}

// evalPlaced evaluates the early list in order then the late list, and
// gathers the value of every source argument by its argument number.
func (self *Emulator) evalPlaced(v *ir.Call, info *args.Info) []Value {
    var this Value
    early := make([]Value, len(v.Args))
    late := make([]Value, len(v.Late))

    /* early arguments, placeholders have no value yet */
    if v.This != nil {
        this = self.Eval(v.This)
    }
    for i, x := range v.Args {
        if _, ok := x.(*ir.Placeholder); !ok {
            early[i] = self.Eval(x)
        }
    }

    /* late arguments */
    for i, x := range v.Late {
        late[i] = self.Eval(x)
    }

    /* collect the values of the source arguments in source order */
    argv := make([]Value, info.ArgCount())
    skip := make([]bool, info.ArgCount())
    for _, e := range info.Entries() {
        switch {
            case e.IsNonStandard              : skip[e.ArgNum] = true
            case e.IsLate()                   : argv[e.ArgNum] = late[e.LateIndex]
            case e.Parent.List == ir.SlotThis : argv[e.ArgNum] = this
            case e.Parent.List == ir.SlotArgs : argv[e.ArgNum] = early[e.Parent.Index]
            default                           : panic(fmt.Sprintf("emu: argument %d has no value", e.ArgNum))
        }
    }

    /* synthetic arguments are not seen by the callee */
    ret := argv[:0]
    for i, v := range argv {
        if !skip[i] {
            ret = append(ret, v)
        }
    }
    return ret
}

func (self *Emulator) helper(fn ir.Helper, argv []Value) Value {
    switch fn {
        case ir.HelperDbl2Int                 : return Int(self.f2i(argv[0].F, ir.Int32, false))
        case ir.HelperDbl2IntOvf              : return Int(self.f2i(argv[0].F, ir.Int32, true))
        case ir.HelperDbl2UInt                : return Int(self.f2i(argv[0].F, ir.Uint32, false))
        case ir.HelperDbl2UIntOvf             : return Int(self.f2i(argv[0].F, ir.Uint32, true))
        case ir.HelperDbl2Lng                 : return Int(self.f2i(argv[0].F, ir.Int64, false))
        case ir.HelperDbl2LngOvf              : return Int(self.f2i(argv[0].F, ir.Int64, true))
        case ir.HelperDbl2ULng                : return Int(self.f2i(argv[0].F, ir.Uint64, false))
        case ir.HelperDbl2ULngOvf             : return Int(self.f2i(argv[0].F, ir.Uint64, true))
        case ir.HelperLng2Dbl                 : return Float(float64(argv[0].I))
        case ir.HelperULng2Dbl                : return Float(float64(uint64(argv[0].I)))
        case ir.HelperDblRem                  : return Float(math.Mod(argv[0].F, argv[1].F))
        case ir.HelperFltRem                  : return Float(float64(float32(math.Mod(argv[0].F, argv[1].F))))
        case ir.HelperLDiv                    : return Int(self.sdiv(argv[0].I, argv[1].I, ir.Int64, false))
        case ir.HelperLMod                    : return Int(self.sdiv(argv[0].I, argv[1].I, ir.Int64, true))
        case ir.HelperULDiv                   : return Int(int64(udiv(uint64(argv[0].I), uint64(argv[1].I), false)))
        case ir.HelperULMod                   : return Int(int64(udiv(uint64(argv[0].I), uint64(argv[1].I), true)))
        case ir.HelperTypeHandleToRuntimeType : return Int(argv[0].I | 1)
        case ir.HelperGetType                 : return Int(self.Load(argv[0].I, ir.IntPtr).I | 1)
        case ir.HelperBoxNullable             : return Int(self.boxNullable(argv[0].I, argv[1].I))
        default                               : panic("emu: unsupported helper " + fn.String())
    }
}

func (self *Emulator) boxNullable(h int64, p int64) int64 {
    cls := self.cmap[h]
    if cls == nil {
        panic(fmt.Sprintf("emu: unknown class handle %#x", h))
    }

    /* null when the value is absent */
    if self.Load(p + int64(cls.HasValue), ir.Uint8).I == 0 {
        return 0
    }

    /* box the value */
    box := self.NewObject(cls)
    copy(self.Mem[box + int64(self.M.PtrSize):], self.Mem[p:p + int64(cls.Size)])
    return box
}
