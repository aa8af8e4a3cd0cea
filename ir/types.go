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
)

// Type is the value type of an expression node.
type Type uint8

const (
    Void Type = iota
    Bool
    Int8
    Uint8
    Int16
    Uint16
    Int32
    Uint32
    Int64
    Uint64
    IntPtr
    Ref
    ByRef
    Float32
    Float64
    Struct
)

var typeNames = [...]string {
    Void    : "void",
    Bool    : "bool",
    Int8    : "i8",
    Uint8   : "u8",
    Int16   : "i16",
    Uint16  : "u16",
    Int32   : "i32",
    Uint32  : "u32",
    Int64   : "i64",
    Uint64  : "u64",
    IntPtr  : "iptr",
    Ref     : "ref",
    ByRef   : "byref",
    Float32 : "f32",
    Float64 : "f64",
    Struct  : "struct",
}

func (self Type) String() string {
    if int(self) < len(typeNames) {
        return typeNames[self]
    } else {
        return fmt.Sprintf("type(%d)", self)
    }
}

// Size returns the size of the type in bytes, pointer-sized types use ptr.
// Struct types have no intrinsic size, the class layout has it.
func (self Type) Size(ptr int) int {
    switch self {
        case Void    : return 0
        case Bool    : return 1
        case Int8    : return 1
        case Uint8   : return 1
        case Int16   : return 2
        case Uint16  : return 2
        case Int32   : return 4
        case Uint32  : return 4
        case Int64   : return 8
        case Uint64  : return 8
        case IntPtr  : return ptr
        case Ref     : return ptr
        case ByRef   : return ptr
        case Float32 : return 4
        case Float64 : return 8
        case Struct  : return 0
        default      : panic(fmt.Sprintf("ir: invalid type: %d", self))
    }
}

// Bits returns the width of the type in bits.
func (self Type) Bits(ptr int) int {
    return self.Size(ptr) * 8
}

func (self Type) IsSmall() bool {
    return self >= Bool && self <= Uint16
}

func (self Type) IsIntegral() bool {
    return self >= Bool && self <= IntPtr
}

// IsIntOrPtr reports integral types and the GC pointer types.
func (self Type) IsIntOrPtr() bool {
    return self >= Bool && self <= ByRef
}

func (self Type) IsUnsigned() bool {
    switch self {
        case Bool, Uint8, Uint16, Uint32, Uint64 : return true
        default                                  : return false
    }
}

func (self Type) IsFloat() bool {
    return self == Float32 || self == Float64
}

func (self Type) IsGC() bool {
    return self == Ref || self == ByRef
}

func (self Type) IsStruct() bool {
    return self == Struct
}

// IsLong reports whether the value of this type occupies 8 bytes of integer storage.
func (self Type) IsLong(ptr int) bool {
    return self.IsIntOrPtr() && self.Size(ptr) == 8
}

// Actual returns the type a value of this type has once loaded onto the
// evaluation stack, small integers are widened to Int32.
func (self Type) Actual() Type {
    if self.IsSmall() {
        return Int32
    } else {
        return self
    }
}

// Unsigned returns the unsigned counterpart of an integral type.
func (self Type) Unsigned() Type {
    switch self {
        case Int8  : return Uint8
        case Int16 : return Uint16
        case Int32 : return Uint32
        case Int64 : return Uint64
        default    : return self
    }
}

// Signed returns the signed counterpart of an integral type.
func (self Type) Signed() Type {
    switch self {
        case Uint8  : return Int8
        case Uint16 : return Int16
        case Uint32 : return Int32
        case Uint64 : return Int64
        default     : return self
    }
}

// IntOfSize returns the integer type with the given byte size.
func IntOfSize(size int, unsigned bool) Type {
    var ty Type
    switch size {
        case 1  : ty = Int8
        case 2  : ty = Int16
        case 4  : ty = Int32
        case 8  : ty = Int64
        default : panic(fmt.Sprintf("ir: no integer type of size %d", size))
    }
    if unsigned {
        return ty.Unsigned()
    } else {
        return ty
    }
}

// Truncate normalizes v to the range of an integer type with the given width.
func Truncate(v int64, ty Type, ptr int) int64 {
    switch ty.Size(ptr) {
        case 1  : if ty.IsUnsigned() { return int64(uint8(v))  } else { return int64(int8(v))  }
        case 2  : if ty.IsUnsigned() { return int64(uint16(v)) } else { return int64(int16(v)) }
        case 4  : if ty.IsUnsigned() { return int64(uint32(v)) } else { return int64(int32(v)) }
        default : return v
    }
}
