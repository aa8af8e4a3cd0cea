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
    `reflect`
    `sort`
)

// Field is a single field of a class layout.
type Field struct {
    Name  string
    Off   int
    Type  Type
    Class *Class
}

// Class is an opaque class handle together with the layout queries the
// morpher needs: size, GC layout and field offsets.
type Class struct {
    Name     string
    Size     int
    Fields   []Field
    Custom   bool
    Nullable bool
    HasValue int
    Proxy    bool
    ptr      int
    gc       []Type
}

// NewClass creates a sequentially laid out class.
func NewClass(name string, ptr int, fields ...Field) *Class {
    off := 0
    aln := 1
    ret := make([]Field, len(fields))

    /* assign offsets with natural alignment */
    for i, f := range fields {
        sz, al := fieldSize(f, ptr)
        off = alignUp(off, al)
        ret[i] = f
        ret[i].Off = off
        off += sz
        if al > aln {
            aln = al
        }
    }

    /* build the class */
    return initClass(&Class {
        Name   : name,
        Size   : alignUp(off, aln),
        Fields : ret,
        ptr    : ptr,
    })
}

// NewExplicitClass creates a class whose field offsets are given by the
// caller, overlapping fields make it a custom layout.
func NewExplicitClass(name string, size int, ptr int, fields ...Field) *Class {
    cls := &Class {
        Name   : name,
        Size   : size,
        Fields : append([]Field(nil), fields...),
        Custom : true,
        ptr    : ptr,
    }
    sort.SliceStable(cls.Fields, func(i int, j int) bool {
        return cls.Fields[i].Off < cls.Fields[j].Off
    })
    return initClass(cls)
}

// NewNullable creates the layout of a nullable wrapper around val.
func NewNullable(name string, ptr int, val Field) *Class {
    cls := NewClass(name, ptr, Field { Name: "hasValue", Type: Bool }, val)
    cls.Nullable = true
    cls.HasValue = 0
    return cls
}

func initClass(cls *Class) *Class {
    if cls.ptr <= 0 {
        return cls
    }

    /* every field's GC-ness is recorded per pointer-sized slot */
    cls.gc = make([]Type, (cls.Size + cls.ptr - 1) / cls.ptr)
    for i := range cls.gc {
        cls.gc[i] = IntPtr
    }

    /* mark the GC slots */
    cls.markGC(0, cls.gc)
    return cls
}

func (self *Class) markGC(base int, gc []Type) {
    for _, f := range self.Fields {
        if f.Class != nil {
            f.Class.markGC(base + f.Off, gc)
        } else if f.Type.IsGC() {
            if off := base + f.Off; off % self.ptr == 0 && off / self.ptr < len(gc) {
                gc[off / self.ptr] = f.Type
            }
        }
    }
}

func fieldSize(f Field, ptr int) (int, int) {
    if f.Class == nil {
        sz := f.Type.Size(ptr)
        return sz, sz
    } else {
        return f.Class.Size, f.Class.Align()
    }
}

func alignUp(v int, a int) int {
    if a <= 1 {
        return v
    } else {
        return (v + a - 1) &^ (a - 1)
    }
}

func (self *Class) String() string {
    return fmt.Sprintf("%s[%d]", self.Name, self.Size)
}

// PtrSize returns the pointer size the layout was computed for.
func (self *Class) PtrSize() int {
    return self.ptr
}

// Align returns the natural alignment of the class.
func (self *Class) Align() int {
    al := 1
    for _, f := range self.Fields {
        if _, a := fieldSize(f, self.ptr); a > al {
            al = a
        }
    }
    return al
}

// GCLayout returns the type of each pointer-sized slot: Ref, ByRef or IntPtr.
func (self *Class) GCLayout() []Type {
    return self.gc
}

// HasGCPtrs reports whether any slot of the class holds a GC reference.
func (self *Class) HasGCPtrs() bool {
    for _, t := range self.gc {
        if t.IsGC() {
            return true
        }
    }
    return false
}

// Slots returns the number of slots of the given size the class occupies.
func (self *Class) Slots(size int) int {
    return (self.Size + size - 1) / size
}

// FieldOffset returns the offset of the i-th field.
func (self *Class) FieldOffset(i int) int {
    return self.Fields[i].Off
}

// Overlaps reports whether any two fields share storage.
func (self *Class) Overlaps() bool {
    end := 0
    for i, f := range self.Fields {
        sz, _ := fieldSize(f, self.ptr)
        if i != 0 && f.Off < end {
            return true
        }
        end = f.Off + sz
    }
    return false
}

// Holes reports whether the fields leave any byte of the class uncovered.
func (self *Class) Holes() bool {
    end := 0
    for _, f := range self.Fields {
        sz, _ := fieldSize(f, self.ptr)
        if f.Off != end {
            return true
        }
        end = f.Off + sz
    }
    return end != self.Size
}

// Flatten returns every primitive field of the class with absolute offsets.
func (self *Class) Flatten() []Field {
    return self.flatten(0, nil)
}

func (self *Class) flatten(base int, out []Field) []Field {
    for _, f := range self.Fields {
        if f.Class != nil {
            out = f.Class.flatten(base + f.Off, out)
        } else {
            f.Off += base
            out = append(out, f)
        }
    }
    return out
}

// Validate checks the layout for consistency, a malformed class is reported
// as an error describing the first problem.
func (self *Class) Validate() error {
    if self == nil {
        return fmt.Errorf("nil class handle")
    } else if self.Size < 0 {
        return fmt.Errorf("class %s has negative size %d", self.Name, self.Size)
    } else if self.ptr != 4 && self.ptr != 8 {
        return fmt.Errorf("class %s has invalid pointer size %d", self.Name, self.ptr)
    } else if len(self.gc) != self.Slots(self.ptr) {
        return fmt.Errorf("class %s has a GC layout of %d slots, expected %d", self.Name, len(self.gc), self.Slots(self.ptr))
    }

    /* all fields must be in range */
    for _, f := range self.Fields {
        if sz, _ := fieldSize(f, self.ptr); f.Off < 0 || f.Off + sz > self.Size {
            return fmt.Errorf("field %s.%s out of range", self.Name, f.Name)
        }
    }
    return nil
}

// ClassOf derives a class layout from a Go struct type, laid out for the
// host pointer size.
func ClassOf(vt reflect.Type) *Class {
    if vt.Kind() != reflect.Struct {
        panic("ir: ClassOf on non-struct type " + vt.String())
    }

    /* convert every field */
    ptr := int(reflect.TypeOf(uintptr(0)).Size())
    cls := &Class { Name: vt.String(), Size: int(vt.Size()), ptr: ptr }

    /* add each field */
    for i := 0; i < vt.NumField(); i++ {
        fv := vt.Field(i)
        ft, fc := kindOf(fv.Type)
        cls.Fields = append(cls.Fields, Field {
            Name  : fv.Name,
            Off   : int(fv.Offset),
            Type  : ft,
            Class : fc,
        })
    }

    /* compute the GC layout */
    return initClass(cls)
}

func kindOf(vt reflect.Type) (Type, *Class) {
    switch vt.Kind() {
        case reflect.Bool          : return Bool, nil
        case reflect.Int8          : return Int8, nil
        case reflect.Int16         : return Int16, nil
        case reflect.Int32         : return Int32, nil
        case reflect.Int64         : return Int64, nil
        case reflect.Uint8         : return Uint8, nil
        case reflect.Uint16        : return Uint16, nil
        case reflect.Uint32        : return Uint32, nil
        case reflect.Uint64        : return Uint64, nil
        case reflect.Int           : return IntOfSize(int(vt.Size()), false), nil
        case reflect.Uint          : return IntOfSize(int(vt.Size()), true), nil
        case reflect.Uintptr       : return IntPtr, nil
        case reflect.Float32       : return Float32, nil
        case reflect.Float64       : return Float64, nil
        case reflect.Chan          : fallthrough
        case reflect.Func          : fallthrough
        case reflect.Map           : fallthrough
        case reflect.Ptr           : fallthrough
        case reflect.UnsafePointer : return Ref, nil
        case reflect.String        : return Struct, ClassOf(reflect.TypeOf(struct { P *byte; L int }{}))
        case reflect.Interface     : return Struct, ClassOf(reflect.TypeOf(struct { T *byte; V *byte }{}))
        case reflect.Slice         : return Struct, ClassOf(reflect.TypeOf(struct { P *byte; L int; C int }{}))
        case reflect.Struct        : return Struct, ClassOf(vt)
        case reflect.Array         : return Struct, arrayClass(vt)
        default                    : panic("ir: unsupported field kind: " + vt.String())
    }
}

func arrayClass(vt reflect.Type) *Class {
    ptr := int(reflect.TypeOf(uintptr(0)).Size())
    cls := &Class { Name: vt.String(), Size: int(vt.Size()), ptr: ptr }
    et, ec := kindOf(vt.Elem())

    /* expand every element as a field */
    for i := 0; i < vt.Len(); i++ {
        cls.Fields = append(cls.Fields, Field {
            Name  : fmt.Sprintf("[%d]", i),
            Off   : i * int(vt.Elem().Size()),
            Type  : et,
            Class : ec,
        })
    }
    return initClass(cls)
}
