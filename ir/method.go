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
    `strings`

    `github.com/cloudwego/morph/internal/utils`
)

// LocalVar describes one local variable or compiler temporary.
type LocalVar struct {
    Num             int
    Name            string
    Type            Type
    Class           *Class
    AddrExposed     bool
    Promoted        bool
    Fields          []int
    Parent          int
    FieldOffset     int
    DoNotEnregister bool
    Temp            bool
    Used            bool
    Defined         bool
}

// IsField reports whether the local is a field of a promoted struct.
func (self *LocalVar) IsField() bool {
    return self.Parent >= 0
}

func (self *LocalVar) String() string {
    return fmt.Sprintf("V%02d(%s,%s)", self.Num, self.Name, self.Type)
}

// Stmt is a statement, the root of one expression tree.
type Stmt struct {
    Root Expr
}

type Block struct {
    Id    int
    Stmts []*Stmt
}

// Method is the unit of compilation: its locals table and statement forest.
type Method struct {
    Name             string
    PtrSize          int
    Locals           []*LocalVar
    Blocks           []*Block
    LocallocUsed     bool
    QmarkUsed        bool
    OutgoingArgSpace int
    MaxLocals        int
}

func NewMethod(name string, ptr int) *Method {
    return &Method {
        Name    : name,
        PtrSize : ptr,
    }
}

// AddLocal declares a new local and returns its number.
func (self *Method) AddLocal(name string, ty Type, cls *Class) int {
    num := len(self.Locals)
    if self.MaxLocals > 0 && num >= self.MaxLocals {
        panic(utils.EBadCode("too many locals in %s: limit is %d", self.Name, self.MaxLocals))
    }
    self.Locals = append(self.Locals, &LocalVar {
        Num    : num,
        Name   : name,
        Type   : ty,
        Class  : cls,
        Parent : -1,
    })
    return num
}

// GrabTemp allocates a compiler temporary, numbering is monotonic per method.
func (self *Method) GrabTemp(ty Type, cls *Class, reason string) int {
    num := self.AddLocal(reason, ty, cls)
    self.Locals[num].Temp = true
    return num
}

// Promote splits a struct local into one field local per class field.
func (self *Method) Promote(num int) []int {
    lv := self.Locals[num]
    if lv.Class == nil {
        panic(utils.EInternal("promoting non-struct local V%02d", num))
    }

    /* create the field locals */
    lv.Fields = lv.Fields[:0]
    for _, f := range lv.Class.Fields {
        if f.Class != nil {
            panic(utils.EInternal("promoting V%02d with nested struct field %s", num, f.Name))
        }
        fn := self.AddLocal(lv.Name + "." + f.Name, f.Type, nil)
        self.Locals[fn].Parent = num
        self.Locals[fn].FieldOffset = f.Off
        lv.Fields = append(lv.Fields, fn)
    }

    /* mark as promoted */
    lv.Promoted = true
    return lv.Fields
}

// Local returns the descriptor of a local number.
func (self *Method) Local(num int) *LocalVar {
    if num < 0 || num >= len(self.Locals) {
        panic(utils.EInternal("local number V%02d out of range", num))
    }
    return self.Locals[num]
}

// NewBlock appends a basic block holding the given statement roots.
func (self *Method) NewBlock(roots ...Expr) *Block {
    bb := &Block { Id: len(self.Blocks) }
    for _, r := range roots {
        bb.Stmts = append(bb.Stmts, &Stmt { Root: r })
    }
    self.Blocks = append(self.Blocks, bb)
    return bb
}

func (self *Method) String() string {
    var buf []string
    for _, bb := range self.Blocks {
        buf = append(buf, fmt.Sprintf("bb_%d:", bb.Id))
        for _, st := range bb.Stmts {
            buf = append(buf, "    " + st.Root.String())
        }
    }
    return strings.Join(buf, "\n")
}
