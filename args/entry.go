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
    `github.com/cloudwego/morph/ir`
)

// Entry is the placement of one logical argument of a call.
type Entry struct {
    ArgNum        int
    Node          ir.Expr
    Parent        ir.Slot
    Reg           abi.Reg
    OtherReg      abi.Reg
    RegCount      int
    SlotCount     int
    SlotNum       int
    Align         int
    LateIndex     int
    TmpNum        int
    Type          ir.Type
    Class         *ir.Class
    IsSplit       bool
    IsTemp        bool
    NeedTmp       bool
    NeedPlace     bool
    IsHfaReg      bool
    IsBackFilled  bool
    IsNonStandard bool
    IsStruct      bool
    PassedByRef   bool
    Processed     bool
}

func newEntry(argNum int, node ir.Expr, parent ir.Slot, align int) *Entry {
    return &Entry {
        ArgNum    : argNum,
        Node      : node,
        Parent    : parent,
        Align     : align,
        LateIndex : -1,
        TmpNum    : -1,
        Type      : node.Type(),
    }
}

// InReg reports whether at least part of the argument is in registers.
func (self *Entry) InReg() bool {
    return !self.Reg.IsStack()
}

// IsLate reports whether the value of the argument lives in the late list.
func (self *Entry) IsLate() bool {
    return self.LateIndex >= 0
}

func (self *Entry) String() string {
    var fv []string
    if self.IsSplit       { fv = append(fv, "split") }
    if self.IsTemp        { fv = append(fv, fmt.Sprintf("tmp=V%02d", self.TmpNum)) }
    if self.NeedTmp       { fv = append(fv, "needTmp") }
    if self.NeedPlace     { fv = append(fv, "needPlace") }
    if self.IsHfaReg      { fv = append(fv, "hfa") }
    if self.IsBackFilled  { fv = append(fv, "backfill") }
    if self.IsNonStandard { fv = append(fv, "nonstd") }
    if self.PassedByRef   { fv = append(fv, "byref") }
    if self.IsLate()      { fv = append(fv, fmt.Sprintf("late=%d", self.LateIndex)) }

    /* placement */
    var pos string
    if !self.InReg() {
        pos = fmt.Sprintf("stk[%d:%d]", self.SlotNum, self.SlotCount)
    } else if self.IsSplit {
        pos = fmt.Sprintf("%s x%d + stk[%d:%d]", self.Reg, self.RegCount, self.SlotNum, self.SlotCount)
    } else {
        pos = fmt.Sprintf("%s x%d", self.Reg, self.RegCount)
    }

    /* format the entry */
    return fmt.Sprintf(
        "arg%d %s %s align=%d {%s} %s",
        self.ArgNum,
        self.Parent,
        pos,
        self.Align,
        strings.Join(fv, ","),
        self.Node,
    )
}
