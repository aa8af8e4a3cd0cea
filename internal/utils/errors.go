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

package utils

import (
    `fmt`
)

// ErrorKind tells internal faults apart from malformed input.
type ErrorKind uint8

const (
    KindInternal ErrorKind = iota
    KindBadCode
)

func (self ErrorKind) String() string {
    switch self {
        case KindInternal : return "internal compiler error"
        case KindBadCode  : return "bad code"
        default           : return "unknown error"
    }
}

// CompileError aborts the morphing of one method.
type CompileError struct {
    Kind   ErrorKind
    Method string
    Reason string
}

func (self CompileError) Error() string {
    if self.Method != "" {
        return fmt.Sprintf("%s in %s: %s", self.Kind, self.Method, self.Reason)
    } else {
        return fmt.Sprintf("%s: %s", self.Kind, self.Reason)
    }
}

// EInternal reports a violated invariant, a defect in this or an earlier pass.
func EInternal(format string, args ...interface{}) CompileError {
    return CompileError {
        Kind   : KindInternal,
        Reason : fmt.Sprintf(format, args...),
    }
}

// EBadCode reports input that is malformed or unverifiable.
func EBadCode(format string, args ...interface{}) CompileError {
    return CompileError {
        Kind   : KindBadCode,
        Reason : fmt.Sprintf(format, args...),
    }
}

// Assert panics with an internal error when cond does not hold.
func Assert(cond bool, format string, args ...interface{}) {
    if !cond {
        panic(EInternal(format, args...))
    }
}

// Recover converts a panic raised while morphing method into an error.
// Panics that did not originate from this package are reported as internal
// errors too.
func Recover(method string, err *error) {
    if v := recover(); v != nil {
        switch e := v.(type) {
            case CompileError : e.Method = method; *err = e
            case error        : *err = CompileError { Kind: KindInternal, Method: method, Reason: e.Error() }
            default           : *err = CompileError { Kind: KindInternal, Method: method, Reason: fmt.Sprint(e) }
        }
    }
}
