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

package morph

import (
    `errors`

    `github.com/cloudwego/morph/internal/utils`
)

// CompileError aborts the morphing of a method.
type CompileError = utils.CompileError

// ErrorKind tells internal faults apart from malformed input.
type ErrorKind = utils.ErrorKind

const (
    // KindInternal is a violated invariant of the morpher or an earlier pass.
    KindInternal = utils.KindInternal

    // KindBadCode is input that is malformed or unverifiable.
    KindBadCode = utils.KindBadCode
)

// IsBadCode reports whether err was caused by malformed input.
func IsBadCode(err error) bool {
    var ce CompileError
    return errors.As(err, &ce) && ce.Kind == KindBadCode
}
