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
	"github.com/cloudwego/morph/internal/morpher"
	"github.com/cloudwego/morph/internal/opts"
	"github.com/cloudwego/morph/internal/utils"
	"github.com/cloudwego/morph/ir"
)

// Morph runs the morph phase over every statement of m, in block order.
//
// Calls get their argument tables and are rewritten for the calling
// convention of the target, and every other node is simplified or lowered
// into the shape code generation expects. The method is modified in place.
//
// A CompileError is returned when m is malformed or when an internal
// invariant is violated, m is left partially morphed in that case and
// must be discarded.
func Morph(m *ir.Method, options ...Option) (err error) {
	o := opts.GetDefaultOptions()
	for _, fn := range options {
		fn(&o)
	}

	/* errors are raised as panics deep inside the morpher */
	defer utils.Recover(m.Name, &err)
	if o.Target.PtrSize() != m.PtrSize {
		panic(utils.EBadCode("method is built for %d-byte pointers, target %s has %d", m.PtrSize, o.Target.Name(), o.Target.PtrSize()))
	}

	/* morph every statement */
	morpher.Run(m, o)
	return nil
}
