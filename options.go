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
	"fmt"
	"io"

	"github.com/cloudwego/morph/abi"
	"github.com/cloudwego/morph/internal/opts"
)

// Option is the property setter function for opts.Options.
type Option func(*opts.Options)

const (
	_MinLocals = 16
)

// WithTarget selects the calling convention and the capabilities used for
// morphing.
//
// The default value is the descriptor of the host, see abi.Host.
func WithTarget(target abi.Descriptor) Option {
	if target == nil {
		panic("morph: nil target")
	} else {
		return func(o *opts.Options) { o.Target = target }
	}
}

// WithTargetName is like WithTarget, but looks the descriptor up by name.
func WithTargetName(name string) Option {
	if target := abi.Lookup(name); target == nil {
		panic(fmt.Sprintf("morph: unknown target: %s", name))
	} else {
		return WithTarget(target)
	}
}

// WithUnrollLimit sets the largest block copy or init, in bytes, that is
// unrolled into scalar stores.
//
// Set this option to "0" selects the limit of the target.
//
// This value can also be configured with the `MORPH_BLOCK_UNROLL_LIMIT`
// environment variable.
func WithUnrollLimit(size int) Option {
	if size < 0 {
		panic(fmt.Sprintf("morph: invalid unroll limit: %d", size))
	} else {
		return func(o *opts.Options) { o.UnrollLimit = size }
	}
}

// WithMaxLocals sets the maximum number of locals a method may have after
// morphing, including every temporary the morpher allocates.
//
// Set this option to "0" disables this limit.
//
// The default value of this option is "32767".
func WithMaxLocals(n int) Option {
	if n != 0 && n < _MinLocals {
		panic(fmt.Sprintf("morph: invalid local limit: %d", n))
	} else {
		return func(o *opts.Options) { o.MaxLocals = n }
	}
}

// WithTrace writes every rewrite and argument table to w.
//
// Tracing is also enabled by setting the `MORPH_TRACE` environment variable
// to "1", the output goes to stderr in that case.
func WithTrace(w io.Writer) Option {
	return func(o *opts.Options) { o.Trace = w }
}

// SetMaxLocals sets the default maximum number of locals for all methods
// from now on.
//
// This value can also be configured with the `MORPH_MAX_LOCALS` environment
// variable.
//
// Returns the old opts.MaxLocals value.
func SetMaxLocals(n int) int {
	n, opts.MaxLocals = opts.MaxLocals, n
	return n
}

// SetUnrollLimit sets the default block unroll limit for all methods from
// now on.
//
// Returns the old opts.UnrollLimit value.
func SetUnrollLimit(size int) int {
	size, opts.UnrollLimit = opts.UnrollLimit, size
	return size
}
