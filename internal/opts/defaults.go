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

package opts

import (
	"os"
	"strconv"
)

const (
	_DefaultMaxLocals   = 32767 // local numbers are 16-bit in the register allocator
	_DefaultUnrollLimit = 0     // 0 selects the target's own limit
)

var (
	MaxLocals   = parseOrDefault("MORPH_MAX_LOCALS", _DefaultMaxLocals, 16)
	UnrollLimit = parseOrDefault("MORPH_BLOCK_UNROLL_LIMIT", _DefaultUnrollLimit, -1)
	TraceMorph  = os.Getenv("MORPH_TRACE") == "1"
)

func parseOrDefault(key string, def int, min int) int {
	if env := os.Getenv(key); env == "" {
		return def
	} else if val, err := strconv.ParseUint(env, 0, 64); err != nil {
		panic("morph: invalid value for " + key)
	} else if ret := int(val); ret <= min {
		panic("morph: value too small for " + key)
	} else {
		return ret
	}
}
