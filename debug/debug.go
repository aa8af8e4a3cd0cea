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

package debug

import (
	"sync/atomic"

	"github.com/cloudwego/morph/internal/morpher"
)

// A Stats records statistics about the morph phase.
type Stats struct {
	Calls    int
	Args     int
	Temps    int
	Rewrites int
	Splits   int
}

// GetStats returns statistics of the morph phase since the process started.
func GetStats() Stats {
	return Stats{
		Calls:    int(atomic.LoadInt64(&morpher.CallCount)),
		Args:     int(atomic.LoadInt64(&morpher.ArgCount)),
		Temps:    int(atomic.LoadInt64(&morpher.TempCount)),
		Rewrites: int(atomic.LoadInt64(&morpher.RewriteCount)),
		Splits:   int(atomic.LoadInt64(&morpher.SplitCount)),
	}
}
