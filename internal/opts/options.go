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
	"io"
	"os"

	"github.com/cloudwego/morph/abi"
)

type Options struct {
	Target      abi.Descriptor
	UnrollLimit int
	MaxLocals   int
	Trace       io.Writer
}

// BlockUnrollLimit returns the largest block operation that is unrolled.
func (self *Options) BlockUnrollLimit() int {
	if self.UnrollLimit != 0 {
		return self.UnrollLimit
	} else {
		return self.Target.UnrollLimit()
	}
}

func GetDefaultOptions() Options {
	ret := Options{
		Target:      abi.Host(),
		UnrollLimit: UnrollLimit,
		MaxLocals:   MaxLocals,
	}
	if TraceMorph {
		ret.Trace = os.Stderr
	}
	return ret
}
