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

package abi

import (
    `runtime`

    `github.com/klauspost/cpuid/v2`
)

// Host returns the descriptor of the machine the process runs on, with the
// capabilities refined by the features the CPU reports.
func Host() Descriptor {
    var ret Descriptor
    switch runtime.GOARCH {
        case "386"   : ret = X86()
        case "arm"   : ret = ARM32()
        case "arm64" : ret = ARM64()
        default      : ret = hostAMD64()
    }
    return refine(ret, cpuid.CPU)
}

func hostAMD64() Descriptor {
    if runtime.GOOS == "windows" {
        return WinAMD64()
    } else {
        return SysVAMD64()
    }
}

// refine adjusts the features of a descriptor to what the CPU supports.
func refine(d Descriptor, cpu cpuid.CPUInfo) Descriptor {
    tg, ok := d.(*target)
    if !ok {
        return d
    }

    /* AVX-512 has direct unsigned integer to float conversions */
    if tg.features.PreferLeaMul && cpu.Supports(cpuid.AVX512F) {
        tg.features.UnsignedFloatConv = true
    }
    return tg
}

// WithFeatures returns a copy of d with its capabilities replaced.
func WithFeatures(d Descriptor, fv Features) Descriptor {
    if tg, ok := d.(*target); !ok {
        panic("abi: cannot override features of a foreign descriptor")
    } else {
        cp := *tg
        cp.features = fv
        return &cp
    }
}
