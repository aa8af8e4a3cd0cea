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

package morpher

import (
    `math/bits`
)

type magicNum struct {
    m int64
    s int
}

var magic32 = map[int64]magicNum {
    3  : { 0x55555556, 0 },
    5  : { 0x66666667, 1 },
    6  : { 0x2aaaaaab, 0 },
    7  : { -0x6db6db6d, 2 },
    9  : { 0x38e38e39, 1 },
    10 : { 0x66666667, 2 },
    11 : { 0x2e8ba2e9, 1 },
    12 : { 0x2aaaaaab, 1 },
}

var magic64 = map[int64]magicNum {
    3  : { 0x5555555555555556, 0 },
    5  : { 0x6666666666666667, 1 },
    6  : { 0x2aaaaaaaaaaaaaab, 0 },
    7  : { 0x4924924924924925, 1 },
    9  : { 0x1c71c71c71c71c72, 0 },
    10 : { 0x6666666666666667, 2 },
    11 : { 0x2e8ba2e8ba2e8ba3, 1 },
    12 : { 0x2aaaaaaaaaaaaaab, 1 },
}

// isMagicDivisor reports whether signed division by d of the given width
// is reduced to a multiply-high sequence.
func isMagicDivisor(d int64, w int) bool {
    switch {
        case d == 0 || d == 1 || d == -1 : return false
        case w == 32 && d == -1 << 31    : return false
        case d == -1 << 63               : return false
        default                          : return bits.OnesCount64(uint64(abs64(d))) != 1
    }
}

// magicSigned returns the multiplier and the shift of signed division by d
// for a w-bit operand, following Granlund and Montgomery.
func magicSigned(d int64, w int) (int64, int) {
    switch w {
        case 32 : if v, ok := magic32[d]; ok { return v.m, v.s }
        case 64 : if v, ok := magic64[d]; ok { return v.m, v.s }
    }
    return computeMagic(d, w)
}

func computeMagic(d int64, w int) (int64, int) {
    /* initial quotients and remainders of 2^(w-1) */
    two := uint64(1) << uint(w - 1)
    ad := uint64(abs64(d))
    t := two + (uint64(d) >> 63)
    anc := t - 1 - t % ad
    q1, r1 := two / anc, two % anc
    q2, r2 := two / ad, two % ad

    /* find the smallest p with 2^p > anc * (ad - 2^p mod ad) */
    p := w - 1
    for {
        p++
        q1, r1 = q1 * 2, r1 * 2
        if r1 >= anc { q1++; r1 -= anc }
        q2, r2 = q2 * 2, r2 * 2
        if r2 >= ad { q2++; r2 -= ad }
        if delta := ad - r2; !(q1 < delta || (q1 == delta && r1 == 0)) {
            break
        }
    }

    /* the multiplier is sign-extended from the operand width */
    m := q2 + 1
    if d < 0 {
        m = -m
    }
    if w == 32 {
        return int64(int32(uint32(m))), p - w
    } else {
        return int64(m), p - w
    }
}

func abs64(v int64) int64 {
    if v < 0 {
        return -v
    } else {
        return v
    }
}
