/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package idgen mints opaque element identifiers.
//
// A Generator is injected into the editor store and the converter so tests can
// swap in deterministic sequences.
package idgen

import (
	"crypto/rand"
	"fmt"
	mrand "math/rand"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// Default produces random (v4) UUIDs and falls back to Fallback when the
// system entropy source fails.
func Default() Generator {
	fb := Fallback()
	return func() string {
		u, err := uuid.NewRandom()
		if err != nil {
			return fb()
		}
		return u.String()
	}
}

// UUIDv7 returns a Generator that produces time-sortable RFC 9562 v7 UUIDs.
func UUIDv7() Generator {
	fb := Fallback()
	return func() string {
		u, err := uuid.NewV7()
		if err != nil {
			return fb()
		}
		return u.String()
	}
}

// Fallback returns the timestamp + random suffix strategy, "el-<unix-ms-base36>-<rand>".
// A process-wide counter is mixed in so two IDs minted in the same millisecond differ
// even if the random source repeats.
func Fallback() Generator {
	return func() string {
		n := seq.Add(1)
		return "el-" + strconv.FormatInt(time.Now().UnixMilli(), 36) + "-" +
			strconv.FormatUint(mrand.Uint64()>>16, 36) + strconv.FormatUint(n, 36)
	}
}

var seq atomic.Uint64

// read is the entropy source of NanoID.
var read = rand.Read

// NanoID returns a Generator that produces base-36 IDs of the given length.
// It switches to Fallback when the system entropy source fails.
func NanoID(length int) Generator {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	fb := Fallback()
	return func() string {
		buf := make([]byte, length)
		if _, err := read(buf); err != nil {
			return fb()
		}
		for i := range buf {
			buf[i] = alphabet[int(buf[i])%len(alphabet)]
		}
		return string(buf)
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Strategy names accepted by FromStrategy.
const (
	StrategyUUID4  = "uuid4"
	StrategyUUID7  = "uuid7"
	StrategyNanoID = "nanoid"
)

// NanoIDLength is the length of ids minted by the nanoid strategy.
const NanoIDLength = 21

// FromStrategy builds the Generator named by strategy ("" means uuid4) and
// prepends prefix to every id when it is non-empty.
func FromStrategy(strategy, prefix string) (Generator, error) {
	var gen Generator
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", StrategyUUID4:
		gen = Default()
	case StrategyUUID7:
		gen = UUIDv7()
	case StrategyNanoID:
		gen = NanoID(NanoIDLength)
	default:
		return nil, fmt.Errorf("unknown id strategy %q", strategy)
	}
	if prefix != "" {
		gen = Prefixed(prefix, gen)
	}
	return gen, nil
}

// Sequence returns a deterministic Generator "<prefix>1", "<prefix>2", ...
// It is meant for tests and golden output.
func Sequence(prefix string) Generator {
	var n atomic.Uint64
	return func() string {
		return fmt.Sprintf("%s%d", prefix, n.Add(1))
	}
}
