/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists the canvas state slot. A Document (elements plus
// UI preferences, never history or selection) is written either to a JSON
// file with transactional writes and timestamped backups, or to a SQLite
// key-value table with CBOR-encoded values. AsyncWriter keeps those writes
// off the mutation path.
package storage
