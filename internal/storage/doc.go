/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package storage persists templates on disk and indexes them.
// Template files are written transactionally with timestamped backups next to
// them, and a corrupted file falls back to its newest readable backup.
// A template library keeps its files under templates/ and an embedded SQLite
// catalog at <library>/.shd/catalog.sqlite used for listing, search, preview
// thumbnails and revisions. The catalog is derived from the files and can be
// rebuilt at any time.
package storage
