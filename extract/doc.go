// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package extract turns raw document bytes into core.Document values.
//
// An Extractor owns one document family: Supports filters keys by
// extension so the ingestion pipeline can skip files it cannot read, and
// Extract produces the combined text plus per-page breakdown when the
// format carries page boundaries. Extraction failures are scoped to a
// single document; the pipeline records them and moves on.
package extract
