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


package storage

import (
	"encoding/json"
	"fmt"

	"github.com/poiesic/docent/core"
)

// Stored values are JSON. The records are small and the encoding matches
// what the chat endpoint serves, so cached entries stay inspectable with
// ordinary tooling.

// MarshalCachedAnswer serializes a cached answer to bytes.
func MarshalCachedAnswer(answer *core.CachedAnswer) ([]byte, error) {
	data, err := json.Marshal(answer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalCachedAnswer deserializes a cached answer from bytes.
func UnmarshalCachedAnswer(data []byte) (*core.CachedAnswer, error) {
	var answer core.CachedAnswer
	if err := json.Unmarshal(data, &answer); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return &answer, nil
}

// MarshalIngestRecord serializes an ingest ledger entry to bytes.
func MarshalIngestRecord(record *core.IngestRecord) ([]byte, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalIngestRecord deserializes an ingest ledger entry from bytes.
func UnmarshalIngestRecord(data []byte) (*core.IngestRecord, error) {
	var record core.IngestRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return &record, nil
}
