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


// Package answer generates grounded answers from the knowledge base.
//
// The Retriever embeds a question and finds the stored snippets most
// similar to it. The Answerer orchestrates the full question path:
//   - Condense the question against conversation history
//   - Serve repeated questions from the answer cache
//   - Retrieve context above a similarity threshold
//   - Complete with the context-grounded prompt
//   - Persist the exchange to history and cache
//
// Questions with no sufficiently similar context receive a fixed
// insufficient-information answer rather than an ungrounded completion.
package answer
