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


package core

import "errors"

var (
	// ErrValidation indicates a model failed validation, e.g. it has no
	// primary key value at insert time.
	ErrValidation = errors.New("validation failed")

	// ErrType indicates a type does not satisfy the Storable contract or a
	// value has no document representation.
	ErrType = errors.New("unsupported type")

	// ErrMissingPrimaryKey indicates the primary key field is absent or empty.
	ErrMissingPrimaryKey = errors.New("primary key value is missing")

	// ErrEmptyCollection indicates a Storable returned an empty collection name.
	ErrEmptyCollection = errors.New("collection name cannot be empty")

	// ErrEmptyPrimaryKeyField indicates a Storable returned an empty primary key field name.
	ErrEmptyPrimaryKeyField = errors.New("primary key field name cannot be empty")

	// ErrOddPairs indicates NewAttributes received an odd number of arguments.
	ErrOddPairs = errors.New("attributes require field/value pairs")

	// ErrFieldName indicates a field name that is not a string.
	ErrFieldName = errors.New("field name must be a string")
)
