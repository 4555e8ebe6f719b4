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

import "fmt"

// ValidateStorable checks that a Storable is bound to a collection and names
// a primary key field.
func ValidateStorable(s Storable) error {
	if s == nil {
		return fmt.Errorf("%w: model is nil", ErrValidation)
	}
	if s.Collection() == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyCollection)
	}
	if s.PrimaryKey() == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyPrimaryKeyField)
	}
	return nil
}

// ValidateKey checks that s can be addressed in the store and returns its
// document id.
//
// Validation rules:
//   - collection and primary key field must be named
//   - the primary key field must be present and not null
//   - string keys must not be empty
//   - lists, maps and timestamps are not usable as keys
func ValidateKey(s Storable) (string, error) {
	if err := ValidateStorable(s); err != nil {
		return "", err
	}
	key, ok := KeyOf(s)
	if !ok {
		return "", fmt.Errorf("%w: %w: field %q", ErrValidation, ErrMissingPrimaryKey, s.PrimaryKey())
	}
	return key.String(), nil
}

// KeyString converts a caller-supplied id into a document id.
func KeyString(id any) (string, error) {
	v, err := From(id)
	if err != nil {
		return "", err
	}
	switch v.Kind() {
	case KindString:
		if v.Str() == "" {
			return "", fmt.Errorf("%w: %w", ErrValidation, ErrMissingPrimaryKey)
		}
		return v.Str(), nil
	case KindInt, KindFloat, KindBool:
		return v.String(), nil
	}
	return "", fmt.Errorf("%w: %w: %s id", ErrValidation, ErrMissingPrimaryKey, v.Kind())
}
