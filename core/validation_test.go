package core

import (
	"errors"
	"testing"
)

type product struct{ Model }

func (*product) Collection() string { return "products" }
func (*product) PrimaryKey() string { return "id" }

type unbound struct{ Model }

func (*unbound) Collection() string { return "" }
func (*unbound) PrimaryKey() string { return "id" }

type keyless struct{ Model }

func (*keyless) Collection() string { return "things" }
func (*keyless) PrimaryKey() string { return "" }

func TestValidateStorable(t *testing.T) {
	tests := []struct {
		name    string
		model   Storable
		wantErr error
	}{
		{name: "valid model", model: &product{}, wantErr: nil},
		{name: "nil model", model: nil, wantErr: ErrValidation},
		{name: "empty collection", model: &unbound{}, wantErr: ErrEmptyCollection},
		{name: "empty primary key field", model: &keyless{}, wantErr: ErrEmptyPrimaryKeyField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStorable(tt.model)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateStorable() error = %v, want nil", err)
				}
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateStorable() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		attrs   Attributes
		wantKey string
		wantErr error
	}{
		{name: "int key", attrs: MustAttributes("id", 1), wantKey: "1"},
		{name: "string key", attrs: MustAttributes("id", "sku-1"), wantKey: "sku-1"},
		{name: "float key", attrs: MustAttributes("id", 1.5), wantKey: "1.5"},
		{name: "missing key", attrs: MustAttributes("name", "x"), wantErr: ErrMissingPrimaryKey},
		{name: "null key", attrs: MustAttributes("id", nil), wantErr: ErrMissingPrimaryKey},
		{name: "empty string key", attrs: MustAttributes("id", ""), wantErr: ErrMissingPrimaryKey},
		{name: "list key", attrs: MustAttributes("id", []any{1}), wantErr: ErrMissingPrimaryKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Fill(&product{}, tt.attrs)
			key, err := ValidateKey(p)

			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateKey() error = %v, want nil", err)
				}
				if key != tt.wantKey {
					t.Errorf("ValidateKey() = %q, want %q", key, tt.wantKey)
				}
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateKey() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("ValidateKey() error = %v, want it to wrap ErrValidation", err)
			}
		})
	}
}

func TestKeyString(t *testing.T) {
	tests := []struct {
		name    string
		id      any
		want    string
		wantErr error
	}{
		{name: "int", id: 1, want: "1"},
		{name: "uint64", id: uint64(42), want: "42"},
		{name: "string", id: "abc", want: "abc"},
		{name: "value", id: Int(7), want: "7"},
		{name: "empty string", id: "", wantErr: ErrValidation},
		{name: "nil", id: nil, wantErr: ErrValidation},
		{name: "unsupported", id: struct{}{}, wantErr: ErrType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := KeyString(tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("KeyString() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("KeyString() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("KeyString() = %q, want %q", got, tt.want)
			}
		})
	}
}
