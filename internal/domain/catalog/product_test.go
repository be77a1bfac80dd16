package catalog

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr string
	}{
		{name: "plain digits", raw: "3990", want: "3990"},
		{name: "thousands separators", raw: "3.990", want: "3990"},
		{name: "currency formatting", raw: "$ 1.250.000", want: "1250000"},
		{name: "leading zeros", raw: "007", want: "7"},
		{name: "fraction digits are kept as digits", raw: "12,50", want: "1250"},
		{name: "minus sign is stripped", raw: "-15", want: "15"},
		{name: "beyond int64", raw: "123456789012345678901234567890", want: "123456789012345678901234567890"},
		{name: "zero", raw: "0", wantErr: "must be positive"},
		{name: "formatted zero", raw: "$0.000", wantErr: "must be positive"},
		{name: "no digits", raw: "abc", wantErr: "must contain digits"},
		{name: "empty", raw: "", wantErr: "must contain digits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePrice(tt.raw)
			if tt.wantErr != "" {
				require.ErrorIs(t, err, ErrValidation)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got),
				"expected %s, got %s", tt.want, got)
			assert.True(t, got.IsInteger())
		})
	}
}

func TestFieldsValidate(t *testing.T) {
	in, err := Fields{Name: " Mug ", Description: " Ceramic mug ", Price: "3990"}.Validate()
	require.NoError(t, err)
	assert.Equal(t, "Mug", in.Name)
	assert.Equal(t, "Ceramic mug", in.Description)
	assert.True(t, decimal.NewFromInt(3990).Equal(in.Price))

	_, err = Fields{Name: "Mug", Price: "0"}.Validate()
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, []FieldError{
		{Field: "description", Reason: "required"},
		{Field: "price", Reason: "must be positive"},
	}, vErr.Fields)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&ValidationError{Fields: []FieldError{{Field: "name", Reason: "required"}}}, KindValidation},
		{errors.Wrap(ErrNotFound, "get"), KindNotFound},
		{ErrNoImage, KindNoImage},
		{errors.Wrap(ErrUnsupportedMediaType, "store image"), KindUnsupportedMediaType},
		{ErrPayloadTooLarge, KindPayloadTooLarge},
		{&StoreError{Kind: ErrStoreUnavailable, Op: "read", Err: errors.New("eio")}, KindStoreUnavailable},
		{errors.Wrap(&StoreError{Kind: ErrStoreCorrupt, Op: "decode", Err: errors.New("eof")}, "load"), KindStoreCorrupt},
		{errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), "error: %v", tt.err)
	}
}

func TestStoreErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := error(&StoreError{Kind: ErrStoreUnavailable, Op: "write", Err: cause})

	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrStoreCorrupt)
}

func TestCheckNumberPrice(t *testing.T) {
	tests := []struct {
		literal string
		wantErr string
	}{
		{literal: "3990"},
		{literal: "123456789012345678901234567890"},
		{literal: "1e3", wantErr: "must be a positive integer"},
		{literal: "39.9", wantErr: "must be a positive integer"},
		{literal: "-5", wantErr: "must be a positive integer"},
		{literal: "", wantErr: "must be a positive integer"},
		{literal: "0", wantErr: "must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.literal, func(t *testing.T) {
			err := CheckNumberPrice(tt.literal)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			require.Len(t, vErr.Fields, 1)
			assert.Equal(t, "price", vErr.Fields[0].Field)
			assert.Equal(t, tt.wantErr, vErr.Fields[0].Reason)
		})
	}
}
