// Package catalog holds the product record, its validation rules and the
// service that coordinates the record store with image assets.
package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a single persisted catalog record.
type Product struct {
	ID          string
	Name        string
	Description string
	// Price is a non-negative integer amount in a zero-decimal currency.
	Price decimal.Decimal
	// ImageRef points at an asset owned by the media manager. Empty means no image.
	ImageRef   string
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// HasImage reports whether the product references an image asset.
func (p Product) HasImage() bool {
	return p.ImageRef != ""
}

// apply overwrites the editable fields and stamps the modification time.
// ID, CreatedAt and ImageRef are left untouched.
func (p Product) apply(in Input, now time.Time) Product {
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.ModifiedAt = now
	return p
}

// Fields are raw product values as entered by a client.
type Fields struct {
	Name        string
	Description string
	Price       string
}

// Input is the validated form of Fields.
type Input struct {
	Name        string
	Description string
	Price       decimal.Decimal
}

// Validate trims and checks every field, reporting all failures at once.
func (f Fields) Validate() (Input, error) {
	var (
		in   Input
		errs []FieldError
	)

	in.Name = strings.TrimSpace(f.Name)
	if in.Name == "" {
		errs = append(errs, FieldError{Field: "name", Reason: "required"})
	}
	in.Description = strings.TrimSpace(f.Description)
	if in.Description == "" {
		errs = append(errs, FieldError{Field: "description", Reason: "required"})
	}

	if strings.TrimSpace(f.Price) == "" {
		errs = append(errs, FieldError{Field: "price", Reason: "required"})
	} else {
		price, reason := parsePrice(f.Price)
		if reason != "" {
			errs = append(errs, FieldError{Field: "price", Reason: reason})
		}
		in.Price = price
	}

	if len(errs) > 0 {
		return Input{}, &ValidationError{Fields: errs}
	}
	return in, nil
}

// ParsePrice applies the client-side convention: every non-digit character
// is dropped and the remaining digits must form a positive integer.
func ParsePrice(raw string) (decimal.Decimal, error) {
	price, reason := parsePrice(raw)
	if reason != "" {
		return decimal.Zero, &ValidationError{Fields: []FieldError{{Field: "price", Reason: reason}}}
	}
	return price, nil
}

func parsePrice(raw string) (decimal.Decimal, string) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return decimal.Zero, "must contain digits"
	}

	price, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Zero, "must be an integer"
	}
	if !price.IsPositive() {
		return decimal.Zero, "must be positive"
	}
	return price, ""
}

// CheckNumberPrice validates a price that arrived as a typed number, such as
// a JSON literal. Typed numbers are not digit-stripped: only a plain positive
// integer literal is accepted.
func CheckNumberPrice(literal string) error {
	if literal == "" || strings.TrimLeft(literal, "0123456789") != "" {
		return &ValidationError{Fields: []FieldError{{Field: "price", Reason: "must be a positive integer"}}}
	}
	_, err := ParsePrice(literal)
	return err
}

// Repository persists the whole product collection as one unit.
// No locking is provided between Load and Save.
type Repository interface {
	Load(ctx context.Context) ([]Product, error)
	Save(ctx context.Context, products []Product) error
}
