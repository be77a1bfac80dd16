package jsonfile

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/product-catalog/internal/domain/catalog"
)

const timeLayout = time.RFC3339Nano

// encodeDocument renders the collection as an indented JSON array.
func encodeDocument(products []catalog.Product) []byte {
	e := &jx.Encoder{}
	e.SetIdent(2)

	e.ArrStart()
	for _, p := range products {
		encodeProduct(e, p)
	}
	e.ArrEnd()

	return append(e.Bytes(), '\n')
}

func encodeProduct(e *jx.Encoder, p catalog.Product) {
	e.ObjStart()

	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("price")
	e.Num(jx.Num(p.Price.String()))

	e.FieldStart("imageRef")
	if p.HasImage() {
		e.Str(p.ImageRef)
	} else {
		e.Null()
	}

	e.FieldStart("createdAt")
	e.Str(p.CreatedAt.UTC().Format(timeLayout))
	if !p.ModifiedAt.IsZero() {
		e.FieldStart("modifiedAt")
		e.Str(p.ModifiedAt.UTC().Format(timeLayout))
	}

	e.ObjEnd()
}

// decodeDocument parses and checks a collection document. Any structural
// or invariant violation is reported as an error.
func decodeDocument(data []byte) ([]catalog.Product, error) {
	if !jx.Valid(data) {
		return nil, errors.New("invalid json")
	}

	d := jx.DecodeBytes(data)
	if d.Next() != jx.Array {
		return nil, errors.New("document is not an array")
	}

	products := []catalog.Product{}
	seen := make(map[string]struct{})
	if err := d.Arr(func(d *jx.Decoder) error {
		p, err := decodeProduct(d)
		if err != nil {
			return errors.Wrapf(err, "record %d", len(products))
		}
		if _, dup := seen[p.ID]; dup {
			return errors.Errorf("duplicate id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
		products = append(products, p)
		return nil
	}); err != nil {
		return nil, err
	}
	return products, nil
}

func decodeProduct(d *jx.Decoder) (catalog.Product, error) {
	var (
		p          catalog.Product
		hasID      bool
		hasCost    bool
		hasCreated bool
	)
	if d.Next() != jx.Object {
		return p, errors.New("record is not an object")
	}

	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
			hasID = err == nil && p.ID != ""
		case "name":
			p.Name, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "price":
			p.Price, err = decodePrice(d)
			hasCost = err == nil
		case "imageRef":
			p.ImageRef, err = decodeOptionalStr(d)
		case "createdAt":
			p.CreatedAt, err = decodeTime(d)
			hasCreated = err == nil
		case "modifiedAt":
			var s string
			if s, err = decodeOptionalStr(d); err == nil && s != "" {
				p.ModifiedAt, err = time.Parse(timeLayout, s)
			}
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return p, err
	}

	switch {
	case !hasID:
		return p, errors.New("missing id")
	case !hasCost:
		return p, errors.Errorf("product %q: missing price", p.ID)
	case !hasCreated:
		return p, errors.Errorf("product %q: missing createdAt", p.ID)
	}
	return p, nil
}

func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	if tt := d.Next(); tt != jx.Number {
		return decimal.Zero, errors.Errorf("price must be a number, got %s", tt)
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Zero, err
	}
	price, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, err
	}
	if price.IsNegative() || !price.IsInteger() {
		return decimal.Zero, errors.Errorf("price %s is not a non-negative integer", n)
	}
	return price, nil
}

func decodeOptionalStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(timeLayout, s)
}
