package main

import (
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/florist/internal/codec"
	"github.com/xenking/florist/internal/domain/coupon"
	"github.com/xenking/florist/internal/domain/pricing"
	"github.com/xenking/florist/internal/domain/product"
	"github.com/xenking/florist/internal/domain/supplier"
)

// seedData is the content of a seed file.
type seedData struct {
	Products        []product.Product
	Suppliers       []supplier.Supplier
	Coupons         []coupon.Rule
	ShippingMethods []pricing.ShippingMethod
}

func decodeSeed(data []byte) (*seedData, error) {
	var s seedData
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "products":
			err = d.Arr(func(d *jx.Decoder) error {
				p, err := codec.DecodeProduct(d)
				if err != nil {
					return err
				}
				s.Products = append(s.Products, p)
				return nil
			})
		case "suppliers":
			err = d.Arr(func(d *jx.Decoder) error {
				sup, err := decodeSupplier(d)
				if err != nil {
					return err
				}
				s.Suppliers = append(s.Suppliers, sup)
				return nil
			})
		case "coupons":
			s.Coupons, err = codec.DecodeCouponRules(d)
		case "shippingMethods":
			s.ShippingMethods, err = codec.DecodeShippingMethods(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode seed")
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	s.Products = componentsFirst(s.Products)
	return &s, nil
}

func decodeSupplier(d *jx.Decoder) (supplier.Supplier, error) {
	var s supplier.Supplier
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			s.ID, err = d.Str()
		case "name":
			s.Name, err = d.Str()
		case "phone":
			s.Phone, err = d.Str()
		case "email":
			s.Email, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return s, err
}

// validate checks that every component refers to a product in the file and
// that no assembly lists itself.
func (s *seedData) validate() error {
	ids := make(map[string]bool, len(s.Products))
	for _, p := range s.Products {
		if p.ID == "" {
			return errors.New("product without id")
		}
		ids[p.ID] = true
	}
	for _, p := range s.Products {
		for _, c := range p.Assembly {
			switch {
			case c.ProductID == p.ID:
				return errors.Errorf("product %q lists itself as a component", p.ID)
			case !ids[c.ProductID]:
				return errors.Errorf("product %q: unknown component %q", p.ID, c.ProductID)
			case c.Quantity <= 0:
				return errors.Errorf("product %q: component %q quantity must be positive", p.ID, c.ProductID)
			}
		}
	}
	return nil
}

// componentsFirst orders plain products before assemblies so component rows
// always reference an existing product.
func componentsFirst(products []product.Product) []product.Product {
	out := slices.Clone(products)
	slices.SortStableFunc(out, func(a, b product.Product) int {
		switch {
		case a.IsAssembly() == b.IsAssembly():
			return 0
		case a.IsAssembly():
			return 1
		default:
			return -1
		}
	})
	return out
}
