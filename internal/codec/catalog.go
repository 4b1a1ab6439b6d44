package codec

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/florist/internal/domain/coupon"
	"github.com/xenking/florist/internal/domain/pricing"
	"github.com/xenking/florist/internal/domain/product"
)

// Product writes a catalog product. Assembled products carry their
// components.
func Product(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	Decimal(e, p.Price)
	e.FieldStart("category")
	e.Str(p.Category)
	if p.Description != "" {
		e.FieldStart("description")
		e.Str(p.Description)
	}
	if p.ImageURL != "" {
		e.FieldStart("imageUrl")
		e.Str(p.ImageURL)
	}
	if p.IsAssembly() {
		e.FieldStart("components")
		e.ArrStart()
		for _, c := range p.Assembly {
			e.ObjStart()
			e.FieldStart("productId")
			e.Str(c.ProductID)
			e.FieldStart("quantity")
			e.Int(c.Quantity)
			e.ObjEnd()
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}

// Products writes a JSON array of products.
func Products(e *jx.Encoder, products []product.Product) {
	e.ArrStart()
	for _, p := range products {
		Product(e, p)
	}
	e.ArrEnd()
}

// DecodeProduct reads a product written by Product.
func DecodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "price":
			p.Price, err = DecodeDecimal(d)
		case "category":
			p.Category, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "imageUrl":
			p.ImageURL, err = d.Str()
		case "components":
			err = d.Arr(func(d *jx.Decoder) error {
				var c product.Component
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "productId":
						c.ProductID, err = d.Str()
					case "quantity":
						c.Quantity, err = d.Int()
					default:
						err = d.Skip()
					}
					return err
				}); err != nil {
					return err
				}
				p.Assembly = append(p.Assembly, c)
				return nil
			})
		default:
			err = d.Skip()
		}
		return fieldErr(key, err)
	})
	if err != nil {
		return product.Product{}, errors.Wrap(err, "decode product")
	}
	return p, nil
}

// ShippingMethod writes a delivery option.
func ShippingMethod(e *jx.Encoder, m pricing.ShippingMethod) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(m.ID)
	e.FieldStart("name")
	e.Str(m.Name)
	e.FieldStart("cost")
	Decimal(e, m.Cost)
	e.FieldStart("estimatedDelivery")
	e.Str(m.EstimatedDelivery)
	e.ObjEnd()
}

// ShippingMethods writes a JSON array of delivery options.
func ShippingMethods(e *jx.Encoder, methods []pricing.ShippingMethod) {
	e.ArrStart()
	for _, m := range methods {
		ShippingMethod(e, m)
	}
	e.ArrEnd()
}

// DecodeShippingMethods reads an array written by ShippingMethods.
func DecodeShippingMethods(d *jx.Decoder) ([]pricing.ShippingMethod, error) {
	methods := []pricing.ShippingMethod{}
	err := d.Arr(func(d *jx.Decoder) error {
		var m pricing.ShippingMethod
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "id":
				m.ID, err = d.Str()
			case "name":
				m.Name, err = d.Str()
			case "cost":
				m.Cost, err = DecodeDecimal(d)
			case "estimatedDelivery":
				m.EstimatedDelivery, err = d.Str()
			default:
				err = d.Skip()
			}
			return fieldErr(key, err)
		}); err != nil {
			return err
		}
		methods = append(methods, m)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode shipping methods")
	}
	return methods, nil
}

// CouponRule writes a coupon as listed to customers and cached.
func CouponRule(e *jx.Encoder, r coupon.Rule) {
	e.ObjStart()
	e.FieldStart("code")
	e.Str(r.Code)
	e.FieldStart("discountType")
	e.Str(string(r.DiscountType))
	e.FieldStart("value")
	Decimal(e, r.Value)
	e.FieldStart("description")
	e.Str(r.Description)
	e.FieldStart("active")
	e.Bool(r.Active)
	e.FieldStart("validFrom")
	OptTime(e, r.ValidFrom)
	e.FieldStart("validUntil")
	OptTime(e, r.ValidUntil)
	e.ObjEnd()
}

// CouponRules writes a JSON array of coupon rules.
func CouponRules(e *jx.Encoder, rules []coupon.Rule) {
	e.ArrStart()
	for _, r := range rules {
		CouponRule(e, r)
	}
	e.ArrEnd()
}

// DecodeCouponRule reads a rule written by CouponRule.
func DecodeCouponRule(d *jx.Decoder) (coupon.Rule, error) {
	var r coupon.Rule
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			r.Code, err = d.Str()
		case "discountType":
			var s string
			s, err = d.Str()
			r.DiscountType = pricing.DiscountType(s)
		case "value":
			r.Value, err = DecodeDecimal(d)
		case "description":
			r.Description, err = d.Str()
		case "active":
			r.Active, err = d.Bool()
		case "validFrom":
			r.ValidFrom, err = DecodeOptTime(d)
		case "validUntil":
			r.ValidUntil, err = DecodeOptTime(d)
		default:
			err = d.Skip()
		}
		return fieldErr(key, err)
	})
	if err != nil {
		return coupon.Rule{}, errors.Wrap(err, "decode coupon")
	}
	return r, nil
}

// DecodeCouponRules reads an array written by CouponRules.
func DecodeCouponRules(d *jx.Decoder) ([]coupon.Rule, error) {
	rules := []coupon.Rule{}
	err := d.Arr(func(d *jx.Decoder) error {
		r, err := DecodeCouponRule(d)
		if err != nil {
			return err
		}
		rules = append(rules, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}
