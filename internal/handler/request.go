package handler

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/xenking/florist/internal/codec"
	"github.com/xenking/florist/internal/domain/order"
	"github.com/xenking/florist/internal/domain/purchase"
)

const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// BadRequestError is a malformed or structurally invalid request body.
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string { return e.Message }

func badRequest(format string, args ...any) error {
	return &BadRequestError{Message: fmt.Sprintf(format, args...)}
}

// Quantity and price rules are left to the domain services so the API
// reports them the same way for every caller.
type itemBody struct {
	ProductID string `validate:"required,max=64"`
	Quantity  int
	UnitPrice decimal.Decimal
}

type orderBody struct {
	CustomerName     string     `validate:"max=120"`
	Items            []itemBody `validate:"dive"`
	CouponCode       string     `validate:"max=64"`
	ShippingMethodID string     `validate:"max=64"`
}

func (b *orderBody) request() order.PlaceOrderRequest {
	items := make([]order.ItemRequest, len(b.Items))
	for i, it := range b.Items {
		items[i] = order.ItemRequest{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return order.PlaceOrderRequest{
		CustomerName:     strings.TrimSpace(b.CustomerName),
		Items:            items,
		CouponCode:       strings.TrimSpace(b.CouponCode),
		ShippingMethodID: b.ShippingMethodID,
	}
}

type purchaseBody struct {
	SupplierID       string     `validate:"required,max=64"`
	Items            []itemBody `validate:"dive"`
	CouponCode       string     `validate:"max=64"`
	ShippingMethodID string     `validate:"max=64"`
	CashTendered     decimal.Decimal
	Note             string `validate:"max=500"`
}

func (b *purchaseBody) request() purchase.RecordRequest {
	items := make([]purchase.Item, len(b.Items))
	for i, it := range b.Items {
		items[i] = purchase.Item{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	return purchase.RecordRequest{
		SupplierID:       b.SupplierID,
		Items:            items,
		CouponCode:       strings.TrimSpace(b.CouponCode),
		ShippingMethodID: b.ShippingMethodID,
		CashTendered:     b.CashTendered,
		Note:             strings.TrimSpace(b.Note),
	}
}

// decodeBody reads the request body, runs decode on it and validates dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, decode func(d *jx.Decoder) error) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return badRequest("read body: %v", err)
	}
	if len(data) == 0 {
		return badRequest("request body is required")
	}
	if err := decode(jx.DecodeBytes(data)); err != nil {
		return badRequest("invalid JSON: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return badRequest("%s", validationMessage(fieldErrs))
		}
		return errors.Wrap(err, "validate request")
	}
	return nil
}

func validationMessage(errs validator.ValidationErrors) string {
	msgs := make([]string, len(errs))
	for i, fe := range errs {
		// Drop the struct name: "orderBody.Items[0].ProductID" -> "Items[0].ProductID".
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		switch fe.Tag() {
		case "required":
			msgs[i] = fmt.Sprintf("%s is required", field)
		case "max":
			msgs[i] = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		default:
			msgs[i] = fmt.Sprintf("%s failed %q validation", field, fe.Tag())
		}
	}
	return strings.Join(msgs, "; ")
}

func decodeItem(d *jx.Decoder, withPrice bool) (itemBody, error) {
	var it itemBody
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch {
		case key == "productId":
			it.ProductID, err = d.Str()
		case key == "quantity":
			it.Quantity, err = d.Int()
		case key == "unitPrice" && withPrice:
			it.UnitPrice, err = codec.DecodeDecimal(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "%q", key)
		}
		return nil
	})
	return it, err
}

func decodeItems(d *jx.Decoder, withPrice bool) ([]itemBody, error) {
	items := []itemBody{}
	err := d.Arr(func(d *jx.Decoder) error {
		it, err := decodeItem(d, withPrice)
		if err != nil {
			return err
		}
		items = append(items, it)
		return nil
	})
	return items, err
}

func (b *orderBody) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "customerName":
			b.CustomerName, err = d.Str()
		case "items":
			b.Items, err = decodeItems(d, false)
		case "couponCode":
			b.CouponCode, err = optStr(d)
		case "shippingMethodId":
			b.ShippingMethodID, err = optStr(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "%q", key)
		}
		return nil
	})
}

func (b *purchaseBody) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "supplierId":
			b.SupplierID, err = d.Str()
		case "items":
			b.Items, err = decodeItems(d, true)
		case "couponCode":
			b.CouponCode, err = optStr(d)
		case "shippingMethodId":
			b.ShippingMethodID, err = optStr(d)
		case "cashTendered":
			b.CashTendered, err = codec.DecodeDecimal(d)
		case "note":
			b.Note, err = optStr(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "%q", key)
		}
		return nil
	})
}

// optStr reads a string, treating null as empty.
func optStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}
