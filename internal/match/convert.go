package match

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/algox/ruling-class-sub004/internal/bind"
)

// Converter coerces a matched value to a declared parameter type.
type Converter interface {
	Convert(value any, to reflect.Type) (any, error)
}

// StandardConverter implements the built-in conversion rules:
//
//   - values already assignable to the target pass through unchanged
//   - nil becomes the zero value of a nillable target
//   - named types convert to and from their underlying kind
//   - numeric widening (never narrowing, never float to int)
//   - strings parse into bool, integers, floats and time.Duration
//
// Everything else fails with a ConversionError.
type StandardConverter struct{}

var durationType = bind.TypeOf[time.Duration]()

// Convert implements Converter.
func (StandardConverter) Convert(value any, to reflect.Type) (any, error) {
	if to == nil {
		return value, nil
	}
	if value == nil {
		if bind.Nillable(to) {
			return reflect.Zero(to).Interface(), nil
		}
		return nil, &ConversionError{Value: value, To: to}
	}

	v := reflect.ValueOf(value)
	from := v.Type()

	if from.AssignableTo(to) {
		return value, nil
	}

	// Same kind, different named type: int <-> type Score int.
	if from.Kind() == to.Kind() && isScalar(from.Kind()) && from.ConvertibleTo(to) {
		return v.Convert(to).Interface(), nil
	}

	if widens(from, to) {
		return v.Convert(to).Interface(), nil
	}

	if from.Kind() == reflect.String {
		return parseString(v.String(), from, to)
	}

	return nil, &ConversionError{Value: value, From: from, To: to}
}

func isScalar(k reflect.Kind) bool {
	return isSigned(k) || isUnsigned(k) || isFloat(k) ||
		k == reflect.Bool || k == reflect.String
}

func isSigned(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

// widens reports whether from converts to to without loss of range.
func widens(from, to reflect.Type) bool {
	fk, tk := from.Kind(), to.Kind()
	switch {
	case isSigned(fk) && isSigned(tk):
		return to.Bits() >= from.Bits()
	case isUnsigned(fk) && isUnsigned(tk):
		return to.Bits() >= from.Bits()
	case isUnsigned(fk) && isSigned(tk):
		return to.Bits() > from.Bits()
	case (isSigned(fk) || isUnsigned(fk)) && tk == reflect.Float64:
		return true
	case (isSigned(fk) || isUnsigned(fk)) && tk == reflect.Float32:
		return from.Bits() <= 16
	case fk == reflect.Float32 && tk == reflect.Float64:
		return true
	}
	return false
}

func parseString(s string, from, to reflect.Type) (any, error) {
	fail := func(err error) (any, error) {
		return nil, &ConversionError{Value: s, From: from, To: to, Err: err}
	}
	s = strings.TrimSpace(s)

	if to == durationType {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fail(err)
		}
		return d, nil
	}

	out := reflect.New(to).Elem()
	switch k := to.Kind(); {
	case k == reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fail(err)
		}
		out.SetBool(b)
	case isSigned(k):
		n, err := strconv.ParseInt(s, 10, to.Bits())
		if err != nil {
			return fail(err)
		}
		out.SetInt(n)
	case isUnsigned(k):
		n, err := strconv.ParseUint(s, 10, to.Bits())
		if err != nil {
			return fail(err)
		}
		out.SetUint(n)
	case isFloat(k):
		f, err := strconv.ParseFloat(s, to.Bits())
		if err != nil {
			return fail(err)
		}
		out.SetFloat(f)
	case k == reflect.String:
		out.SetString(s)
	case k == reflect.Interface && reflect.TypeOf(s).Implements(to):
		return s, nil
	default:
		return fail(nil)
	}
	return out.Interface(), nil
}
