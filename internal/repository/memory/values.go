package memory

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
)

// normalize reduces a column value to a comparable scalar. Nil pointers
// report ok=false.
func normalize(v reflect.Value) (interface{}, bool) {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, false
	}
	switch v.Type() {
	case timeType, uuidType:
		return v.Interface(), true
	}
	switch v.Kind() {
	case reflect.String:
		return v.String(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.Bool:
		return v.Bool(), true
	}
	return v.Interface(), true
}

func column(row reflect.Value, col string) (interface{}, bool) {
	f := model.FieldByColumn(row, col)
	if !f.IsValid() {
		return nil, false
	}
	return normalize(f)
}

// compare orders two normalized values of the same column.
func compare(a, b interface{}) int {
	switch x := a.(type) {
	case time.Time:
		y, _ := b.(time.Time)
		switch {
		case x.Before(y):
			return -1
		case x.After(y):
			return 1
		}
		return 0
	case string:
		y, _ := b.(string)
		return strings.Compare(x, y)
	case int64:
		y, _ := b.(int64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case float64:
		y, _ := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case bool:
		y, _ := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case uuid.UUID:
		y, _ := b.(uuid.UUID)
		return strings.Compare(x.String(), y.String())
	}
	return 0
}

func equal(a, b interface{}) bool {
	if x, ok := a.(time.Time); ok {
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	}
	return a == b
}

// assign writes val into field, converting between T, *T and named types.
func assign(field reflect.Value, val interface{}) error {
	ft := field.Type()
	if val == nil {
		field.Set(reflect.Zero(ft))
		return nil
	}
	v := reflect.ValueOf(val)
	if v.Kind() == reflect.Ptr && v.IsNil() {
		field.Set(reflect.Zero(ft))
		return nil
	}
	switch {
	case v.Type().AssignableTo(ft):
		field.Set(v)
	case v.Type().ConvertibleTo(ft) && v.Kind() != reflect.Ptr:
		field.Set(v.Convert(ft))
	case ft.Kind() == reflect.Ptr && v.Type().ConvertibleTo(ft.Elem()):
		p := reflect.New(ft.Elem())
		p.Elem().Set(v.Convert(ft.Elem()))
		field.Set(p)
	case v.Kind() == reflect.Ptr && v.Elem().Type().ConvertibleTo(ft):
		field.Set(v.Elem().Convert(ft))
	default:
		return fmt.Errorf("cannot assign %T to %s", val, ft)
	}
	return nil
}

type orderTerm struct {
	column string
	desc   bool
}

// parseOrder reads "a DESC, b ASC" clauses as produced by model.Kind.OrderBy.
func parseOrder(clause string) []orderTerm {
	var terms []orderTerm
	for _, part := range strings.Split(clause, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		terms = append(terms, orderTerm{
			column: fields[0],
			desc:   len(fields) > 1 && strings.EqualFold(fields[1], "DESC"),
		})
	}
	return terms
}
