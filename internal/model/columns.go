package model

import (
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Columns lists the db-tagged columns of a row struct in declaration order,
// descending into embedded structs.
func Columns(row interface{}) []string {
	t := reflect.TypeOf(row)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return columns(t, nil)
}

func columns(t reflect.Type, acc []string) []string {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			acc = columns(f.Type, acc)
			continue
		}
		tag := strings.SplitN(f.Tag.Get("db"), ",", 2)[0]
		if tag == "" || tag == "-" {
			continue
		}
		acc = append(acc, tag)
	}
	return acc
}

// FieldByColumn returns the addressable field tagged with column, or an
// invalid Value when no such field exists.
func FieldByColumn(v reflect.Value, column string) reflect.Value {
	for v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			if found := FieldByColumn(v.Field(i), column); found.IsValid() {
				return found
			}
			continue
		}
		if strings.SplitN(f.Tag.Get("db"), ",", 2)[0] == column {
			return v.Field(i)
		}
	}
	return reflect.Value{}
}

// Stamp fills the bookkeeping columns of a row about to be inserted: a new
// id when unset, both timestamps, and version 1 for versioned rows.
func Stamp(row interface{}, now time.Time) {
	v := reflect.ValueOf(row)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return
	}
	if id := FieldByColumn(v, "id"); id.IsValid() && id.Type() == reflect.TypeOf(uuid.UUID{}) {
		if id.Interface().(uuid.UUID) == uuid.Nil {
			id.Set(reflect.ValueOf(uuid.New()))
		}
	}
	for _, col := range []string{"created_at", "updated_at"} {
		if f := FieldByColumn(v, col); f.IsValid() && f.Type() == reflect.TypeOf(now) {
			if f.Interface().(time.Time).IsZero() {
				f.Set(reflect.ValueOf(now))
			}
		}
	}
	if version := FieldByColumn(v, "version"); version.IsValid() && version.Kind() == reflect.Int && version.Int() == 0 {
		version.SetInt(1)
	}
}
