package util

import (
	"database/sql/driver"
	"encoding/json"
)

// Optional is a value plus a presence flag. It stands in for pointer-typed
// nullables across database columns and JSON fields, and doubles as the
// set/unset marker in update Params structs.
type Optional[T any] struct {
	Val   T
	IsSet bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Val: v, IsSet: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.IsSet {
		return []byte("null"), nil
	}
	return json.Marshal(o.Val)
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = None[T]()
		return nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)

	return nil
}

// Scan implements sql.Scanner so a NULL column lands as None.
func (o *Optional[T]) Scan(value any) error {
	if value == nil {
		*o = None[T]()
		return nil
	}

	var v T
	if scanner, ok := any(&v).(interface{ Scan(any) error }); ok {
		if err := scanner.Scan(value); err != nil {
			return err
		}
	} else {
		v = value.(T)
	}
	*o = Some(v)

	return nil
}

// Value implements driver.Valuer so None writes as NULL.
func (o Optional[T]) Value() (driver.Value, error) {
	if !o.IsSet {
		return nil, nil
	}
	if valuer, ok := any(o.Val).(interface{ Value() (any, error) }); ok {
		return valuer.Value()
	}
	return o.Val, nil
}
