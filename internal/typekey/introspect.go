package typekey

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

var (
	ContextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	ErrorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// FuncInfo describes a provider callable: its positional input types
// (excluding a leading context.Context) and whether it reports errors.
type FuncInfo struct {
	Type         reflect.Type
	In           []reflect.Type
	Out          reflect.Type
	TakesContext bool
	ReturnsError bool
}

// DescribeFunc validates that fn is a function returning T or (T, error)
// and reports its shape. A leading context.Context input is recorded but
// excluded from In.
func DescribeFunc(fn any) (FuncInfo, error) {
	if fn == nil {
		return FuncInfo{}, errors.New("fn is nil")
	}

	t := reflect.TypeOf(fn)
	if t.Kind() != reflect.Func {
		return FuncInfo{}, fmt.Errorf("fn must be a function, got %s", Key(t))
	}
	if t.IsVariadic() {
		return FuncInfo{}, errors.New("variadic functions are not supported")
	}

	info := FuncInfo{Type: t}

	switch t.NumOut() {
	case 1:
		if t.Out(0) == ErrorType {
			return FuncInfo{}, errors.New("fn must return a value, not only an error")
		}
		info.Out = t.Out(0)
	case 2:
		if t.Out(1) != ErrorType {
			return FuncInfo{}, errors.New("fn's second return value must be error")
		}
		info.Out = t.Out(0)
		info.ReturnsError = true
	default:
		return FuncInfo{}, fmt.Errorf("fn must return T or (T, error), got %d values", t.NumOut())
	}

	start := 0
	if t.NumIn() > 0 && t.In(0) == ContextType {
		info.TakesContext = true
		start = 1
	}
	for i := start; i < t.NumIn(); i++ {
		info.In = append(info.In, t.In(i))
	}

	return info, nil
}

// Field is an exported struct field carrying the injection tag.
type Field struct {
	Name  string
	Type  reflect.Type
	Tag   string
	Index int
}

// StructFields lists the exported fields of t (a struct or pointer to
// struct) that carry the given tag.
func StructFields(t reflect.Type, tag string) ([]Field, error) {
	if t == nil {
		return nil, errors.New("type is nil")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s is not a struct type", Key(t))
	}

	var fields []Field
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		val, ok := f.Tag.Lookup(tag)
		if !ok {
			continue
		}
		if !f.IsExported() {
			return nil, fmt.Errorf("field %s.%s carries a %q tag but is unexported", Key(t), f.Name, tag)
		}
		fields = append(fields, Field{
			Name:  f.Name,
			Type:  f.Type,
			Tag:   val,
			Index: i,
		})
	}

	return fields, nil
}
