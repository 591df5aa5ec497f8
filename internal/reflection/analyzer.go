// Package reflection discovers what a constructor needs and what it produces.
//
// A constructor is either a function or a pre-built instance. For functions the
// analyzer reports the ordered parameter types, which the container resolves
// before calling it, and the produced type. Struct types can be turned into a
// synthetic constructor whose parameters are the struct's injectable fields.
package reflection

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

var (
	ErrNilConstructor    = errors.New("constructor cannot be nil")
	ErrNoReturn          = errors.New("constructor must return a value")
	ErrTooManyReturns    = errors.New("constructor must return T or (T, error)")
	ErrVariadic          = errors.New("variadic constructors are not supported")
	ErrOnlyError         = errors.New("constructor only returns error")
	ErrNotStruct         = errors.New("type is not a struct")
	ErrUnsupportedParam  = errors.New("unsupported parameter type")
	ErrUnsupportedResult = errors.New("unsupported result type")
)

// ConstructorInfo describes a function constructor or an instance.
type ConstructorInfo struct {
	// Type is the func type for constructors or the value type for instances.
	Type reflect.Type

	// IsFunc is false for pre-built instances.
	IsFunc bool

	// Parameters are the constructor's parameter types in call order.
	Parameters []reflect.Type

	// Result is the type the constructor produces.
	Result reflect.Type

	// HasErrorReturn is true for constructors shaped (T, error).
	HasErrorReturn bool
}

// Analyzer inspects constructors and caches the result per func type.
type Analyzer struct {
	mu    sync.RWMutex
	cache map[reflect.Type]*ConstructorInfo
}

// New creates a new Analyzer.
func New() *Analyzer {
	return &Analyzer{
		cache: make(map[reflect.Type]*ConstructorInfo),
	}
}

// Analyze inspects constructor. Non-func values are treated as instances.
func (a *Analyzer) Analyze(constructor any) (*ConstructorInfo, error) {
	if constructor == nil {
		return nil, ErrNilConstructor
	}

	val := reflect.ValueOf(constructor)
	typ := val.Type()

	if typ.Kind() != reflect.Func {
		if (typ.Kind() == reflect.Pointer || typ.Kind() == reflect.Interface) && val.IsNil() {
			return nil, ErrNilConstructor
		}
		return &ConstructorInfo{Type: typ, Result: typ}, nil
	}

	if val.IsNil() {
		return nil, ErrNilConstructor
	}

	// Closures built from the same literal share a func type, so the type is the
	// cache key. Only signature data is cached, never the value.
	a.mu.RLock()
	if cached, ok := a.cache[typ]; ok {
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	info, err := analyzeFunc(typ)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.cache[typ] = info
	a.mu.Unlock()

	return info, nil
}

// CacheSize returns the number of cached analyses.
func (a *Analyzer) CacheSize() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.cache)
}

func analyzeFunc(fnType reflect.Type) (*ConstructorInfo, error) {
	if fnType.IsVariadic() {
		return nil, ErrVariadic
	}

	info := &ConstructorInfo{
		Type:       fnType,
		IsFunc:     true,
		Parameters: make([]reflect.Type, fnType.NumIn()),
	}

	for i := 0; i < fnType.NumIn(); i++ {
		param := fnType.In(i)
		if err := checkServiceType(param); err != nil {
			return nil, fmt.Errorf("parameter %d (%s): %w", i, param, ErrUnsupportedParam)
		}
		info.Parameters[i] = param
	}

	switch fnType.NumOut() {
	case 0:
		return nil, ErrNoReturn
	case 1:
		if fnType.Out(0) == errType {
			return nil, ErrOnlyError
		}
		info.Result = fnType.Out(0)
	case 2:
		if fnType.Out(1) != errType {
			return nil, ErrTooManyReturns
		}
		if fnType.Out(0) == errType {
			return nil, ErrOnlyError
		}
		info.Result = fnType.Out(0)
		info.HasErrorReturn = true
	default:
		return nil, ErrTooManyReturns
	}

	if err := checkServiceType(info.Result); err != nil {
		return nil, fmt.Errorf("%s: %w", info.Result, ErrUnsupportedResult)
	}

	return info, nil
}

// checkServiceType rejects kinds that cannot sensibly be a service.
func checkServiceType(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Invalid, reflect.Chan, reflect.UnsafePointer:
		return ErrUnsupportedParam
	}
	return nil
}

// Call invokes fn with args and splits off the trailing error, if any.
func (info *ConstructorInfo) Call(fn reflect.Value, args []reflect.Value) (any, error) {
	out := fn.Call(args)

	if info.HasErrorReturn {
		if errVal := out[1]; !errVal.IsNil() {
			return nil, errVal.Interface().(error)
		}
	}

	return out[0].Interface(), nil
}

// Field is one injectable field of a struct.
type Field struct {
	Name  string
	Index int
	Type  reflect.Type
}

// InjectableFields lists the exported fields of struct type t that should be
// injected. Fields tagged `inject:"-"` are skipped.
func InjectableFields(t reflect.Type) ([]Field, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s: %w", t, ErrNotStruct)
	}

	fields := make([]Field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if tag, ok := f.Tag.Lookup("inject"); ok && tag == "-" {
			continue
		}
		if err := checkServiceType(f.Type); err != nil {
			return nil, fmt.Errorf("field %s (%s): %w", f.Name, f.Type, ErrUnsupportedParam)
		}
		fields = append(fields, Field{Name: f.Name, Index: i, Type: f.Type})
	}

	return fields, nil
}

// StructConstructor builds a func whose parameters are the injectable fields
// of struct type t and which returns a *t with those fields assigned.
func StructConstructor(t reflect.Type) (reflect.Value, error) {
	fields, err := InjectableFields(t)
	if err != nil {
		return reflect.Value{}, err
	}

	in := make([]reflect.Type, len(fields))
	for i, f := range fields {
		in[i] = f.Type
	}

	fnType := reflect.FuncOf(in, []reflect.Type{reflect.PointerTo(t)}, false)
	fn := reflect.MakeFunc(fnType, func(args []reflect.Value) []reflect.Value {
		ptr := reflect.New(t)
		elem := ptr.Elem()
		for i, f := range fields {
			elem.Field(f.Index).Set(args[i])
		}
		return []reflect.Value{ptr}
	})

	return fn, nil
}
