package scopedi

import (
	"github.com/junioryono/scopedi/internal/reflection"
)

// New returns a zero-argument constructor that allocates a zero T.
//
//	services.AddTransient(scopedi.New[bytes.Buffer]())
func New[T any]() func() *T {
	return func() *T {
		return new(T)
	}
}

// Struct returns a constructor for *T whose parameters are the exported
// fields of T. Each field is resolved from the provider and assigned before
// the instance is returned. Fields tagged `inject:"-"` are left untouched.
//
//	type Handler struct {
//	    Logger *zap.Logger
//	    Repo   Repository
//	    hits   int
//	    Cache  *Cache `inject:"-"`
//	}
//
//	services.AddScoped(scopedi.Struct[Handler]())
//
// Struct panics if T is not a struct type.
func Struct[T any]() any {
	fn, err := reflection.StructConstructor(typeOf[T]())
	if err != nil {
		panic(err)
	}
	return fn.Interface()
}
