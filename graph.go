package scopedi

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	"go.uber.org/zap"

	"github.com/junioryono/scopedi/internal/graph"
)

// GraphFormat selects the output of Provider.WriteGraph.
type GraphFormat int

const (
	// GraphText lists services by dependency depth, leaves first.
	GraphText GraphFormat = iota

	// GraphDOT writes Graphviz DOT.
	GraphDOT
)

// dependencyGraph builds the static graph of constructor parameters. Factories
// taking a Resolver contribute a node without edges.
func dependencyGraph(defs []ServiceDefinition) *graph.Graph {
	g := graph.New(formatType)
	for _, def := range defs {
		g.Add(def.ServiceType, def.Lifetime.String(), def.Dependencies)
	}
	return g
}

func implicitService(t reflect.Type) bool {
	return t == providerType || t == resolverType || t == typeOf[*zap.Logger]()
}

// validateDefinitions reports constructor parameters with no definition and
// the first cycle among constructor parameters.
func validateDefinitions(defs []ServiceDefinition) error {
	g := dependencyGraph(defs)

	var errs []error

	available := make([]reflect.Type, 0, len(defs))
	for _, def := range defs {
		available = append(available, def.ServiceType)
	}
	for _, t := range g.Missing(implicitService) {
		errs = append(errs, ResolutionError{ServiceType: t, Available: available})
	}

	if cycle := g.FindCycle(); cycle != nil {
		path := cycle.Path
		errs = append(errs, CircularDependencyError{
			Requested: path[0],
			Innermost: path[len(path)-1],
			Path:      path,
		})
	}

	return errors.Join(errs...)
}

// Validate checks the constructor dependencies of every definition without
// constructing anything. It reports dependencies that are not registered and
// cycles between constructors. Dependencies fetched by factories through a
// Resolver are only checked at resolution time.
func (c *Collection) Validate() error {
	if err := c.Err(); err != nil {
		return err
	}
	return validateDefinitions(c.Definitions())
}

// WriteGraph writes the static dependency graph of the provider's services.
func (p *Provider) WriteGraph(w io.Writer, format GraphFormat) error {
	g := dependencyGraph(p.Definitions())

	switch format {
	case GraphText:
		return g.WriteText(w)
	case GraphDOT:
		return g.WriteDOT(w)
	default:
		return fmt.Errorf("unknown graph format %d", int(format))
	}
}
