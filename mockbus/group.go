package mockbus

import (
	"strings"

	"github.com/doudou/flexmock/coreengine/expectation"
)

// Group applies constraints to several expectations declared together.
type Group struct {
	expectations []*expectation.Expectation
}

// Each calls fn on every expectation of the group.
func (g *Group) Each(fn func(e *expectation.Expectation)) *Group {
	for _, e := range g.expectations {
		fn(e)
	}
	return g
}

// Expectations returns the grouped expectations in declaration order.
func (g *Group) Expectations() []*expectation.Expectation {
	return append([]*expectation.Expectation(nil), g.expectations...)
}

func (g *Group) With(args ...any) *Group {
	return g.Each(func(e *expectation.Expectation) { e.With(args...) })
}

func (g *Group) WithNoArgs() *Group {
	return g.Each(func(e *expectation.Expectation) { e.WithNoArgs() })
}

func (g *Group) WithAnyArgs() *Group {
	return g.Each(func(e *expectation.Expectation) { e.WithAnyArgs() })
}

func (g *Group) WithKwargs(kwargs map[string]any) *Group {
	return g.Each(func(e *expectation.Expectation) { e.WithKwargs(kwargs) })
}

func (g *Group) Times(n int) *Group {
	return g.Each(func(e *expectation.Expectation) { e.Times(n) })
}

func (g *Group) Once() *Group {
	return g.Each(func(e *expectation.Expectation) { e.Once() })
}

func (g *Group) Twice() *Group {
	return g.Each(func(e *expectation.Expectation) { e.Twice() })
}

func (g *Group) Never() *Group {
	return g.Each(func(e *expectation.Expectation) { e.Never() })
}

func (g *Group) AtLeast() *Group {
	return g.Each(func(e *expectation.Expectation) { e.AtLeast() })
}

func (g *Group) AtMost() *Group {
	return g.Each(func(e *expectation.Expectation) { e.AtMost() })
}

// Ordered orders the grouped expectations in declaration order.
func (g *Group) Ordered() *Group {
	return g.Each(func(e *expectation.Expectation) { e.Ordered() })
}

func (g *Group) AndReturn(values ...any) *Group {
	return g.Each(func(e *expectation.Expectation) { e.AndReturn(values...) })
}

func (g *Group) AndRaise(err error) *Group {
	return g.Each(func(e *expectation.Expectation) { e.AndRaise(err) })
}

// ByDefault turns every grouped expectation into a default. It stops at the
// first expectation that is not the tail of its method.
func (g *Group) ByDefault() error {
	for _, e := range g.expectations {
		if _, err := e.ByDefault(); err != nil {
			return err
		}
	}
	return nil
}

func (g *Group) String() string {
	parts := make([]string, len(g.expectations))
	for i, e := range g.expectations {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
