package querysql

import (
	"strings"
)

// Binder decides how parameter slots appear in rendered SQL.
//
// Three binders exist:
//   - Splice substitutes each slot's escaped value into the text
//   - Template writes the slot as :name
//   - Placeholder writes ? markers and collects the driver arguments
type Binder interface {
	// Bind writes the representation of slot to b.
	Bind(b *strings.Builder, slot *Slot) error
}

// Splice substitutes escaped values. It is stateless.
type Splice struct{}

// Bind implements Binder.
func (Splice) Bind(b *strings.Builder, slot *Slot) error {
	text, err := Escape(slot)
	if err != nil {
		return err
	}
	b.WriteString(text)
	return nil
}

// Template writes :name for every slot, the form the shorthand compiles to
// before any value is known. It is stateless.
type Template struct{}

// Bind implements Binder.
func (Template) Bind(b *strings.Builder, slot *Slot) error {
	b.WriteString(":")
	b.WriteString(slot.Name)
	return nil
}

// Placeholder writes driver placeholders and records their arguments in the
// order they appear in the text. Use a fresh Placeholder per render.
type Placeholder struct {
	args []any
}

// NewPlaceholder creates an empty Placeholder binder.
func NewPlaceholder() *Placeholder {
	return &Placeholder{}
}

// Bind implements Binder.
func (p *Placeholder) Bind(b *strings.Builder, slot *Slot) error {
	args, err := Args(slot)
	if err != nil {
		return err
	}
	for i := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("?")
	}
	p.args = append(p.args, args...)
	return nil
}

// Args returns the collected arguments.
func (p *Placeholder) Args() []any {
	return p.args
}
