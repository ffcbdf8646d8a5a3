package bus

import (
	"sort"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"

	"github.com/GriffinCanCode/stratisd/internal/shared/status"
)

// property is one row of an accessor table. A nil set makes the property
// read-only.
type property[T any] struct {
	get func(T) any
	set func(T, any) error
}

// propertyTable maps property names to accessors for one entity type
type propertyTable[T any] map[string]property[T]

// propertyHandler is what the bus exports as org.freedesktop.DBus.Properties
type propertyHandler interface {
	Get(iface, name string) (dbus.Variant, *dbus.Error)
	GetAll(iface string) (map[string]dbus.Variant, *dbus.Error)
	Set(iface, name string, value dbus.Variant) *dbus.Error
	values() map[string]dbus.Variant
	introspection() []introspect.Property
}

// properties serves the properties of one object. Values are read from the
// target on every call.
type properties[T any] struct {
	target T
	iface  string
	table  propertyTable[T]

	// changed is called after a successful Set for targets that do not
	// announce their own changes
	changed func(name string, value any)
}

func newProperties[T any](target T, iface string, table propertyTable[T]) *properties[T] {
	return &properties[T]{target: target, iface: iface, table: table}
}

func (p *properties[T]) Get(iface, name string) (dbus.Variant, *dbus.Error) {
	if iface != p.iface {
		return dbus.Variant{}, prop.ErrIfaceNotFound
	}
	acc, ok := p.table[name]
	if !ok {
		return dbus.Variant{}, prop.ErrPropNotFound
	}
	return dbus.MakeVariant(acc.get(p.target)), nil
}

// GetAll returns every property of iface. An empty iface means the object's
// own interface.
func (p *properties[T]) GetAll(iface string) (map[string]dbus.Variant, *dbus.Error) {
	if iface != "" && iface != p.iface {
		return nil, prop.ErrIfaceNotFound
	}
	return p.values(), nil
}

func (p *properties[T]) Set(iface, name string, value dbus.Variant) *dbus.Error {
	if iface != p.iface {
		return prop.ErrIfaceNotFound
	}
	acc, ok := p.table[name]
	if !ok {
		return prop.ErrPropNotFound
	}
	if acc.set == nil {
		return prop.ErrReadOnly
	}
	if value.Signature() != dbus.SignatureOf(acc.get(p.target)) {
		return prop.ErrInvalidArg
	}
	if err := acc.set(p.target, value.Value()); err != nil {
		return statusError(err)
	}
	if p.changed != nil {
		p.changed(name, value.Value())
	}
	return nil
}

func (p *properties[T]) values() map[string]dbus.Variant {
	out := make(map[string]dbus.Variant, len(p.table))
	for name, acc := range p.table {
		out[name] = dbus.MakeVariant(acc.get(p.target))
	}
	return out
}

func (p *properties[T]) introspection() []introspect.Property {
	names := make([]string, 0, len(p.table))
	for name := range p.table {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]introspect.Property, 0, len(names))
	for _, name := range names {
		acc := p.table[name]
		access := "read"
		if acc.set != nil {
			access = "readwrite"
		}
		out = append(out, introspect.Property{
			Name:   name,
			Type:   dbus.SignatureOf(acc.get(p.target)).String(),
			Access: access,
			Annotations: []introspect.Annotation{
				{Name: "org.freedesktop.DBus.Property.EmitsChangedSignal", Value: "true"},
			},
		})
	}
	return out
}

// statusError turns a coded error into a named bus error,
// e.g. org.storage.stratis1.Error.STRATIS_NULL
func statusError(err error) *dbus.Error {
	code := status.CodeOf(err)
	return dbus.NewError(errorPrefix+code.String(), []interface{}{status.Message(err)})
}
