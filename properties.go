package oreasset

import (
	"fmt"
	"strconv"
	"strings"
)

// PropertyType says how an object property value (always held as a string)
// is interpreted. The numeric values are part of the .obj format.
type PropertyType uint8

const (
	PropInt PropertyType = iota
	PropFloat
	PropString
)

var propertyTypeNames = []string{"int", "float", "String"}

func (t PropertyType) String() string {
	if int(t) < len(propertyTypeNames) {
		return propertyTypeNames[t]
	}
	return fmt.Sprintf("PropertyType(%d)", uint8(t))
}

// Valid reports if t is one of the known types
func (t PropertyType) Valid() bool {
	return int(t) < len(propertyTypeNames)
}

// ParsePropertyType accepts the names String() returns, case insensitively.
func ParsePropertyType(name string) (PropertyType, error) {
	for i, n := range propertyTypeNames {
		if strings.EqualFold(n, name) {
			return PropertyType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown property type %q", name)
}

// Property is one field of an object class schema.
type Property struct {
	Name    string
	Default string
	Type    PropertyType
}

// Check returns an error if value can't be read as the property type.
func (p Property) Check(value string) error {
	switch p.Type {
	case PropInt:
		_, err := parseInt(value)
		return err
	case PropFloat:
		_, err := parseFloat(value)
		return err
	}
	return nil
}

func parseInt(v string) (int32, error) {
	i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 32)
	return int32(i), err
}

func parseFloat(v string) (float32, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 32)
	return float32(f), err
}

// property returns the i'th class property & value of o
func (o *Object) property(i int) (Property, string, error) {
	if i < 0 || i >= len(o.Values) || i >= len(o.Class.Properties) {
		return Property{}, "", fmt.Errorf("object property %d out of range", i)
	}
	return o.Class.Properties[i], o.Values[i], nil
}

// Value returns the raw i'th value.
func (o *Object) Value(i int) (string, bool) {
	if i < 0 || i >= len(o.Values) {
		return "", false
	}
	return o.Values[i], true
}

// Int returns the i'th value of an int property
func (o *Object) Int(i int) (int32, error) {
	p, v, err := o.property(i)
	if err != nil {
		return 0, err
	}
	if p.Type != PropInt {
		return 0, fmt.Errorf("property %q is %s, not int", p.Name, p.Type)
	}
	return parseInt(v)
}

// Float returns the i'th value of a float property
func (o *Object) Float(i int) (float32, error) {
	p, v, err := o.property(i)
	if err != nil {
		return 0, err
	}
	if p.Type != PropFloat {
		return 0, fmt.Errorf("property %q is %s, not float", p.Name, p.Type)
	}
	return parseFloat(v)
}

// Text returns the i'th value of a string property
func (o *Object) Text(i int) (string, error) {
	p, v, err := o.property(i)
	if err != nil {
		return "", err
	}
	if p.Type != PropString {
		return "", fmt.Errorf("property %q is %s, not String", p.Name, p.Type)
	}
	return v, nil
}

// Set the i'th value, checking it reads as the property type.
func (o *Object) Set(i int, value string) error {
	p, _, err := o.property(i)
	if err != nil {
		return err
	}
	if err := p.Check(value); err != nil {
		return fmt.Errorf("property %q: %w", p.Name, err)
	}
	o.Values[i] = value
	return nil
}

// SetByName sets the value of the named property.
func (o *Object) SetByName(name, value string) error {
	i := o.Class.PropertyIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: property %q on %s", ErrNotFound, name, o.Class.Name)
	}
	return o.Set(i, value)
}
