package ecs

import "fmt"

// LockedWorldError is returned when a direct structural operation (destroy,
// add or remove component) is attempted while an archetype is locked by an
// open Cursor.
type LockedWorldError struct{}

func (e LockedWorldError) Error() string {
	return "world is currently locked for structural mutation"
}

// NameConflictError is a registration error: a name already bound to one
// component type was re-registered against a different type.
type NameConflictError struct {
	Name     string
	Existing TypeID
}

func (e NameConflictError) Error() string {
	return fmt.Sprintf("component name %q already registered to typeId %d", e.Name, e.Existing)
}

// DuplicateEntityError signals that an entity is already present in an
// archetype it is being pushed into. Treated as a programmer error.
type DuplicateEntityError struct {
	Entity Entity
}

func (e DuplicateEntityError) Error() string {
	return fmt.Sprintf("entity %v already present in archetype", e.Entity)
}

// ComponentExistsError reports an add-component call the caller expected to
// be new but that resolves to an in-place replacement.
type ComponentExistsError struct {
	TypeID TypeID
}

func (e ComponentExistsError) Error() string {
	return fmt.Sprintf("component already exists on entity: typeId %d", e.TypeID)
}

// ComponentNotFoundError reports a get/remove against a typeId the entity
// does not carry.
type ComponentNotFoundError struct {
	TypeID TypeID
}

func (e ComponentNotFoundError) Error() string {
	return fmt.Sprintf("component does not exist on entity: typeId %d", e.TypeID)
}

// InvalidEntityError reports use of a stale or null entity handle.
type InvalidEntityError struct {
	Entity Entity
}

func (e InvalidEntityError) Error() string {
	return fmt.Sprintf("entity %v is not valid", e.Entity)
}

// RowOutOfRangeError is an invariant violation: a row index outside
// [0, len) was used against a column or archetype.
type RowOutOfRangeError struct {
	Row, Len int
}

func (e RowOutOfRangeError) Error() string {
	return fmt.Sprintf("row %d out of range (len %d)", e.Row, e.Len)
}

// SchemaFieldError reports a coercion/lookup failure against a typed
// column's schema.
type SchemaFieldError struct {
	Field string
	Cause error
}

func (e SchemaFieldError) Error() string {
	return fmt.Sprintf("schema field %q: %v", e.Field, e.Cause)
}

func (e SchemaFieldError) Unwrap() error { return e.Cause }
