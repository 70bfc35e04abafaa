package authlink

import (
	"fmt"
	"sort"
)

// Reserved relation names on the user entity. Applications compose their own
// fields on top of these; none of them may be overridden.
const (
	RelationAttempts      = "attempts"      // reverse of the attempt-recording collaborator
	RelationJSONWebTokens = "jsonWebTokens" // reverse of the token-issuance collaborator
	RelationAuths         = "auths"         // reverse of Auth.UserID
)

// FieldType is the declared kind of an application-specific user field.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldInt    FieldType = "int"
	FieldFloat  FieldType = "float"
	FieldBool   FieldType = "bool"
	FieldTime   FieldType = "time"
	FieldJSON   FieldType = "json"
)

// Relation declares a one-to-many relation owned by the far side's Via
// field.
type Relation struct {
	Name       string
	Collection string
	Via        string
}

// UserSchema is the concrete user entity schema produced at startup: the
// three reserved relations plus the application's declared fields. Unlike
// the call-time map merge it replaces, a schema is built once and is
// immutable afterwards.
type UserSchema struct {
	relations []Relation
	fields    map[string]FieldType
}

// UserSchemaBuilder composes application fields onto the base user schema.
type UserSchemaBuilder struct {
	fields map[string]FieldType
	err    error
}

// NewUserSchema starts a schema definition.
func NewUserSchema() *UserSchemaBuilder {
	return &UserSchemaBuilder{fields: map[string]FieldType{}}
}

// Field declares an application-specific user field.
func (b *UserSchemaBuilder) Field(name string, t FieldType) *UserSchemaBuilder {
	if b.err != nil {
		return b
	}
	switch name {
	case RelationAttempts, RelationJSONWebTokens, RelationAuths:
		b.err = fmt.Errorf("%w: %s", ErrReservedField, name)
		return b
	}
	if _, ok := b.fields[name]; ok {
		b.err = fmt.Errorf("duplicate field: %s", name)
		return b
	}
	b.fields[name] = t
	return b
}

// Build produces the final schema, with the reserved relations always
// declared first.
func (b *UserSchemaBuilder) Build() (*UserSchema, error) {
	if b.err != nil {
		return nil, b.err
	}
	fields := make(map[string]FieldType, len(b.fields))
	for k, v := range b.fields {
		fields[k] = v
	}
	return &UserSchema{
		relations: []Relation{
			{Name: RelationAttempts, Collection: "attempt", Via: "user"},
			{Name: RelationJSONWebTokens, Collection: "jwt", Via: "owner"},
			{Name: RelationAuths, Collection: "auth", Via: "user"},
		},
		fields: fields,
	}, nil
}

// Relations returns the declared relations.
func (s *UserSchema) Relations() []Relation {
	out := make([]Relation, len(s.relations))
	copy(out, s.relations)
	return out
}

// FieldNames returns the application field names in sorted order.
func (s *UserSchema) FieldNames() []string {
	names := make([]string, 0, len(s.fields))
	for name := range s.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateAttributes checks a user attribute bag against the schema: every
// Extra key must be a declared field.
func (s *UserSchema) ValidateAttributes(attrs UserAttributes) error {
	for name := range attrs.Extra {
		if _, ok := s.fields[name]; !ok {
			return fmt.Errorf("undeclared user field: %s", name)
		}
	}
	return nil
}
