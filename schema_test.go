package authlink_test

import (
	"errors"
	"testing"

	al "github.com/authlink/authlink"
)

func TestSchemaBuild(t *testing.T) {
	schema, err := al.NewUserSchema().
		Field("displayName", al.FieldString).
		Field("age", al.FieldInt).
		Build()
	if err != nil {
		t.Fatalf("Failed to build schema: %v", err)
	}

	relations := schema.Relations()
	if len(relations) != 3 {
		t.Fatalf("Expected 3 reserved relations, got %d", len(relations))
	}
	expected := []string{al.RelationAttempts, al.RelationJSONWebTokens, al.RelationAuths}
	for i, name := range expected {
		if relations[i].Name != name {
			t.Errorf("Expected relation %d to be %s, got %s", i, name, relations[i].Name)
		}
	}

	names := schema.FieldNames()
	if len(names) != 2 || names[0] != "age" || names[1] != "displayName" {
		t.Errorf("Expected sorted field names [age displayName], got %v", names)
	}
}

func TestSchemaRejectsReservedFields(t *testing.T) {
	for _, reserved := range []string{al.RelationAttempts, al.RelationJSONWebTokens, al.RelationAuths} {
		_, err := al.NewUserSchema().Field(reserved, al.FieldJSON).Build()
		if !errors.Is(err, al.ErrReservedField) {
			t.Errorf("Expected ErrReservedField for %q, got %v", reserved, err)
		}
	}
}

func TestSchemaRejectsDuplicateFields(t *testing.T) {
	_, err := al.NewUserSchema().
		Field("displayName", al.FieldString).
		Field("displayName", al.FieldString).
		Build()
	if err == nil {
		t.Error("Expected error for duplicate field")
	}
}

func TestSchemaBuilderStopsAtFirstError(t *testing.T) {
	// Later valid calls must not clear an earlier failure.
	_, err := al.NewUserSchema().
		Field(al.RelationAuths, al.FieldJSON).
		Field("displayName", al.FieldString).
		Build()
	if !errors.Is(err, al.ErrReservedField) {
		t.Errorf("Expected ErrReservedField to survive later calls, got %v", err)
	}
}

func TestSchemaValidateAttributes(t *testing.T) {
	schema, err := al.NewUserSchema().Field("displayName", al.FieldString).Build()
	if err != nil {
		t.Fatalf("Failed to build schema: %v", err)
	}

	ok := al.UserAttributes{Username: "x", Extra: map[string]any{"displayName": "X"}}
	if err := schema.ValidateAttributes(ok); err != nil {
		t.Errorf("Expected declared field to validate, got %v", err)
	}

	bad := al.UserAttributes{Username: "x", Extra: map[string]any{"favoriteColor": "red"}}
	if err := schema.ValidateAttributes(bad); err == nil {
		t.Error("Expected error for undeclared field")
	}
}
