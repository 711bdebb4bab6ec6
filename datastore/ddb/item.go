/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-openapi/strfmt"

	"github.com/suparena/personstore/domain"
	"github.com/suparena/personstore/registry"
)

// Attribute names of the stored items.
const (
	attrEntityType = "EntityType"
	attrID         = "id"
	attrName       = "name"
	attrBirthDate  = "birth_date"
	attrDeathDate  = "death_date"
	attrData       = "data"
	attrRevision   = "revision"
	attrCounter    = "person_id"
)

// personItem is the stored form of a person. Dates are ISO-8601 calendar strings.
type personItem struct {
	PK         string  `dynamodbav:"PK"`
	SK         string  `dynamodbav:"SK"`
	EntityType string  `dynamodbav:"EntityType"`
	ID         int64   `dynamodbav:"id"`
	Name       string  `dynamodbav:"name"`
	BirthDate  string  `dynamodbav:"birth_date"`
	DeathDate  *string `dynamodbav:"death_date,omitempty"`
	Data       []byte  `dynamodbav:"data,omitempty"`
	Revision   int64   `dynamodbav:"revision"`
}

// counterItem holds the next person id to hand out.
type counterItem struct {
	PK       string `dynamodbav:"PK"`
	SK       string `dynamodbav:"SK"`
	PersonID int64  `dynamodbav:"person_id"`
}

func init() {
	registry.RegisterIndexMap[personItem](map[string]string{
		"PK": "person#{id}",
		"SK": "person",
	})
	registry.RegisterIndexMap[counterItem](map[string]string{
		"PK": "person-counter",
		"SK": "person_id",
	})
	registry.RegisterType(domain.EntityType, func(item map[string]types.AttributeValue) (interface{}, error) {
		return unmarshalPerson(item)
	})
}

func personKey(id int64) (map[string]types.AttributeValue, error) {
	expanded, err := expandMacros(registry.MustGetIndexMap[personItem](), personItem{ID: id})
	if err != nil {
		return nil, err
	}
	return buildKeyFromExpanded(expanded)
}

// personSortKey is the SK every person item carries.
func personSortKey() string {
	return registry.MustGetIndexMap[personItem]()["SK"]
}

func counterKey() (map[string]types.AttributeValue, error) {
	expanded, err := expandMacros(registry.MustGetIndexMap[counterItem](), counterItem{})
	if err != nil {
		return nil, err
	}
	return buildKeyFromExpanded(expanded)
}

func marshalPerson(p domain.Person) (map[string]types.AttributeValue, error) {
	item := personItem{
		EntityType: domain.EntityType,
		ID:         p.ID,
		Name:       p.Name,
		BirthDate:  p.BirthDate.String(),
		Data:       p.Data,
		Revision:   p.Revision,
	}
	if p.DeathDate != nil {
		d := p.DeathDate.String()
		item.DeathDate = &d
	}

	expanded, err := expandMacros(registry.MustGetIndexMap[personItem](), item)
	if err != nil {
		return nil, err
	}
	item.PK, item.SK = expanded["PK"], expanded["SK"]

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal person: %w", err)
	}
	return av, nil
}

func unmarshalPerson(av map[string]types.AttributeValue) (domain.Person, error) {
	var item personItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return domain.Person{}, fmt.Errorf("failed to unmarshal person: %w", err)
	}

	birth, err := domain.ParseDate(item.BirthDate)
	if err != nil {
		return domain.Person{}, fmt.Errorf("person %d has malformed birth_date: %w", item.ID, err)
	}
	p := domain.Person{
		ID:        item.ID,
		Name:      item.Name,
		BirthDate: birth,
		Data:      item.Data,
		Revision:  item.Revision,
	}
	if item.DeathDate != nil {
		var death strfmt.Date
		if death, err = domain.ParseDate(*item.DeathDate); err != nil {
			return domain.Person{}, fmt.Errorf("person %d has malformed death_date: %w", item.ID, err)
		}
		p.DeathDate = &death
	}
	return p, nil
}

// decodeItem resolves an item through the type registry by its EntityType attribute.
// Items written without EntityType are typed by their sort key.
func decodeItem(av map[string]types.AttributeValue) (domain.Person, error) {
	var entityType string
	if attr, ok := av[attrEntityType]; ok {
		if err := attributevalue.Unmarshal(attr, &entityType); err != nil {
			return domain.Person{}, fmt.Errorf("failed to unmarshal EntityType: %w", err)
		}
	}
	if entityType == "" {
		var sk string
		if attr, ok := av["SK"]; ok {
			if err := attributevalue.Unmarshal(attr, &sk); err != nil {
				return domain.Person{}, fmt.Errorf("failed to unmarshal SK: %w", err)
			}
		}
		if sk == personSortKey() {
			entityType = domain.EntityType
		}
	}

	unmarshalFn, err := registry.GetUnmarshalFunc(entityType)
	if err != nil {
		return domain.Person{}, err
	}
	obj, err := unmarshalFn(av)
	if err != nil {
		return domain.Person{}, err
	}
	p, ok := obj.(domain.Person)
	if !ok {
		return domain.Person{}, fmt.Errorf("entity type %q does not decode to a person", entityType)
	}
	return p, nil
}
