/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/personstore/datastore"
	"github.com/suparena/personstore/domain"
	errs "github.com/suparena/personstore/errors"
)

const (
	condItemExists   = "attribute_exists(PK)"
	condItemAbsent   = "attribute_not_exists(PK)"
	condRevisionSwap = "attribute_exists(PK) AND #rev = :expected"
	counterIncrement = "ADD #counter :one"
)

var errMissingCounter = errors.New("counter item has no person_id attribute")

// engine is the Engine handed to a unit of work.
type engine struct {
	store *Store
}

var _ datastore.Engine = (*engine)(nil)

// AllocateID atomically increments the counter item and returns its previous value.
// A missing counter is created at zero first, so the first id is 0.
func (e *engine) AllocateID(ctx context.Context) (int64, error) {
	id, err := e.incrementCounter(ctx)
	if _, failed := conditionFailed(err); !failed {
		return id, err
	}

	if err := e.bootstrapCounter(ctx); err != nil {
		return 0, err
	}
	id, err = e.incrementCounter(ctx)
	if _, failed := conditionFailed(err); failed {
		return 0, unavailable("allocate_id", err)
	}
	return id, err
}

func (e *engine) incrementCounter(ctx context.Context) (int64, error) {
	key, err := counterKey()
	if err != nil {
		return 0, err
	}

	out, err := e.store.client.UpdateItem(ctx, &sdk.UpdateItemInput{
		TableName:                aws.String(e.store.tableName),
		Key:                      key,
		UpdateExpression:         aws.String(counterIncrement),
		ConditionExpression:      aws.String(condItemExists),
		ExpressionAttributeNames: map[string]string{"#counter": attrCounter},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedOld,
	})
	if err != nil {
		if _, failed := conditionFailed(err); failed {
			return 0, err
		}
		return 0, unavailable("allocate_id", err)
	}

	var id int64
	attr, ok := out.Attributes[attrCounter]
	if !ok {
		return 0, unavailable("allocate_id", errMissingCounter)
	}
	if err := attributevalue.Unmarshal(attr, &id); err != nil {
		return 0, unavailable("allocate_id", err)
	}
	return id, nil
}

// bootstrapCounter creates the counter item. Losing the race to another writer is fine.
func (e *engine) bootstrapCounter(ctx context.Context) error {
	key, err := counterKey()
	if err != nil {
		return err
	}
	item, err := attributevalue.MarshalMap(counterItem{PersonID: 0})
	if err != nil {
		return err
	}
	for k, v := range key {
		item[k] = v
	}

	_, err = e.store.client.PutItem(ctx, &sdk.PutItemInput{
		TableName:           aws.String(e.store.tableName),
		Item:                item,
		ConditionExpression: aws.String(condItemAbsent),
	})
	if _, failed := conditionFailed(err); failed {
		return nil
	}
	if err != nil {
		return unavailable("allocate_id", err)
	}
	e.store.logger.Debug("bootstrapped person id counter", "table", e.store.tableName)
	return nil
}

func (e *engine) Insert(ctx context.Context, p domain.Person) error {
	if err := p.Validate(); err != nil {
		return err
	}
	item, err := marshalPerson(p)
	if err != nil {
		return err
	}

	_, err = e.store.client.PutItem(ctx, &sdk.PutItemInput{
		TableName:           aws.String(e.store.tableName),
		Item:                item,
		ConditionExpression: aws.String(condItemAbsent),
	})
	if err != nil {
		if _, failed := conditionFailed(err); failed {
			return errs.NewDuplicateIdentifierError(domain.EntityType, p.ID)
		}
		return unavailable("insert", err)
	}
	return nil
}

func (e *engine) GetByID(ctx context.Context, id int64) (*domain.Person, error) {
	key, err := personKey(id)
	if err != nil {
		return nil, err
	}

	out, err := e.store.client.GetItem(ctx, &sdk.GetItemInput{
		TableName:      aws.String(e.store.tableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, unavailable("get_by_id", err)
	}
	if len(out.Item) == 0 {
		return nil, errs.NewNotFoundError(domain.EntityType, id)
	}

	p, err := decodeItem(out.Item)
	if err != nil {
		return nil, unavailable("get_by_id", err)
	}
	return &p, nil
}

func (e *engine) UpdateWithRevision(ctx context.Context, id, expected int64, mutate datastore.Mutator) (*domain.Person, error) {
	current, err := e.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Revision != expected {
		return nil, errs.NewConcurrentModificationError(domain.EntityType, id, expected, current.Revision)
	}

	if mutate != nil {
		if err := mutate(current); err != nil {
			return nil, err
		}
	}
	current.ID = id
	if err := current.Validate(); err != nil {
		return nil, err
	}

	key, err := personKey(id)
	if err != nil {
		return nil, err
	}
	expr, names, values := buildRevisionUpdate(*current, expected)

	out, err := e.store.client.UpdateItem(ctx, &sdk.UpdateItemInput{
		TableName:                           aws.String(e.store.tableName),
		Key:                                 key,
		UpdateExpression:                    aws.String(expr),
		ConditionExpression:                 aws.String(condRevisionSwap),
		ExpressionAttributeNames:            names,
		ExpressionAttributeValues:           values,
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		return nil, swapFailure("update_with_revision", id, expected, err)
	}

	updated, err := decodeItem(out.Attributes)
	if err != nil {
		return nil, unavailable("update_with_revision", err)
	}
	return &updated, nil
}

func (e *engine) DeleteWithRevision(ctx context.Context, id, expected int64) error {
	key, err := personKey(id)
	if err != nil {
		return err
	}

	_, err = e.store.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName:                aws.String(e.store.tableName),
		Key:                      key,
		ConditionExpression:      aws.String(condRevisionSwap),
		ExpressionAttributeNames: map[string]string{"#rev": attrRevision},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expected": numberAttr(expected),
		},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		return swapFailure("delete_with_revision", id, expected, err)
	}
	return nil
}

// swapFailure maps a failed revision condition onto NotFound or ConcurrentModification
// using the item DynamoDB returns with the failure.
func swapFailure(op string, id, expected int64, err error) error {
	old, failed := conditionFailed(err)
	if !failed {
		return unavailable(op, err)
	}
	if len(old) == 0 {
		return errs.NewNotFoundError(domain.EntityType, id)
	}

	actual := int64(-1)
	if attr, ok := old[attrRevision]; ok {
		_ = attributevalue.Unmarshal(attr, &actual)
	}
	return errs.NewConcurrentModificationError(domain.EntityType, id, expected, actual)
}

// buildRevisionUpdate writes every mutable attribute of p and bumps the revision.
func buildRevisionUpdate(p domain.Person, expected int64) (string, map[string]string, map[string]types.AttributeValue) {
	names := map[string]string{
		"#name":  attrName,
		"#birth": attrBirthDate,
		"#rev":   attrRevision,
	}
	values := map[string]types.AttributeValue{
		":name":     &types.AttributeValueMemberS{Value: p.Name},
		":birth":    &types.AttributeValueMemberS{Value: p.BirthDate.String()},
		":one":      &types.AttributeValueMemberN{Value: "1"},
		":expected": numberAttr(expected),
	}
	set := []string{"#name = :name", "#birth = :birth", "#rev = #rev + :one"}
	var remove []string

	names["#death"] = attrDeathDate
	if p.DeathDate != nil {
		set = append(set, "#death = :death")
		values[":death"] = &types.AttributeValueMemberS{Value: p.DeathDate.String()}
	} else {
		remove = append(remove, "#death")
	}

	names["#data"] = attrData
	if len(p.Data) > 0 {
		set = append(set, "#data = :data")
		values[":data"] = &types.AttributeValueMemberB{Value: p.Data}
	} else {
		remove = append(remove, "#data")
	}

	expr := "SET " + strings.Join(set, ", ")
	if len(remove) > 0 {
		expr += " REMOVE " + strings.Join(remove, ", ")
	}
	return expr, names, values
}

func numberAttr(n int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}
