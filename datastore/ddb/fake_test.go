/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// fakeTable is an in-process stand-in for one DynamoDB table. It understands the
// condition and update expression forms the engine issues.
type fakeTable struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue

	// scanErrs are returned by successive Scan calls before scanning succeeds.
	scanErrs []error
	// putErr is returned by every PutItem when set.
	putErr error
	// beforeUpdate runs before an UpdateItem is evaluated, outside the lock.
	beforeUpdate func()
	calls        map[string]int
}

var _ API = (*fakeTable)(nil)

func newFakeTable() *fakeTable {
	return &fakeTable{
		items: make(map[string]map[string]types.AttributeValue),
		calls: make(map[string]int),
	}
}

func keyString(key map[string]types.AttributeValue) string {
	pk, _ := key["PK"].(*types.AttributeValueMemberS)
	sk, _ := key["SK"].(*types.AttributeValueMemberS)
	if pk == nil || sk == nil {
		return ""
	}
	return pk.Value + "\x00" + sk.Value
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	cp := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		cp[k] = v
	}
	return cp
}

func resolveName(token string, names map[string]string) string {
	if strings.HasPrefix(token, "#") {
		return names[token]
	}
	return token
}

func numberOf(av types.AttributeValue) (int64, bool) {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(n.Value, 10, 64)
	return v, err == nil
}

func attrEqual(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	default:
		return false
	}
}

var equalityCond = regexp.MustCompile(`^(#?\w+) = (:\w+)$`)

func evalCondition(cond *string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	if cond == nil {
		return true, nil
	}
	for _, part := range strings.Split(*cond, " AND ") {
		part = strings.TrimSpace(part)
		switch {
		case part == "attribute_exists(PK)":
			if item == nil {
				return false, nil
			}
		case part == "attribute_not_exists(PK)":
			if item != nil {
				return false, nil
			}
		case equalityCond.MatchString(part):
			m := equalityCond.FindStringSubmatch(part)
			if item == nil {
				return false, nil
			}
			if !attrEqual(item[resolveName(m[1], names)], values[m[2]]) {
				return false, nil
			}
		default:
			return false, fmt.Errorf("fake: unsupported condition %q", part)
		}
	}
	return true, nil
}

// operationError wraps err the way the SDK client does before returning it.
func operationError(op string, err error) error {
	return &smithy.OperationError{ServiceID: "DynamoDB", OperationName: op, Err: err}
}

func conditionalFailure(old map[string]types.AttributeValue, mode types.ReturnValuesOnConditionCheckFailure) error {
	cfe := &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	if mode == types.ReturnValuesOnConditionCheckFailureAllOld {
		cfe.Item = copyItem(old)
	}
	return cfe
}

var clauseKeyword = regexp.MustCompile(`\b(SET|REMOVE|ADD)\s+`)

// applyUpdate evaluates SET, REMOVE and ADD clauses and returns the names it touched.
func applyUpdate(item map[string]types.AttributeValue, expr string, names map[string]string, values map[string]types.AttributeValue) ([]string, error) {
	locs := clauseKeyword.FindAllStringSubmatchIndex(expr, -1)
	var touched []string
	for i, loc := range locs {
		end := len(expr)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		keyword := expr[loc[2]:loc[3]]
		body := strings.TrimSpace(expr[loc[1]:end])

		for _, action := range strings.Split(body, ",") {
			action = strings.TrimSpace(action)
			switch keyword {
			case "SET":
				lhs, rhs, ok := strings.Cut(action, " = ")
				if !ok {
					return nil, fmt.Errorf("fake: bad SET action %q", action)
				}
				name := resolveName(lhs, names)
				if base, inc, isAdd := strings.Cut(rhs, " + "); isAdd {
					a, ok1 := numberOf(item[resolveName(base, names)])
					b, ok2 := numberOf(values[inc])
					if !ok1 || !ok2 {
						return nil, fmt.Errorf("fake: non-numeric operand in %q", action)
					}
					item[name] = &types.AttributeValueMemberN{Value: strconv.FormatInt(a+b, 10)}
				} else {
					item[name] = values[rhs]
				}
				touched = append(touched, name)
			case "REMOVE":
				name := resolveName(action, names)
				delete(item, name)
				touched = append(touched, name)
			case "ADD":
				fields := strings.Fields(action)
				if len(fields) != 2 {
					return nil, fmt.Errorf("fake: bad ADD action %q", action)
				}
				name := resolveName(fields[0], names)
				a, _ := numberOf(item[name])
				b, ok := numberOf(values[fields[1]])
				if !ok {
					return nil, fmt.Errorf("fake: non-numeric ADD operand %q", action)
				}
				item[name] = &types.AttributeValueMemberN{Value: strconv.FormatInt(a+b, 10)}
				touched = append(touched, name)
			}
		}
	}
	return touched, nil
}

func (f *fakeTable) GetItem(ctx context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetItem"]++
	return &sdk.GetItemOutput{Item: copyItem(f.items[keyString(in.Key)])}, nil
}

func (f *fakeTable) PutItem(ctx context.Context, in *sdk.PutItemInput, _ ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["PutItem"]++
	if f.putErr != nil {
		return nil, operationError("PutItem", f.putErr)
	}

	k := keyString(in.Item)
	old := f.items[k]
	ok, err := evalCondition(in.ConditionExpression, old, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, operationError("PutItem", conditionalFailure(old, in.ReturnValuesOnConditionCheckFailure))
	}
	f.items[k] = copyItem(in.Item)
	return &sdk.PutItemOutput{}, nil
}

func (f *fakeTable) UpdateItem(ctx context.Context, in *sdk.UpdateItemInput, _ ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error) {
	if f.beforeUpdate != nil {
		f.beforeUpdate()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["UpdateItem"]++

	k := keyString(in.Key)
	old := f.items[k]
	ok, err := evalCondition(in.ConditionExpression, old, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, operationError("UpdateItem", conditionalFailure(old, in.ReturnValuesOnConditionCheckFailure))
	}

	next := copyItem(old)
	if next == nil {
		next = copyItem(in.Key)
	}
	touched, err := applyUpdate(next, aws.ToString(in.UpdateExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	f.items[k] = next

	out := &sdk.UpdateItemOutput{}
	switch in.ReturnValues {
	case types.ReturnValueAllNew:
		out.Attributes = copyItem(next)
	case types.ReturnValueUpdatedOld:
		out.Attributes = make(map[string]types.AttributeValue)
		for _, name := range touched {
			if v, ok := old[name]; ok {
				out.Attributes[name] = v
			}
		}
	}
	return out, nil
}

func (f *fakeTable) DeleteItem(ctx context.Context, in *sdk.DeleteItemInput, _ ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["DeleteItem"]++

	k := keyString(in.Key)
	old := f.items[k]
	ok, err := evalCondition(in.ConditionExpression, old, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, operationError("DeleteItem", conditionalFailure(old, in.ReturnValuesOnConditionCheckFailure))
	}
	delete(f.items, k)
	return &sdk.DeleteItemOutput{}, nil
}

// Scan walks items in key order; Limit counts evaluated items and the filter is
// applied afterwards, as DynamoDB does.
func (f *fakeTable) Scan(ctx context.Context, in *sdk.ScanInput, _ ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Scan"]++

	if len(f.scanErrs) > 0 {
		err := f.scanErrs[0]
		f.scanErrs = f.scanErrs[1:]
		return nil, operationError("Scan", err)
	}

	keys := make([]string, 0, len(f.items))
	for k := range f.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if in.ExclusiveStartKey != nil {
		after := keyString(in.ExclusiveStartKey)
		start = sort.SearchStrings(keys, after)
		if start < len(keys) && keys[start] == after {
			start++
		}
	}

	limit := len(keys)
	if in.Limit != nil {
		limit = int(*in.Limit)
	}
	end := start + limit
	if end > len(keys) {
		end = len(keys)
	}

	out := &sdk.ScanOutput{}
	for _, k := range keys[start:end] {
		item := f.items[k]
		ok, err := evalCondition(in.FilterExpression, item, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if ok {
			out.Items = append(out.Items, copyItem(item))
		}
	}
	out.Count = int32(len(out.Items))
	out.ScannedCount = int32(end - start)
	if end < len(keys) {
		last := f.items[keys[end-1]]
		out.LastEvaluatedKey = map[string]types.AttributeValue{"PK": last["PK"], "SK": last["SK"]}
	}
	return out, nil
}

func (f *fakeTable) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeTable) get(pk, sk string) map[string]types.AttributeValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyItem(f.items[pk+"\x00"+sk])
}
