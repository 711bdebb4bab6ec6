/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/personstore/datastore"
	"github.com/suparena/personstore/domain"
	"github.com/suparena/personstore/storagemodels"
)

// Scan streams every person item in the table, page by page, applying match client-side.
func (e *engine) Scan(ctx context.Context, match datastore.Predicate, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[domain.Person] {
	options := storagemodels.ApplyStreamOptions(opts...)
	resultCh := make(chan storagemodels.StreamResult[domain.Person], options.BufferSize)

	go e.scanWorker(ctx, match, options, resultCh)

	return resultCh
}

// scanWorker handles the actual streaming logic
func (e *engine) scanWorker(
	ctx context.Context,
	match datastore.Predicate,
	options storagemodels.StreamOptions,
	resultCh chan<- storagemodels.StreamResult[domain.Person],
) {
	defer close(resultCh)

	progress := storagemodels.StreamProgress{StartTime: time.Now()}
	var itemIndex int64
	var failures int

	reportProgress := func(lastKey map[string]types.AttributeValue) {
		if options.ProgressHandler == nil {
			return
		}
		progress.Cursor = cursorString(lastKey)
		if elapsed := time.Since(progress.StartTime).Seconds(); elapsed > 0 {
			progress.CurrentRate = float64(progress.ItemsProcessed) / elapsed
		}
		options.ProgressHandler(progress)
	}

	send := func(r storagemodels.StreamResult[domain.Person]) bool {
		select {
		case <-ctx.Done():
			return false
		case resultCh <- r:
			return true
		}
	}

	input := &dynamodb.ScanInput{
		TableName:                aws.String(e.store.tableName),
		FilterExpression:         aws.String("#sk = :sk"),
		ExpressionAttributeNames: map[string]string{"#sk": "SK"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sk": &types.AttributeValueMemberS{Value: personSortKey()},
		},
		ConsistentRead: aws.Bool(true),
		Limit:          aws.Int32(options.PageSize),
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		out, err := e.scanWithRetry(ctx, input, options)
		if err != nil {
			err = unavailable("scan", err)
			progress.Errors = append(progress.Errors, err)
			if !options.Resume(err, failures) {
				send(storagemodels.StreamResult[domain.Person]{
					Error: err,
					Meta: storagemodels.StreamMeta{
						Index:      itemIndex,
						PageNumber: progress.PagesProcessed,
						Timestamp:  time.Now(),
					},
				})
				return
			}
			// re-issue the failed page from the same ExclusiveStartKey
			failures++
			reportProgress(input.ExclusiveStartKey)
			if !storagemodels.Backoff(ctx, time.Duration(failures)*options.RetryBackoff) {
				return
			}
			continue
		}
		failures = 0

		progress.PagesProcessed++

		for _, item := range out.Items {
			progress.ItemsProcessed++
			meta := storagemodels.StreamMeta{Index: itemIndex, PageNumber: progress.PagesProcessed, Timestamp: time.Now()}

			p, err := decodeItem(item)
			if err != nil {
				err = fmt.Errorf("failed to decode item: %w", err)
				progress.Errors = append(progress.Errors, err)
				if !send(storagemodels.StreamResult[domain.Person]{Error: err, Meta: meta}) {
					return
				}
				itemIndex++
				continue
			}
			if !match.Matches(p) {
				continue
			}

			progress.ItemsMatched++
			if !send(storagemodels.StreamResult[domain.Person]{Item: p, Meta: meta}) {
				return
			}
			itemIndex++
		}

		reportProgress(out.LastEvaluatedKey)

		if len(out.LastEvaluatedKey) == 0 {
			return
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// scanWithRetry executes a scan page with configurable retry logic
func (e *engine) scanWithRetry(
	ctx context.Context,
	input *dynamodb.ScanInput,
	options storagemodels.StreamOptions,
) (*dynamodb.ScanOutput, error) {
	var lastErr error

	for attempt := 0; attempt <= options.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		out, err := e.store.client.Scan(ctx, input)
		if err == nil {
			return out, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return nil, err
		}

		if attempt < options.MaxRetries {
			backoff := time.Duration(attempt+1) * options.RetryBackoff
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("scan failed after %d retries: %w", options.MaxRetries, lastErr)
}

// isRetryableError determines if a DynamoDB error is retryable. The SDK client wraps
// service exceptions in *smithy.OperationError, so the chain is searched.
func isRetryableError(err error) bool {
	var throughput *types.ProvisionedThroughputExceededException
	var limit *types.RequestLimitExceeded
	var internal *types.InternalServerError
	if errors.As(err, &throughput) || errors.As(err, &limit) || errors.As(err, &internal) {
		return true
	}

	var retryable interface{ IsRetryable() bool }
	if errors.As(err, &retryable) {
		return retryable.IsRetryable()
	}

	return false
}

func cursorString(key map[string]types.AttributeValue) string {
	if len(key) == 0 {
		return ""
	}
	pk, _ := key["PK"].(*types.AttributeValueMemberS)
	if pk == nil {
		return ""
	}
	return pk.Value
}
