/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/personstore/logging"
)

// TableAPI is the subset of the client needed to provision the table.
type TableAPI interface {
	DescribeTable(ctx context.Context, params *sdk.DescribeTableInput, optFns ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *sdk.CreateTableInput, optFns ...func(*sdk.Options)) (*sdk.CreateTableOutput, error)
}

// EnsureTable creates the single table with a string PK/SK key schema if it does not
// exist and waits until it is active. It reports whether the table was created.
func EnsureTable(ctx context.Context, client TableAPI, tableName string, wait time.Duration, logger *slog.Logger) (bool, error) {
	logger = logging.Component(logger, "dynamodb_table")

	_, err := client.DescribeTable(ctx, &sdk.DescribeTableInput{TableName: aws.String(tableName)})
	if err == nil {
		logger.Debug("table already exists", "table", tableName)
		return false, nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return false, fmt.Errorf("failed to describe table %s: %w", tableName, err)
	}

	_, err = client.CreateTable(ctx, &sdk.CreateTableInput{
		TableName: aws.String(tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("PK"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("SK"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("PK"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("SK"), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if !errors.As(err, &inUse) {
			return false, fmt.Errorf("failed to create table %s: %w", tableName, err)
		}
	}
	logger.Info("created table", "table", tableName)

	if wait <= 0 {
		return true, nil
	}
	waiter := sdk.NewTableExistsWaiter(client)
	if err := waiter.Wait(ctx, &sdk.DescribeTableInput{TableName: aws.String(tableName)}, wait); err != nil {
		return true, fmt.Errorf("table %s did not become active: %w", tableName, err)
	}
	return true, nil
}
