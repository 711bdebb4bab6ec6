/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/personstore/datastore"
	errs "github.com/suparena/personstore/errors"
	"github.com/suparena/personstore/logging"
)

// API is the subset of the DynamoDB client the store uses.
type API interface {
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *sdk.UpdateItemInput, optFns ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	Scan(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error)
}

var _ API = (*sdk.Client)(nil)

// ClientOptions configures NewDynamoDBClient. Empty credentials fall back to the
// default AWS credential chain; Endpoint targets DynamoDB Local or LocalStack.
type ClientOptions struct {
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string
}

// NewDynamoDBClient initializes a DynamoDB client.
func NewDynamoDBClient(ctx context.Context, opts ClientOptions) (*sdk.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return sdk.NewFromConfig(cfg, func(o *sdk.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	}), nil
}

// Store runs units of work against a single DynamoDB table. Each engine operation
// is one conditional request, so a unit of work is not atomic across operations.
type Store struct {
	client    API
	tableName string
	logger    *slog.Logger
	observer  datastore.TxObserver
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logging.Component(l, "dynamodb_store")
	}
}

// WithTxObserver reports terminal transaction states.
func WithTxObserver(o datastore.TxObserver) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// New constructs a Store over tableName.
func New(client API, tableName string, opts ...Option) *Store {
	s := &Store{client: client, tableName: tableName, logger: logging.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend implements datastore.Runner.
func (s *Store) Backend() datastore.Backend {
	return datastore.DynamoDB
}

// TableName returns the table the store writes to.
func (s *Store) TableName() string {
	return s.tableName
}

// RunInTransaction runs work with an engine whose writes take effect immediately.
// Rolling back discards nothing; callers that need atomicity across several writes
// must use another backend.
func (s *Store) RunInTransaction(ctx context.Context, work datastore.UnitOfWork) error {
	if err := ctx.Err(); err != nil {
		return errs.NewBackendUnavailableError(string(datastore.DynamoDB), "begin", err)
	}

	tx := datastore.NewTransaction(datastore.DynamoDB, s.observer)
	if err := tx.Begin(); err != nil {
		return err
	}
	return datastore.Execute(ctx, tx, s.logger, &engine{store: s}, work, datastore.Hooks{})
}

// Close implements datastore.Runner.
func (s *Store) Close() error {
	return nil
}

// Bootstrap creates the id counter item at zero unless it already exists.
func (s *Store) Bootstrap(ctx context.Context) error {
	return (&engine{store: s}).bootstrapCounter(ctx)
}

var macroPattern = regexp.MustCompile(`{([^}]+)}`)

// expandMacros fills the templates in indexMap with the attributes of keysInput.
func expandMacros(indexMap map[string]string, keysInput any) (map[string]string, error) {
	av, err := attributevalue.MarshalMap(keysInput)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal keysInput: %w", err)
	}

	res := make(map[string]string, len(indexMap))
	for fieldName, template := range indexMap {
		res[fieldName] = macroPattern.ReplaceAllStringFunc(template, func(macro string) string {
			val, ok := av[strings.Trim(macro, "{}")]
			if !ok {
				return ""
			}
			switch tv := val.(type) {
			case *types.AttributeValueMemberS:
				return tv.Value
			case *types.AttributeValueMemberN:
				return tv.Value
			case *types.AttributeValueMemberBOOL:
				return fmt.Sprintf("%v", tv.Value)
			default:
				return ""
			}
		})
	}
	return res, nil
}

// buildKeyFromExpanded builds a DynamoDB key from the expanded index map.
func buildKeyFromExpanded(expanded map[string]string) (map[string]types.AttributeValue, error) {
	pk, okPK := expanded["PK"]
	sk, okSK := expanded["SK"]

	if !okPK || !okSK || pk == "" || sk == "" {
		return nil, errors.New("expanded index map missing valid PK or SK")
	}

	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}, nil
}

// conditionFailed reports whether err is a failed condition and returns the item
// DynamoDB attached to the failure, if any.
func conditionFailed(err error) (map[string]types.AttributeValue, bool) {
	var cfe *types.ConditionalCheckFailedException
	if errors.As(err, &cfe) {
		return cfe.Item, true
	}
	return nil, false
}

func unavailable(op string, err error) error {
	if errs.IsBackendUnavailable(err) {
		return err
	}
	return errs.NewBackendUnavailableError(string(datastore.DynamoDB), op, err)
}
