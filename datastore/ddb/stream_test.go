/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/personstore/datastore"
	"github.com/suparena/personstore/domain"
	errs "github.com/suparena/personstore/errors"
	"github.com/suparena/personstore/storagemodels"
)

func scanAll(t *testing.T, s *Store, match datastore.Predicate, opts ...storagemodels.StreamOption) ([]storagemodels.StreamResult[domain.Person], error) {
	t.Helper()
	var results []storagemodels.StreamResult[domain.Person]
	err := s.RunInTransaction(context.Background(), func(ctx context.Context, e datastore.Engine) error {
		for r := range e.Scan(ctx, match, opts...) {
			results = append(results, r)
		}
		return nil
	})
	return results, err
}

// TestScanWithOptions tests paging, filtering and progress reporting
func TestScanWithOptions(t *testing.T) {
	s, _ := newTestStore()
	for _, name := range []string{"Abel", "Galois", "Gauss", "Jacobi", "Riemann"} {
		seed(t, s, name)
	}

	t.Run("PagesAndPredicate", func(t *testing.T) {
		var pages []storagemodels.StreamProgress
		results, err := scanAll(t, s,
			func(p domain.Person) bool { return p.Name != "Galois" },
			storagemodels.WithPageSize(2),
			storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) {
				pages = append(pages, p)
			}),
		)
		if err != nil {
			t.Fatalf("Scan tx failed: %v", err)
		}

		var names []string
		for _, r := range results {
			if r.Error != nil {
				t.Fatalf("Unexpected error: %v", r.Error)
			}
			names = append(names, r.Item.Name)
		}
		sort.Strings(names)
		if fmt.Sprint(names) != "[Abel Gauss Jacobi Riemann]" {
			t.Fatalf("Unexpected names: %v", names)
		}

		// 5 persons plus the counter item, two per page
		if len(pages) != 3 {
			t.Fatalf("Expected 3 progress reports, got %d", len(pages))
		}
		last := pages[len(pages)-1]
		if last.ItemsProcessed != 5 || last.ItemsMatched != 4 || last.Cursor != "" {
			t.Errorf("Unexpected final progress: %+v", last)
		}
	})

	t.Run("Metadata", func(t *testing.T) {
		start := time.Now()
		results, err := scanAll(t, s, nil, storagemodels.WithPageSize(2))
		if err != nil {
			t.Fatalf("Scan tx failed: %v", err)
		}
		if len(results) != 5 {
			t.Fatalf("Expected 5 results, got %d", len(results))
		}
		for i, r := range results {
			if r.Meta.Index != int64(i) {
				t.Errorf("Index should be sequential: got %d at %d", r.Meta.Index, i)
			}
			if r.Meta.PageNumber < 1 {
				t.Errorf("Page number should be >= 1, got %d", r.Meta.PageNumber)
			}
			if r.Meta.Timestamp.Before(start) {
				t.Error("Timestamp should be after test start time")
			}
		}
	})

	t.Run("ContextCancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		got := 0
		err := s.RunInTransaction(ctx, func(ctx context.Context, e datastore.Engine) error {
			ch := e.Scan(ctx, nil, storagemodels.WithPageSize(1), storagemodels.WithBufferSize(0))
			for range ch {
				got++
				if got == 1 {
					cancel()
				}
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Scan tx failed: %v", err)
		}
		if got >= 5 {
			t.Errorf("Cancellation should stop the scan early, got %d items", got)
		}
	})
}

// TestScanRetryLogic tests the retry mechanism
func TestScanRetryLogic(t *testing.T) {
	t.Run("RetryableError", func(t *testing.T) {
		if !isRetryableError(&types.ProvisionedThroughputExceededException{}) {
			t.Error("ProvisionedThroughputExceededException should be retryable")
		}
		if !isRetryableError(&types.RequestLimitExceeded{}) {
			t.Error("RequestLimitExceeded should be retryable")
		}
		if isRetryableError(fmt.Errorf("some other error")) {
			t.Error("Generic error should not be retryable")
		}
		if !isRetryableError(operationError("Scan", &types.InternalServerError{})) {
			t.Error("InternalServerError wrapped by the client should be retryable")
		}
		if !isRetryableError(fmt.Errorf("page 3: %w", operationError("Scan", &types.RequestLimitExceeded{}))) {
			t.Error("RequestLimitExceeded behind two wraps should be retryable")
		}
	})

	t.Run("RecoversFromThrottling", func(t *testing.T) {
		s, table := newTestStore()
		seed(t, s, "Abel")
		table.scanErrs = []error{&types.ProvisionedThroughputExceededException{}}

		results, err := scanAll(t, s, nil, storagemodels.WithRetryBackoff(time.Millisecond))
		if err != nil {
			t.Fatalf("Scan tx failed: %v", err)
		}
		if len(results) != 1 || results[0].Error != nil {
			t.Fatalf("Expected one clean result after retry, got %v", results)
		}
		if table.count("Scan") != 2 {
			t.Errorf("Expected 2 scan calls, got %d", table.count("Scan"))
		}
	})

	t.Run("FatalError", func(t *testing.T) {
		s, table := newTestStore()
		table.scanErrs = []error{fmt.Errorf("access denied")}

		results, err := scanAll(t, s, nil)
		if err != nil {
			t.Fatalf("Scan tx failed: %v", err)
		}
		if len(results) != 1 || !errs.IsBackendUnavailable(results[0].Error) {
			t.Fatalf("Expected one backend unavailable result, got %v", results)
		}
	})

	t.Run("HandledErrorResumes", func(t *testing.T) {
		s, table := newTestStore()
		seed(t, s, "Abel")
		seed(t, s, "Galois")
		table.scanErrs = []error{fmt.Errorf("access denied")}

		var handled int
		results, err := scanAll(t, s, nil,
			storagemodels.WithRetryBackoff(time.Millisecond),
			storagemodels.WithErrorHandler(func(error) bool { handled++; return true }),
		)
		if err != nil {
			t.Fatalf("Scan tx failed: %v", err)
		}
		if handled != 1 {
			t.Errorf("Expected the handler to see one error, got %d", handled)
		}
		if len(results) != 2 {
			t.Fatalf("Expected both persons after resuming, got %v", results)
		}
		for _, r := range results {
			if r.Error != nil {
				t.Errorf("Unexpected error: %v", r.Error)
			}
		}
		if table.count("Scan") != 2 {
			t.Errorf("Expected the failed page to be re-read once, got %d scans", table.count("Scan"))
		}
	})

	t.Run("HandledErrorPersists", func(t *testing.T) {
		s, table := newTestStore()
		seed(t, s, "Abel")
		denied := fmt.Errorf("access denied")
		table.scanErrs = []error{denied, denied, denied, denied, denied}

		results, err := scanAll(t, s, nil,
			storagemodels.WithRetryBackoff(time.Millisecond),
			storagemodels.WithErrorHandler(func(error) bool { return true }),
		)
		if err != nil {
			t.Fatalf("Scan tx failed: %v", err)
		}
		if len(results) != 1 || !errs.IsBackendUnavailable(results[0].Error) {
			t.Fatalf("Expected the error once resumes are exhausted, got %v", results)
		}
		if table.count("Scan") != 4 {
			t.Errorf("Expected one read plus three resumes, got %d scans", table.count("Scan"))
		}
	})

	t.Run("MalformedItem", func(t *testing.T) {
		s, table := newTestStore()
		seed(t, s, "Abel")
		table.items["person#99\x00person"] = map[string]types.AttributeValue{
			"PK":           &types.AttributeValueMemberS{Value: "person#99"},
			"SK":           &types.AttributeValueMemberS{Value: "person"},
			attrEntityType: &types.AttributeValueMemberS{Value: domain.EntityType},
			attrID:         &types.AttributeValueMemberN{Value: "99"},
			attrName:       &types.AttributeValueMemberS{Value: "Broken"},
			attrBirthDate:  &types.AttributeValueMemberS{Value: "not-a-date"},
			attrRevision:   &types.AttributeValueMemberN{Value: "0"},
		}

		results, err := scanAll(t, s, nil)
		if err != nil {
			t.Fatalf("Scan tx failed: %v", err)
		}
		var good, bad int
		for _, r := range results {
			if r.Error != nil {
				bad++
			} else {
				good++
			}
		}
		if good != 1 || bad != 1 {
			t.Fatalf("Expected one item and one decode error, got %d/%d", good, bad)
		}
	})
}

// TestScanItemsWithoutEntityType covers items written with only the documented key layout.
func TestScanItemsWithoutEntityType(t *testing.T) {
	s, table := newTestStore()
	seed(t, s, "Abel")
	table.items["person#3\x00person"] = map[string]types.AttributeValue{
		"PK":          &types.AttributeValueMemberS{Value: "person#3"},
		"SK":          &types.AttributeValueMemberS{Value: "person"},
		attrID:        &types.AttributeValueMemberN{Value: "3"},
		attrName:      &types.AttributeValueMemberS{Value: "Noether"},
		attrBirthDate: &types.AttributeValueMemberS{Value: "1882-03-23"},
		attrRevision:  &types.AttributeValueMemberN{Value: "0"},
	}

	var got *domain.Person
	err := run(t, s, func(ctx context.Context, e datastore.Engine) error {
		var err error
		got, err = e.GetByID(ctx, 3)
		return err
	})
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got == nil || got.Name != "Noether" {
		t.Fatalf("Expected Noether, got %+v", got)
	}

	results, err := scanAll(t, s, nil)
	if err != nil {
		t.Fatalf("Scan tx failed: %v", err)
	}
	var names []string
	for _, r := range results {
		if r.Error != nil {
			t.Fatalf("Unexpected error: %v", r.Error)
		}
		names = append(names, r.Item.Name)
	}
	sort.Strings(names)
	if fmt.Sprint(names) != "[Abel Noether]" {
		t.Errorf("Expected [Abel Noether], got %v", names)
	}
}
