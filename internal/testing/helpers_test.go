// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package testing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/tia/pkg/model"
)

func TestSetupTestStoreStartsEmpty(t *testing.T) {
	st := SetupTestStore(t)

	tests := QueryAllTests(t, st)
	assert.Empty(t, tests, "should start with no tests")
}

func TestInsertTestSeedsARow(t *testing.T) {
	st := SetupTestStore(t)

	InsertTest(t, st, "test_0001", "tests/unit/test_invoice.py", "TestInvoice", "test_charges_customer", model.TestTypeUnit)

	tests := QueryAllTests(t, st)
	require.Len(t, tests, 1)
	assert.Equal(t, "test_0001", tests[0].TestID)
	assert.Equal(t, "TestInvoice", tests[0].ClassName)
}

func TestInsertDependencyAndReverseIndex(t *testing.T) {
	st := SetupTestStore(t)

	InsertTest(t, st, "test_0001", "tests/unit/test_invoice.py", "TestInvoice", "test_charges_customer", model.TestTypeUnit)
	InsertDependency(t, st, "test_0001", model.Dependency{ReferencedClass: "InvoiceService", ImportType: model.ReferenceDirectImport})
	InsertReverseIndex(t, st, "test_0001", "tests/unit/test_invoice.py")

	// No direct query helper for the reverse index yet; this should
	// simply not error; pkg/match reads these rows through store.TestsForClass.
}

func TestInsertFunctionMapping(t *testing.T) {
	st := SetupTestStore(t)

	InsertTest(t, st, "test_0001", "tests/unit/test_invoice.py", "TestInvoice", "test_charges_customer", model.TestTypeUnit)
	InsertFunctionMapping(t, st, "test_0001", model.FunctionMapping{
		ModuleName: "billing.invoice", FunctionName: "InvoiceService.charge_customer", CallType: model.CallMethod,
	})
}

func TestInsertMetadata(t *testing.T) {
	st := SetupTestStore(t)

	InsertTest(t, st, "test_0001", "tests/unit/test_invoice.py", "TestInvoice", "test_charges_customer", model.TestTypeUnit)
	InsertMetadata(t, st, model.TestMetadata{TestID: "test_0001", Description: "Charges a customer.", Markers: []string{"unit"}})
}

func TestMultipleInserts(t *testing.T) {
	st := SetupTestStore(t)

	InsertTest(t, st, "test_0001", "tests/unit/test_invoice.py", "TestInvoice", "test_charges_customer", model.TestTypeUnit)
	InsertTest(t, st, "test_0002", "tests/unit/test_invoice.py", "TestInvoice", "test_refund", model.TestTypeUnit)
	InsertTest(t, st, "test_0003", "tests/integration/test_checkout.py", "", "test_full_checkout", model.TestTypeIntegration)

	tests := QueryAllTests(t, st)
	require.Len(t, tests, 3)
}

func TestStoreIsolationAcrossTests(t *testing.T) {
	st1 := SetupTestStore(t)
	InsertTest(t, st1, "test_0001", "a.py", "", "test_one", model.TestTypeUnit)

	st2 := SetupTestStore(t)
	tests := QueryAllTests(t, st2)
	assert.Empty(t, tests, "a fresh store should be isolated from others")

	tests1 := QueryAllTests(t, st1)
	assert.Len(t, tests1, 1)
}
