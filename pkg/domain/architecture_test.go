package domain_test

import (
	"testing"

	"digitalroom/testutil"
)

func TestDomainImportsNoInternalOrPresentation(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".",
		testutil.AnyOf(testutil.InternalImportForbidden, testutil.PresentationImportForbidden),
		"pkg/domain is shared by every store and must stay free of app packages")
}
