package replicate

import (
	"testing"

	"flowclone/testutil"
)

func TestEngineStaysDriverFree(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", func(ip string) bool {
		return testutil.InfraImportForbidden(ip) || testutil.DriverImportForbidden(ip)
	}, "replicate must reach stores through tablestore interfaces")
	testutil.AssertNoTransitiveDependency(t, ".", testutil.DriverImportForbidden,
		"replicate must not link database drivers or cloud SDKs")
}
