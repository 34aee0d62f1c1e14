package fake

import (
	"testing"

	"go.viam.com/pulsemonitor/testutils"
)

func TestMain(m *testing.M) {
	testutils.VerifyTestMain(m)
}
