// Package register registers all board models.
package register

import (
	// for boards.
	_ "go.viam.com/pulsemonitor/components/board/commonsysfs"
	_ "go.viam.com/pulsemonitor/components/board/fake"
	_ "go.viam.com/pulsemonitor/components/board/genericlinux"
)
