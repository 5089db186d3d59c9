package utils

import (
	"github.com/davecgh/go-spew/spew"
)

var spewConfig *spew.ConfigState

func init() {
	spewConfig = spew.NewDefaultConfig()
	spewConfig.DisableCapacities = true
	spewConfig.DisablePointerAddresses = true
	spewConfig.SortKeys = true
}

// SDump pretty-prints values for debug output, stable between runs.
func SDump(a ...interface{}) string {
	return spewConfig.Sdump(a...)
}
