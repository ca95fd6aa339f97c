package gainmap_test

import (
	_ "github.com/bool64/dev" // for Makefile
)
