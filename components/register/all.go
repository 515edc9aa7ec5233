// Package register registers all sensor kinds.
package register

import (
	// register sensor kinds.
	_ "go.viam.com/rangesim/components/laser"
	_ "go.viam.com/rangesim/components/laser/fake"
)
