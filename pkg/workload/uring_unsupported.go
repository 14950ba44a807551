//go:build !linux

package workload

import "fmt"

func newURingIssuer(path string, write, direct bool) (Issuer, bool, error) {
	return nil, false, fmt.Errorf("uring engine is only supported on Linux")
}
