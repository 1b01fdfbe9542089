package match

import (
	"github.com/grafana/symbundle/pkg/host"
)

// DryRun wraps a host so that SetName never reaches it. Names are still
// resolved against the wrapped host, so later renames in the same pass do
// not see earlier ones.
func DryRun(h MatchHost) MatchHost {
	return &dryRunHost{MatchHost: h}
}

type dryRunHost struct {
	MatchHost
}

func (d *dryRunHost) SetName(host.Address, string) error {
	return nil
}
