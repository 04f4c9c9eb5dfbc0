package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/appertivo/go-distribution/core"
)

var (
	_ gocmd.Querier[GetConnectionMessage, core.Connection]   = (*GetConnectionQuery)(nil)
	_ gocmd.Querier[ListConnectedMessage, []core.Connection] = (*ListConnectedQuery)(nil)
	_ gocmd.Querier[GetSpecialMessage, core.Special]         = (*GetSpecialQuery)(nil)
	_ gocmd.Querier[ListActivityMessage, core.ActivityPage]  = (*ListActivityQuery)(nil)
)
