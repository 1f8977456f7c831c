package coordinator

import (
	"shardman/configs"
	"strings"
)

// aggregate joins the outcomes in request order, failed nodes as error markers.
func aggregate(chans *channelSet) string {
	parts := make([]string, len(chans.outcomes))
	for i, o := range chans.outcomes {
		if o.err != nil {
			parts[i] = o.err.Marker()
		} else {
			parts[i] = o.value
		}
	}
	return strings.Join(parts, configs.ResultSeparator)
}
