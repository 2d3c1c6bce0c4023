package probe

import "strconv"

// namedLayouts maps common channel counts to their conventional layout
// label (spec.md §4.2: "channel count maps to a layout label via a
// small table").
var namedLayouts = map[int]string{
	1: "mono",
	2: "stereo",
	6: "5.1",
	8: "7.1",
}

// channelLayoutLabel prefers ffprobe's own channel_layout string (when
// present and non-generic) and otherwise falls back to the small table,
// defaulting to "{N}ch" for anything unlisted.
func channelLayoutLabel(ffprobeLayout string, channels int) string {
	if ffprobeLayout != "" && ffprobeLayout != "unknown" {
		return ffprobeLayout
	}
	if label, ok := namedLayouts[channels]; ok {
		return label
	}
	return strconv.Itoa(channels) + "ch"
}
