package workflow

import "strings"

// softwareVideoEncoder maps a policy-level codec token to the ffmpeg
// software encoder name, grounded on the teacher's encoderConfigs table
// in ffmpeg/presets.go (the {HWAccelNone, Codec} rows only — hardware
// encoder selection is a daemon/host concern the workflow processor
// doesn't model, see DESIGN.md).
func softwareVideoEncoder(codec string) string {
	switch strings.ToLower(codec) {
	case "hevc", "h265":
		return "libx265"
	case "h264", "avc":
		return "libx264"
	case "av1":
		return "libsvtav1"
	default:
		return codec
	}
}

// audioEncoder maps a policy-level audio codec token to its ffmpeg
// encoder name. Most audio codecs ffmpeg accepts as-is; aac and opus
// have a preferred named encoder.
func audioEncoder(codec string) string {
	switch strings.ToLower(codec) {
	case "aac":
		return "aac"
	case "opus":
		return "libopus"
	case "ac3":
		return "ac3"
	case "eac3":
		return "eac3"
	case "flac":
		return "flac"
	default:
		return codec
	}
}
