package avutil

// CodecID is an FFmpeg codec identifier (AVCodecID).
type CodecID int32

const (
	CodecIDNone CodecID = 0

	CodecIDMPEG2VIDEO CodecID = 2
	CodecIDMJPEG      CodecID = 7
	CodecIDMPEG4      CodecID = 12
	CodecIDH264       CodecID = 27
	CodecIDVP8        CodecID = 139
	CodecIDVP9        CodecID = 167
	CodecIDHEVC       CodecID = 173
	CodecIDAV1        CodecID = 226

	CodecIDPCMS16LE CodecID = 65536
	CodecIDMP2      CodecID = 86016
	CodecIDMP3      CodecID = 86017
	CodecIDAAC      CodecID = 86018
	CodecIDAC3      CodecID = 86019
	CodecIDVORBIS   CodecID = 86021
	CodecIDFLAC     CodecID = 86028
	CodecIDOPUS     CodecID = 86076

	CodecIDDVDSubtitle CodecID = 94208
	CodecIDSSA         CodecID = 94212
	CodecIDMOVText     CodecID = 94213

	CodecIDTTF     CodecID = 98304
	CodecIDBinData CodecID = 98312
)

var codecNames = map[CodecID]string{
	CodecIDNone:        "none",
	CodecIDMPEG2VIDEO:  "mpeg2video",
	CodecIDMJPEG:       "mjpeg",
	CodecIDMPEG4:       "mpeg4",
	CodecIDH264:        "h264",
	CodecIDVP8:         "vp8",
	CodecIDVP9:         "vp9",
	CodecIDHEVC:        "hevc",
	CodecIDAV1:         "av1",
	CodecIDPCMS16LE:    "pcm_s16le",
	CodecIDMP2:         "mp2",
	CodecIDMP3:         "mp3",
	CodecIDAAC:         "aac",
	CodecIDAC3:         "ac3",
	CodecIDVORBIS:      "vorbis",
	CodecIDFLAC:        "flac",
	CodecIDOPUS:        "opus",
	CodecIDDVDSubtitle: "dvd_subtitle",
	CodecIDSSA:         "ssa",
	CodecIDMOVText:     "mov_text",
	CodecIDTTF:         "ttf",
	CodecIDBinData:     "bin_data",
}

// String returns the FFmpeg short name of well-known codecs, "unknown" otherwise.
func (id CodecID) String() string {
	if name, ok := codecNames[id]; ok {
		return name
	}
	return "unknown"
}
