// Package avutil holds the value types shared by every layer of vidgraph:
// media kinds, rationals and timestamp arithmetic, codec identifiers,
// option dictionaries and the error taxonomy.
package avutil

import (
	"fmt"
	"strings"
)

// MediaType is the kind of an elementary stream. Values match AVMediaType.
type MediaType int32

const (
	MediaTypeUnknown    MediaType = -1
	MediaTypeVideo      MediaType = 0
	MediaTypeAudio      MediaType = 1
	MediaTypeData       MediaType = 2
	MediaTypeSubtitle   MediaType = 3
	MediaTypeAttachment MediaType = 4
)

// Kinds lists the dispatchable media kinds in handler order.
var Kinds = []MediaType{
	MediaTypeVideo,
	MediaTypeAudio,
	MediaTypeSubtitle,
	MediaTypeData,
	MediaTypeAttachment,
}

func (m MediaType) String() string {
	switch m {
	case MediaTypeVideo:
		return "video"
	case MediaTypeAudio:
		return "audio"
	case MediaTypeData:
		return "data"
	case MediaTypeSubtitle:
		return "subtitle"
	case MediaTypeAttachment:
		return "attachment"
	default:
		return "unknown"
	}
}

// Suffix is the one-letter tag used in filter graph labels ("v", "a", ...).
func (m MediaType) Suffix() string {
	switch m {
	case MediaTypeVideo:
		return "v"
	case MediaTypeAudio:
		return "a"
	case MediaTypeData:
		return "d"
	case MediaTypeSubtitle:
		return "s"
	case MediaTypeAttachment:
		return "t"
	default:
		return "u"
	}
}

// ParseMediaType parses the names produced by MediaType.String.
func ParseMediaType(s string) (MediaType, error) {
	for _, k := range Kinds {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return MediaTypeUnknown, fmt.Errorf("%w: unknown media type %q", ErrConfiguration, s)
}
