package harvest

import (
	"strings"

	domdoc "github.com/coloradocollege/digitalcc/internal/domain/document"
)

var mediaTypes = []string{
	"application/pdf",
	"audio/mpeg",
	"video/quicktime",
	"video/mp4",
	"image/jpeg",
	"image/jp2",
	"audio/x-wav",
	"application/octet-stream",
}

const tiffPrefix = "image/tif"

// selectMedia keeps the displayable datastreams. Objects carrying a TIFF keep
// only their TIFFs and JPG derivatives.
func selectMedia(all []domdoc.Datastream) []domdoc.Datastream {
	hasTIFF := false
	for _, ds := range all {
		if strings.HasPrefix(ds.MimeType, tiffPrefix) {
			hasTIFF = true
			break
		}
	}

	out := make([]domdoc.Datastream, 0, len(all))
	for _, ds := range all {
		if hasTIFF {
			if strings.HasPrefix(ds.MimeType, tiffPrefix) || strings.HasPrefix(ds.DSID, "JPG") {
				out = append(out, ds)
			}
			continue
		}
		for _, t := range mediaTypes {
			if strings.HasPrefix(ds.MimeType, t) {
				out = append(out, ds)
				break
			}
		}
	}
	return out
}
