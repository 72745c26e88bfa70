package photo

import (
	"bytes"
	"strings"

	"github.com/bep/imagemeta"
)

// Meta holds the EXIF fields surfaced in grading exports.
type Meta struct {
	CameraMake  string `json:"camera_make,omitempty"`
	CameraModel string `json:"camera_model,omitempty"`
	LensModel   string `json:"lens_model,omitempty"`
	Software    string `json:"software,omitempty"`
	CapturedAt  string `json:"captured_at,omitempty"`
}

// editorKeywords are software-tag substrings that indicate the image went
// through a post-processing tool rather than straight out of camera.
var editorKeywords = []string{
	"lightroom",
	"photoshop",
	"capture one",
	"darktable",
	"rawtherapee",
	"luminar",
	"affinity",
	"snapseed",
	"gimp",
	"dxo",
}

// EditedBySoftware reports whether the EXIF software tag names a known
// post-processing tool. Camera firmware strings do not match.
func (m *Meta) EditedBySoftware() bool {
	if m == nil || m.Software == "" {
		return false
	}
	lower := strings.ToLower(m.Software)
	for _, kw := range editorKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// wantedTags maps tag names we care about. Everything else is skipped at
// decode time.
var wantedTags = map[string]bool{
	"Make":             true,
	"Model":            true,
	"LensModel":        true,
	"Software":         true,
	"DateTimeOriginal": true,
	"DateTime":         true,
}

// ExtractMeta parses EXIF metadata from raw image bytes. Returns nil if the
// data is empty, cannot be parsed, or carries none of the wanted tags.
// Graceful degradation: never returns an error.
func ExtractMeta(data []byte) *Meta {
	if len(data) == 0 {
		return nil
	}

	meta := &Meta{}
	found := false

	_, err := imagemeta.Decode(imagemeta.Options{
		R:       bytes.NewReader(data),
		Sources: imagemeta.EXIF,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			return wantedTags[ti.Tag]
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			s := tagValueString(ti.Value)
			if s == "" {
				return nil
			}
			switch ti.Tag {
			case "Make":
				meta.CameraMake = s
			case "Model":
				meta.CameraModel = s
			case "LensModel":
				meta.LensModel = s
			case "Software":
				meta.Software = s
			case "DateTimeOriginal":
				meta.CapturedAt = s
			case "DateTime":
				// DateTimeOriginal wins when both are present.
				if meta.CapturedAt == "" {
					meta.CapturedAt = s
				}
			default:
				return nil
			}
			found = true
			return nil
		},
	})

	if err != nil || !found {
		return nil
	}
	return meta
}

// tagValueString extracts a string from a tag value. EXIF values may arrive
// as string or []string depending on the encoder.
func tagValueString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []string:
		if len(val) > 0 {
			return strings.TrimSpace(val[0])
		}
	}
	return ""
}
