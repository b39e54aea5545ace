package deepfake

import (
	"bytes"
	"strings"

	"github.com/bep/imagemeta"
)

// ImageMetadata holds the EXIF, IPTC and XMP provenance fields extracted from
// image binary data.
type ImageMetadata struct {
	Software          string `json:"software,omitempty"`            // EXIF Software
	Make              string `json:"make,omitempty"`                // EXIF Make
	CameraModel       string `json:"camera_model,omitempty"`        // EXIF Model
	Artist            string `json:"artist,omitempty"`              // EXIF Artist
	Copyright         string `json:"copyright,omitempty"`           // EXIF Copyright
	Description       string `json:"description,omitempty"`         // EXIF ImageDescription
	Credit            string `json:"credit,omitempty"`              // IPTC Credit
	Source            string `json:"source,omitempty"`              // IPTC Source
	CreatorTool       string `json:"creator_tool,omitempty"`        // XMP CreatorTool
	DigitalSourceType string `json:"digital_source_type,omitempty"` // XMP Iptc4xmpExt:DigitalSourceType
}

// generatorKeywords are substrings that fingerprint a generative image tool
// when found (case-insensitive) in a metadata field.
var generatorKeywords = []string{
	"midjourney",
	"stable diffusion",
	"stablediffusion",
	"dall-e",
	"dall·e",
	"dalle",
	"adobe firefly",
	"novelai",
	"comfyui",
	"automatic1111",
	"invokeai",
	"leonardo.ai",
	"google imagen",
	"black forest labs",
	"ideogram",
	"bing image creator",
	"craiyon",
}

// aiSourceTypes are IPTC digital source type values for synthetic media.
var aiSourceTypes = []string{
	"compositewithtrainedalgorithmicmedia", // before its suffix below
	"trainedalgorithmicmedia",
	"algorithmicmedia",
}

// GeneratorByMetadata returns a short name for the generative tool that the
// metadata points to, or "" when no field carries such a fingerprint.
func GeneratorByMetadata(meta *ImageMetadata) string {
	if meta == nil {
		return ""
	}

	src := strings.ToLower(meta.DigitalSourceType)
	for _, t := range aiSourceTypes {
		if strings.HasSuffix(src, t) {
			return "iptc:" + t
		}
	}

	for _, f := range []string{
		meta.Software,
		meta.CreatorTool,
		meta.Make,
		meta.CameraModel,
		meta.Artist,
		meta.Description,
		meta.Credit,
		meta.Source,
	} {
		if f == "" {
			continue
		}
		lower := strings.ToLower(f)
		for _, kw := range generatorKeywords {
			if strings.Contains(lower, kw) {
				return kw
			}
		}
	}
	return ""
}

// wantedTags maps (source, tag-name) → true for every tag we care about.
var wantedTags = map[imagemeta.Source]map[string]bool{
	imagemeta.IPTC: {
		"Credit": true,
		"Source": true,
	},
	imagemeta.EXIF: {
		"Software":         true,
		"Make":             true,
		"Model":            true,
		"Artist":           true,
		"Copyright":        true,
		"ImageDescription": true,
	},
	imagemeta.XMP: {
		"CreatorTool":       true,
		"DigitalSourceType": true,
	},
}

// ExtractImageMetadata parses EXIF/IPTC/XMP metadata from raw image bytes.
// Returns nil if the data is nil, empty, or carries none of the wanted tags.
// Graceful degradation: never returns an error.
func ExtractImageMetadata(data []byte) *ImageMetadata {
	if len(data) == 0 {
		return nil
	}

	meta := &ImageMetadata{}
	found := false

	_, err := imagemeta.Decode(imagemeta.Options{
		R:       bytes.NewReader(data),
		Sources: imagemeta.EXIF | imagemeta.IPTC | imagemeta.XMP,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			if tags, ok := wantedTags[ti.Source]; ok {
				return tags[ti.Tag]
			}
			return false
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			if s := tagValueString(ti.Value); s != "" && setTag(meta, ti.Source, ti.Tag, s) {
				found = true
			}
			return nil
		},
	})

	if err != nil || !found {
		return nil
	}

	return meta
}

// setTag stores s in the field matching (src, tag). Reports whether a field
// was set.
func setTag(meta *ImageMetadata, src imagemeta.Source, tag, s string) bool {
	var dst *string
	switch src {
	case imagemeta.EXIF:
		switch tag {
		case "Software":
			dst = &meta.Software
		case "Make":
			dst = &meta.Make
		case "Model":
			dst = &meta.CameraModel
		case "Artist":
			dst = &meta.Artist
		case "Copyright":
			dst = &meta.Copyright
		case "ImageDescription":
			dst = &meta.Description
		}
	case imagemeta.IPTC:
		switch tag {
		case "Credit":
			dst = &meta.Credit
		case "Source":
			dst = &meta.Source
		}
	case imagemeta.XMP:
		switch tag {
		case "CreatorTool":
			dst = &meta.CreatorTool
		case "DigitalSourceType":
			dst = &meta.DigitalSourceType
		}
	}
	if dst == nil {
		return false
	}
	*dst = strings.TrimSpace(s)
	return *dst != ""
}

// tagValueString extracts a string from a tag value.
// XMP values may be string or []string (from altList/seqList).
func tagValueString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		if len(val) > 0 {
			return val[0]
		}
		return ""
	case []any:
		if len(val) > 0 {
			if s, ok := val[0].(string); ok {
				return s
			}
		}
		return ""
	default:
		return ""
	}
}
